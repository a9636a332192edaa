package catalog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CoercionWarning records a cell that could not be parsed and was replaced by
// the column default. Warnings never fail a load.
type CoercionWarning struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (w CoercionWarning) String() string {
	return fmt.Sprintf("row %d column %s: %s (%q)", w.Row, w.Column, w.Reason, w.Value)
}

var truthy = map[string]bool{"true": true, "1": true, "yes": true, "y": true}

// ParseBool accepts "true", "1", "yes" and "y" in any case. Everything else,
// including an empty cell, is false.
func ParseBool(raw string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(raw))]
}

// parseNumber parses a non-negative float. ok is false when the cell is
// non-empty and unparseable; an empty cell yields (0, true).
func parseNumber(raw string) (value float64, ok bool, reason string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Accept decimal commas ("4,5")
		v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, "not a number"
	}
	if v < 0 {
		return 0, false, "negative value"
	}
	return v, true, ""
}

// maxPrice is the largest float that still converts to an int64 exactly.
const maxPrice = 9.2e18

// thousandsGrouped matches numbers written with "." or "," every three digits
// ("125.000", "1,250,000"), which are grouping, not decimals.
var thousandsGrouped = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)

// parsePrice parses a price in whole currency units. Grouped and formatted
// values ("125.000", "Rp 125.000") keep their digits only; other plain
// numbers are rounded.
func parsePrice(raw string) (value int64, ok bool, reason string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true, ""
	}
	if !thousandsGrouped.MatchString(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			if v < 0 {
				return 0, false, "negative value"
			}
			if v >= maxPrice {
				return 0, false, "price out of range"
			}
			return int64(math.Round(v)), true, ""
		}
		if strings.HasPrefix(s, "-") {
			return 0, false, "negative value"
		}
	}

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false, "not a price"
	}
	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false, "price out of range"
	}
	return v, true, ""
}

// SplitPipe splits a pipe-delimited list into trimmed, lowercased tokens.
// Empty tokens and duplicates are dropped; first-seen order is kept.
func SplitPipe(raw string) []string {
	parts := strings.Split(raw, "|")
	tokens := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		tok := strings.ToLower(strings.TrimSpace(p))
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}
