package catalog

import (
	"regexp"
	"sort"
	"strings"
)

// Canonical skin-type tokens.
const (
	SkinAll         = "semua"
	SkinAcne        = "berjerawat"
	SkinOily        = "berminyak"
	SkinDry         = "kering"
	SkinSensitive   = "sensitif"
	SkinCombination = "kombinasi"
	SkinDull        = "kusam"
	SkinNormal      = "normal"
)

// skinRule maps any of its substrings to a canonical token.
type skinRule struct {
	patterns []string
	token    string
}

// skinRules are evaluated top to bottom; the first matching rule wins.
var skinRules = []skinRule{
	{patterns: []string{"semua"}, token: SkinAll},
	{patterns: []string{"acne", "jerawat"}, token: SkinAcne},
	{patterns: []string{"oily", "minyak"}, token: SkinOily},
	{patterns: []string{"dry", "kering"}, token: SkinDry},
	{patterns: []string{"sensitive", "sensitif"}, token: SkinSensitive},
	{patterns: []string{"comb", "kombinasi"}, token: SkinCombination},
	{patterns: []string{"dull", "kusam"}, token: SkinDull},
	{patterns: []string{"normal"}, token: SkinNormal},
}

var (
	skinSeparators = regexp.MustCompile(`\s*(?:,|/|\||;|&|\bdan\b)\s*`)
	skinFillers    = regexp.MustCompile(`\b(?:kulit|dan|skin)\b`)
	skinAllWord    = regexp.MustCompile(`\bsemua\b`)
)

// CanonicalizeSkin maps one free-text skin description to a canonical token.
// ok is false when no rule matches.
func CanonicalizeSkin(raw string) (token string, ok bool) {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.TrimSpace(skinFillers.ReplaceAllString(t, ""))
	if t == "" {
		return "", false
	}
	for _, rule := range skinRules {
		for _, p := range rule.patterns {
			if strings.Contains(t, p) {
				return rule.token, true
			}
		}
	}
	return "", false
}

// ParseSkinTokens turns a compatible-skin-types cell into a sorted set of
// canonical tokens. Text that matches no rule is treated as universal and
// yields {SkinAll}.
func ParseSkinTokens(raw string) []string {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || skinAllWord.MatchString(text) {
		return []string{SkinAll}
	}

	set := make(map[string]bool)
	for _, part := range skinSeparators.Split(text, -1) {
		if tok, ok := CanonicalizeSkin(part); ok {
			set[tok] = true
		}
	}
	if len(set) == 0 {
		return []string{SkinAll}
	}

	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}
