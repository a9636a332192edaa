package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize splits text into normalized tokens (lowercase words)
func Tokenize(text string) []string {
	f := func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	}
	fields := strings.FieldsFunc(text, f)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) > 1 { // Skip single characters
			tokens = append(tokens, strings.ToLower(field))
		}
	}
	return tokens
}

// Terms expands tokens into n-grams of length 1..maxN, unigrams first.
// Each n-gram is its tokens joined by a single space.
func Terms(tokens []string, maxN int) []string {
	if maxN < 1 {
		maxN = 1
	}
	terms := make([]string, 0, len(tokens)*maxN)
	terms = append(terms, tokens...)
	for n := 2; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
