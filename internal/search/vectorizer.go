package search

import (
	"math"
	"sort"
)

// epsilon guards every normalization denominator.
const epsilon = 1e-9

// Vector is a sparse term-weight vector keyed by vocabulary index.
type Vector map[int]float64

// Vectorizer turns text into a vector
type Vectorizer interface {
	Fit(docs []string)
	Transform(text string) Vector
}

// Option configures a TFIDFVectorizer.
type Option func(*TFIDFVectorizer)

// WithMaxFeatures caps the vocabulary to the n most frequent terms in the
// corpus. Zero or a negative value leaves the vocabulary unbounded.
func WithMaxFeatures(n int) Option {
	return func(v *TFIDFVectorizer) {
		if n < 0 {
			n = 0
		}
		v.maxFeatures = n
	}
}

// WithNGramMax sets the largest n-gram length. The default is 2 (bigrams).
func WithNGramMax(n int) Option {
	return func(v *TFIDFVectorizer) {
		if n < 1 {
			n = 1
		}
		v.ngramMax = n
	}
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
type TFIDFVectorizer struct {
	Vocabulary map[string]int
	IDF        []float64

	maxFeatures int
	ngramMax    int
}

func NewTFIDFVectorizer(opts ...Option) *TFIDFVectorizer {
	v := &TFIDFVectorizer{
		Vocabulary: make(map[string]int),
		ngramMax:   2,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Fit analyzes the corpus to build vocabulary and IDF stats
func (v *TFIDFVectorizer) Fit(docs []string) {
	docCount := float64(len(docs))
	termDocCounts := make(map[string]int)
	termCounts := make(map[string]int)

	// 1. Count document occurrences and corpus frequency per term
	for _, doc := range docs {
		seenInDoc := make(map[string]bool)
		for _, term := range Terms(Tokenize(doc), v.ngramMax) {
			termCounts[term]++
			if !seenInDoc[term] {
				termDocCounts[term]++
				seenInDoc[term] = true
			}
		}
	}

	terms := make([]string, 0, len(termCounts))
	for term := range termCounts {
		terms = append(terms, term)
	}

	// 2. Apply the vocabulary cap, most frequent terms first
	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termCounts[terms[i]] != termCounts[terms[j]] {
				return termCounts[terms[i]] > termCounts[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}

	// 3. Assign stable indices and calculate smoothed IDF
	sort.Strings(terms)
	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
		// idf = ln((1 + N) / (1 + df)) + 1
		v.IDF[i] = math.Log((1+docCount)/(1+float64(termDocCounts[term]))) + 1
	}
}

// Transform converts text to an L2-normalized vector based on the learned
// vocabulary. Terms outside the vocabulary are ignored.
func (v *TFIDFVectorizer) Transform(text string) Vector {
	vector := make(Vector)
	for _, term := range Terms(Tokenize(text), v.ngramMax) {
		if idx, exists := v.Vocabulary[term]; exists {
			vector[idx]++
		}
	}

	var norm float64
	for idx, count := range vector {
		w := count * v.IDF[idx]
		vector[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return vector
	}

	norm = math.Sqrt(norm) + epsilon
	for idx := range vector {
		vector[idx] /= norm
	}
	return vector
}
