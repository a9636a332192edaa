package search

import (
	"math"
	"sort"
)

// SearchResult holds a matching catalog row and its score
type SearchResult struct {
	Row   int
	Score float64
}

// Index is a TF-IDF vector space fitted once over a fixed corpus. It is
// read-only after Fit and safe for concurrent use.
type Index struct {
	vectorizer *TFIDFVectorizer
	vectors    []Vector
}

// Fit trains the vectorizer on the corpus and vectorizes every document.
// Row i of the index corresponds to corpus[i].
func Fit(corpus []string, opts ...Option) *Index {
	v := NewTFIDFVectorizer(opts...)
	v.Fit(corpus)

	vectors := make([]Vector, len(corpus))
	for i, doc := range corpus {
		vectors[i] = v.Transform(doc)
	}
	return &Index{vectorizer: v, vectors: vectors}
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// VocabularySize returns the number of terms in the fitted vocabulary.
func (ix *Index) VocabularySize() int {
	return len(ix.vectorizer.Vocabulary)
}

// Similarity scores the query against every indexed document.
func (ix *Index) Similarity(query string) []float64 {
	queryVector := ix.vectorizer.Transform(query)
	scores := make([]float64, len(ix.vectors))
	for i, vec := range ix.vectors {
		scores[i] = CosineSimilarity(queryVector, vec)
	}
	return scores
}

// SimilarityFor scores the query against the given rows only. The result is
// aligned with rows; rows outside the index score 0.
func (ix *Index) SimilarityFor(query string, rows []int) []float64 {
	queryVector := ix.vectorizer.Transform(query)
	scores := make([]float64, len(rows))
	for i, row := range rows {
		if row < 0 || row >= len(ix.vectors) {
			continue
		}
		scores[i] = CosineSimilarity(queryVector, ix.vectors[row])
	}
	return scores
}

// Search finds the most similar documents to the query
func (ix *Index) Search(query string, topK int) []SearchResult {
	var results []SearchResult
	for row, score := range ix.Similarity(query) {
		if score > 0 {
			results = append(results, SearchResult{Row: row, Score: score})
		}
	}

	// Sort by descending score, ties keep row order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

// CosineSimilarity calculates the cosine similarity between two sparse
// vectors. It returns 0 when either vector is all-zero and never leaves [0,1]
// for non-negative inputs.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dotProduct, normA, normB float64
	for idx, wa := range a {
		dotProduct += wa * b[idx]
		normA += wa * wa
	}
	for _, wb := range b {
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dotProduct / (math.Sqrt(normA)*math.Sqrt(normB) + epsilon)
	return math.Max(0, math.Min(1, sim))
}
