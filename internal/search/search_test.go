package search_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beauty-engine/backend/internal/search"
)

func TestTokenize(t *testing.T) {
	tokens := search.Tokenize("Hello, World! This is a test.")

	assert.Equal(t, []string{"hello", "world", "this", "is", "test"}, tokens)
}

func TestTokenize_Unicode(t *testing.T) {
	tokens := search.Tokenize("Niacinamide 10%|Zinc PCA; kulit BERMINYAK")

	assert.Equal(t, []string{"niacinamide", "10", "zinc", "pca", "kulit", "berminyak"}, tokens)
}

func TestTerms(t *testing.T) {
	terms := search.Terms([]string{"aa", "bb", "cc"}, 2)

	assert.Equal(t, []string{"aa", "bb", "cc", "aa bb", "bb cc"}, terms)
	assert.Equal(t, []string{"aa", "bb", "cc"}, search.Terms([]string{"aa", "bb", "cc"}, 1))
}

func TestTFIDFVectorizer(t *testing.T) {
	docs := []string{
		"apple banana",
		"apple orange",
	}

	vectorizer := search.NewTFIDFVectorizer()
	vectorizer.Fit(docs)

	// apple, banana, orange, "apple banana", "apple orange"
	assert.Len(t, vectorizer.Vocabulary, 5)

	unigrams := search.NewTFIDFVectorizer(search.WithNGramMax(1))
	unigrams.Fit(docs)
	assert.Len(t, unigrams.Vocabulary, 3)

	// 'apple' appears in both docs, 'banana' in one.
	// idf(apple) = ln(3/3) + 1 = 1
	// idf(banana) = ln(3/2) + 1 ≈ 1.405
	assert.InDelta(t, 1.0, unigrams.IDF[unigrams.Vocabulary["apple"]], 1e-9)
	assert.InDelta(t, math.Log(1.5)+1, unigrams.IDF[unigrams.Vocabulary["banana"]], 1e-9)

	vec := vectorizer.Transform("apple banana")
	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestTFIDFVectorizer_MaxFeatures(t *testing.T) {
	docs := []string{
		"serum serum toner",
		"serum cream",
	}

	vectorizer := search.NewTFIDFVectorizer(search.WithMaxFeatures(1))
	vectorizer.Fit(docs)

	require.Len(t, vectorizer.Vocabulary, 1)
	_, ok := vectorizer.Vocabulary["serum"]
	assert.True(t, ok)

	// Out-of-vocabulary terms contribute nothing
	assert.Empty(t, vectorizer.Transform("toner cream"))
}

func TestCosineSimilarity(t *testing.T) {
	vecA := search.Vector{0: 1, 2: 1}
	vecB := search.Vector{1: 1, 2: 1}

	// Dot product: 1, norms: sqrt(2) each, cosine: 0.5
	score := search.CosineSimilarity(vecA, vecB)
	assert.InDelta(t, 0.5, score, 1e-6)

	assert.Equal(t, 0.0, search.CosineSimilarity(vecA, search.Vector{}))
	assert.Equal(t, 0.0, search.CosineSimilarity(nil, vecB))
}

func TestIndex_Search(t *testing.T) {
	index := search.Fit([]string{
		"go programming language",
		"python programming language",
		"banana fruit split",
	})
	require.Equal(t, 3, index.Len())

	results := index.Search("go language", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, 0, results[0].Row)

	results = index.Search("python", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].Row)

	assert.Len(t, index.Search("programming", 1), 1)
}

func TestIndex_Similarity(t *testing.T) {
	index := search.Fit([]string{
		"serum niacinamide untuk kulit berminyak",
		"pelembap ceramide untuk kulit kering",
		"sunscreen spf 50",
	})

	scores := index.Similarity("niacinamide berminyak")
	require.Len(t, scores, 3)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.Greater(t, scores[0], scores[1])
	assert.Equal(t, 0.0, scores[2])

	// Identical text scores (almost exactly) 1
	self := index.Similarity("sunscreen spf 50")
	assert.InDelta(t, 1.0, self[2], 1e-6)

	// Novel terms do not alter the space
	assert.Equal(t, []float64{0, 0, 0}, index.Similarity("retinol bakuchiol"))
}

func TestIndex_SimilarityFor(t *testing.T) {
	index := search.Fit([]string{
		"toner exfoliating aha bha",
		"toner hydrating hyaluronic",
		"cleanser gentle",
	})

	all := index.Similarity("toner hydrating")
	subset := index.SimilarityFor("toner hydrating", []int{1, 0, 99})

	require.Len(t, subset, 3)
	assert.Equal(t, all[1], subset[0])
	assert.Equal(t, all[0], subset[1])
	assert.Equal(t, 0.0, subset[2])
}
