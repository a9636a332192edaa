// Package recommend ranks catalog products for a query: hard filters, a
// weighted sum of relevance, match and catalog-wide signals, penalties and a
// generated explanation per result.
package recommend

import (
	"math"
	"sort"
	"strings"

	"github.com/beauty-engine/backend/internal/catalog"
	"github.com/beauty-engine/backend/internal/search"
)

// AcneSkinType is the only query skin type that enables the comedogenic
// penalty.
const AcneSkinType = catalog.SkinAcne

// Breakdown holds every component of a final score. Signals are unweighted;
// penalties are already signed and scaled.
type Breakdown struct {
	Content       float64 `json:"s_content"`
	Rating        float64 `json:"s_rating"`
	Skin          float64 `json:"s_skin"`
	Brand         float64 `json:"s_brand"`
	SubCategory   float64 `json:"s_sub"`
	Claim         float64 `json:"s_claim"`
	Active        float64 `json:"s_active"`
	Value         float64 `json:"s_value"`
	Cheap         float64 `json:"s_cheap"`
	AvoidPenalty  float64 `json:"p_avoid"`
	ComedoPenalty float64 `json:"p_komedo"`
}

// Score is the unclamped weighted sum of the signals plus both penalties.
func (b Breakdown) Score(w Weights) float64 {
	return w.Content*b.Content +
		w.Rating*b.Rating +
		w.Skin*b.Skin +
		w.Brand*b.Brand +
		w.SubCategory*b.SubCategory +
		w.Claim*b.Claim +
		w.Active*b.Active +
		w.Value*b.Value +
		w.Cheap*b.Cheap +
		b.AvoidPenalty +
		b.ComedoPenalty
}

// RankedResult is one scored product.
type RankedResult struct {
	// Index is the product's row in the catalog.
	Index       int             `json:"index"`
	Product     catalog.Product `json:"product"`
	Score       float64         `json:"score"`
	Breakdown   Breakdown       `json:"breakdown"`
	ActiveHits  int             `json:"active_hits"`
	ClaimHits   int             `json:"claim_hits"`
	Explanation string          `json:"explanation"`
}

// Recommend ranks the products of cat that pass q's filters and returns at
// most q.Limit() of them, best first. Equal scores keep catalog order. An
// empty candidate set yields an empty, non-nil slice.
//
// Recommend reads cat and idx only and is safe to call concurrently.
func Recommend(cat *catalog.Catalog, idx *search.Index, q Query) []RankedResult {
	return Rank(cat, idx, q, Filter(cat, q))
}

// Rank scores the given candidate rows (as returned by Filter) and returns the
// top q.Limit() of them. A nil idx scores every row's content signal as 0.
func Rank(cat *catalog.Catalog, idx *search.Index, q Query, rows []int) []RankedResult {
	if len(rows) == 0 {
		return []RankedResult{}
	}

	var sims []float64
	if idx != nil {
		sims = idx.SimilarityFor(BuildQueryText(q), rows)
	} else {
		sims = make([]float64, len(rows))
	}

	s := newScorer(q)
	results := make([]RankedResult, 0, len(rows))
	for j, row := range rows {
		p := cat.Product(row)
		r := s.score(&p, sims[j])
		r.Index = row
		r.Breakdown.Rating = cat.RatingNorm(row)
		r.Breakdown.Value = cat.ValueNorm(row)
		r.Breakdown.Cheap = cat.CheapNorm(row)
		r.Score = r.Breakdown.Score(q.Weights)
		r.Explanation = s.explain(&p, r)
		r.Product = p
		results = append(results, r)
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Index < results[b].Index
	})

	if k := q.Limit(); len(results) > k {
		results = results[:k]
	}
	return results
}

// scorer holds the per-query state shared by every candidate.
type scorer struct {
	q             Query
	skin          string
	brand         string
	sub           string
	wantedActives []string
	wantedClaims  []string
	avoidActives  []string
	acne          bool
}

func newScorer(q Query) *scorer {
	s := &scorer{
		q:             q,
		skin:          strings.ToLower(strings.TrimSpace(q.SkinType)),
		wantedActives: normalizeTokens(q.WantedActives),
		wantedClaims:  normalizeTokens(q.WantedClaims),
		avoidActives:  normalizeTokens(q.AvoidActives),
	}
	if isSpecified(q.Brand) {
		s.brand = strings.TrimSpace(q.Brand)
	}
	if isSpecified(q.SubCategory) {
		s.sub = strings.TrimSpace(q.SubCategory)
	}
	s.acne = strings.EqualFold(s.skin, AcneSkinType)
	return s
}

// score fills the query-dependent signals and penalties of p.
func (s *scorer) score(p *catalog.Product, sim float64) RankedResult {
	var r RankedResult
	b := &r.Breakdown
	b.Content = sim

	if skinMatches(p, s.skin) {
		b.Skin = 1
	}
	if s.brand != "" && strings.EqualFold(strings.TrimSpace(p.Brand), s.brand) {
		b.Brand = 1
	}
	if s.sub != "" && strings.EqualFold(strings.TrimSpace(p.SubCategory), s.sub) {
		b.SubCategory = 1
	}

	r.ActiveHits = countHits(s.wantedActives, p.HasActive)
	r.ClaimHits = countHits(s.wantedClaims, p.HasClaim)
	b.Active = overlap(r.ActiveHits, len(s.wantedActives))
	b.Claim = overlap(r.ClaimHits, len(s.wantedClaims))

	if countHits(s.avoidActives, p.HasActive) > 0 {
		b.AvoidPenalty = -s.q.Penalties.Avoid
	}
	if s.acne {
		over := math.Max(0, p.Comedogenic-s.q.Penalties.ComedoThreshold)
		if over > 0 {
			b.ComedoPenalty = -s.q.Penalties.ComedoPerPoint * over
		}
	}
	return r
}

func countHits(wanted []string, has func(string) bool) int {
	hits := 0
	for _, t := range wanted {
		if has(t) {
			hits++
		}
	}
	return hits
}

func overlap(hits, wanted int) float64 {
	if wanted == 0 {
		return 0
	}
	return float64(hits) / float64(max(1, wanted))
}
