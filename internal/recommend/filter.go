package recommend

import (
	"strings"

	"github.com/beauty-engine/backend/internal/catalog"
)

// Filter returns the catalog rows, ascending, that pass every hard filter of
// q. Applying it to its own output yields the same rows.
func Filter(cat *catalog.Catalog, q Query) []int {
	products := cat.Products()
	rows := make([]int, 0, len(products))
	skin := strings.ToLower(strings.TrimSpace(q.SkinType))

	for i := range products {
		if passes(&products[i], q, skin) {
			rows = append(rows, i)
		}
	}
	return rows
}

func passes(p *catalog.Product, q Query, skin string) bool {
	if p.Rating < q.MinRating {
		return false
	}
	if q.PriceRange != nil && (p.Price < q.PriceRange.Low || p.Price > q.PriceRange.High) {
		return false
	}
	if q.AlcoholFree && !p.AlcoholFree {
		return false
	}
	if q.FragranceFree && !p.FragranceFree {
		return false
	}
	if q.MalasseziaSafe && !p.MalasseziaSafe {
		return false
	}
	if q.OnlySkinMatch && skin != "" && !skinMatches(p, skin) {
		return false
	}
	return true
}

// skinMatches is a case-insensitive substring test on the raw skin-type text.
// skin must already be lowercased. An empty skin type matches nothing.
func skinMatches(p *catalog.Product, skin string) bool {
	if skin == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.SkinTypes), skin)
}

// BuildQueryText joins the free-text parts of q in a fixed order: interest,
// brand and sub-category preferences, skin type, wanted actives and claims.
func BuildQueryText(q Query) string {
	parts := make([]string, 0, 4+len(q.WantedActives)+len(q.WantedClaims))
	if s := strings.TrimSpace(q.Interest); s != "" {
		parts = append(parts, s)
	}
	if isSpecified(q.Brand) {
		parts = append(parts, strings.TrimSpace(q.Brand))
	}
	if isSpecified(q.SubCategory) {
		parts = append(parts, strings.TrimSpace(q.SubCategory))
	}
	if s := strings.TrimSpace(q.SkinType); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, normalizeTokens(q.WantedActives)...)
	parts = append(parts, normalizeTokens(q.WantedClaims)...)
	return strings.Join(parts, " ")
}
