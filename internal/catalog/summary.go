package catalog

import "sort"

// Summary describes a catalog for option pickers and dashboards.
type Summary struct {
	Products      int      `json:"products"`
	Brands        []string `json:"brands"`
	SubCategories []string `json:"sub_categories"`
	SkinTypes     []string `json:"skin_types"`
	Actives       []string `json:"actives"`
	Claims        []string `json:"claims"`
	PriceMin      int64    `json:"price_min"`
	PriceMax      int64    `json:"price_max"`
	Warnings      int      `json:"coercion_warnings"`
}

// Summary collects the distinct brands, sub-categories and tokens of the
// catalog, sorted, and a price range usable as slider bounds.
func (c *Catalog) Summary() Summary {
	brands := make(map[string]bool)
	subs := make(map[string]bool)
	skins := make(map[string]bool)
	actives := make(map[string]bool)
	claims := make(map[string]bool)
	prices := make([]int64, 0, len(c.products))

	for i := range c.products {
		p := &c.products[i]
		if p.Brand != "" {
			brands[p.Brand] = true
		}
		if p.SubCategory != "" {
			subs[p.SubCategory] = true
		}
		for _, t := range p.skinTokens {
			skins[t] = true
		}
		for _, t := range p.activeTokens {
			actives[t] = true
		}
		for _, t := range p.claimTokens {
			claims[t] = true
		}
		prices = append(prices, p.Price)
	}

	lo, hi := SafePriceBounds(prices)
	return Summary{
		Products:      len(c.products),
		Brands:        sortedKeys(brands),
		SubCategories: sortedKeys(subs),
		SkinTypes:     sortedKeys(skins),
		Actives:       sortedKeys(actives),
		Claims:        sortedKeys(claims),
		PriceMin:      lo,
		PriceMax:      hi,
		Warnings:      len(c.warnings),
	}
}

// SafePriceBounds returns a strictly increasing (lo, hi) pair covering
// prices: [0,1] for no prices and [v-1, v+1] (clamped at 0) for one value.
func SafePriceBounds(prices []int64) (lo, hi int64) {
	if len(prices) == 0 {
		return 0, 1
	}
	lo, hi = prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if lo >= hi {
		return max(0, lo-1), lo + 1
	}
	return lo, hi
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
