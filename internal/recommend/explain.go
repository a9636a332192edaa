package recommend

import (
	"fmt"
	"strings"

	"github.com/beauty-engine/backend/internal/catalog"
)

// goodValueThreshold is the value-norm from which a product is called good
// value for money.
const goodValueThreshold = 0.66

// explain renders the fired signals of r as "; "-joined clauses in a fixed
// order, followed by the product's safety labels.
func (s *scorer) explain(p *catalog.Product, r RankedResult) string {
	b := r.Breakdown
	var parts []string

	if b.Skin == 1 {
		parts = append(parts, fmt.Sprintf("Suits %s skin", strings.TrimSpace(s.q.SkinType)))
	}
	if b.Brand == 1 {
		parts = append(parts, "Brand match")
	}
	if b.SubCategory == 1 {
		parts = append(parts, "Sub-category match")
	}
	if b.Active > 0 {
		parts = append(parts, fmt.Sprintf("Actives match (%d/%d)", r.ActiveHits, max(1, len(s.wantedActives))))
	}
	if b.Claim > 0 {
		parts = append(parts, "Claims match")
	}
	if b.Value >= goodValueThreshold {
		parts = append(parts, "Good value for money")
	}
	if b.AvoidPenalty < 0 {
		parts = append(parts, "(contains avoided ingredients)")
	}
	if b.ComedoPenalty < 0 {
		parts = append(parts, "(potentially comedogenic)")
	}

	var flags []string
	if p.AlcoholFree {
		flags = append(flags, "alcohol-free")
	}
	if p.FragranceFree {
		flags = append(flags, "fragrance-free")
	}
	if p.MalasseziaSafe {
		flags = append(flags, "malassezia-safe")
	}
	if len(flags) > 0 {
		parts = append(parts, strings.Join(flags, ", "))
	}

	return strings.Join(parts, "; ")
}
