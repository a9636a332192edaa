package catalog

import (
	"fmt"
	"strings"
)

// Canonical column names. The dataset contract is Indonesian, matching the
// catalogs this engine is fed with.
const (
	ColID             = "id"
	ColName           = "nama_produk"
	ColBrand          = "brand"
	ColSubCategory    = "sub_kategori"
	ColSkinTypes      = "jenis_kulit_kompatibel"
	ColRating         = "rating"
	ColPrice          = "harga_idr"
	ColVolume         = "size_ml"
	ColActives        = "bahan_aktif"
	ColClaims         = "klaim"
	ColAlcoholFree    = "non_alkohol"
	ColFragranceFree  = "non_fragrance"
	ColMalasseziaSafe = "aman_malassezia"
	ColComedogenic    = "komedogenik_score"
	ColDescription    = "deskripsi"
	ColImageURL       = "image_url"
)

// RequiredColumns must be present (directly or through an alias) in every
// dataset.
var RequiredColumns = []string{
	ColName, ColBrand, ColSubCategory, ColSkinTypes, ColRating,
	ColPrice, ColVolume, ColActives, ColClaims,
}

// OptionalColumns are synthesized with defaults when absent.
var OptionalColumns = []string{
	ColID, ColAlcoholFree, ColFragranceFree, ColMalasseziaSafe,
	ColComedogenic, ColDescription, ColImageURL,
}

// columnAliases maps accepted synonyms to canonical column names. It is
// consulted once per load, after header normalization.
var columnAliases = map[string]string{
	"product_name":       ColName,
	"name":               ColName,
	"merek":              ColBrand,
	"subkategori":        ColSubCategory,
	"sub_category":       ColSubCategory,
	"category":           ColSubCategory,
	"skin_type":          ColSkinTypes,
	"skin_types":         ColSkinTypes,
	"jenis_kulit":        ColSkinTypes,
	"harga":              ColPrice,
	"price":              ColPrice,
	"size":               ColVolume,
	"volume_ml":          ColVolume,
	"active_ingredients": ColActives,
	"actives":            ColActives,
	"klaim_":             ColClaims,
	"claims":             ColClaims,
	"alcohol_free":       ColAlcoholFree,
	"fragrance_free":     ColFragranceFree,
	"malassezia_safe":    ColMalasseziaSafe,
	"comedogenic_score":  ColComedogenic,
	"description":        ColDescription,
	"image":              ColImageURL,
	"gambar":             ColImageURL,
}

// SchemaError reports required columns missing from a dataset.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("catalog is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// normalizeColumnName case-folds a header cell and turns it into the
// snake_case form used by the alias table.
func normalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, ".", "")
	return strings.Join(strings.Fields(name), "_")
}

// resolveColumns maps canonical column names to header positions. Exact
// canonical names win over aliases; the first occurrence of each wins.
func resolveColumns(header []string) (map[string]int, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeColumnName(h)
	}

	known := make(map[string]bool, len(RequiredColumns)+len(OptionalColumns))
	for _, c := range RequiredColumns {
		known[c] = true
	}
	for _, c := range OptionalColumns {
		known[c] = true
	}

	cols := make(map[string]int)
	for i, name := range normalized {
		if _, seen := cols[name]; known[name] && !seen {
			cols[name] = i
		}
	}
	for i, name := range normalized {
		canon, ok := columnAliases[name]
		if !ok {
			continue
		}
		if _, seen := cols[canon]; !seen {
			cols[canon] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return cols, nil
}
