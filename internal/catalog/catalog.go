// Package catalog normalizes raw product tables into an immutable catalog:
// column aliasing, cell coercion, token parsing, corpus construction and the
// catalog-wide normalized signals used for scoring.
package catalog

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// epsilon guards min-max denominators.
const epsilon = 1e-9

// Catalog is an immutable, normalized product set. Safe for concurrent reads.
type Catalog struct {
	products   []Product
	ratingNorm []float64
	valueNorm  []float64
	cheapNorm  []float64
	warnings   []CoercionWarning
}

// Load reads a CSV dataset and normalizes it.
func Load(r io.Reader) (*Catalog, error) {
	table, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return Normalize(table)
}

// LoadFile reads and normalizes the CSV dataset at path.
func LoadFile(path string) (*Catalog, error) {
	table, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	return Normalize(table)
}

// Normalize builds a Catalog from a raw table. It fails only with a
// *SchemaError when required columns are absent; malformed cells are replaced
// by column defaults and reported through Warnings.
func Normalize(table *Table) (*Catalog, error) {
	cols, err := resolveColumns(table.Header)
	if err != nil {
		return nil, err
	}

	c := &Catalog{products: make([]Product, 0, len(table.Rows))}
	for i, row := range table.Rows {
		c.products = append(c.products, c.normalizeRow(i, row, cols))
	}
	c.computeNorms()
	return c, nil
}

func (c *Catalog) normalizeRow(i int, row []string, cols map[string]int) Product {
	cell := func(col string) string {
		idx, ok := cols[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	number := func(col string) float64 {
		raw := cell(col)
		v, ok, reason := parseNumber(raw)
		if !ok {
			c.warnings = append(c.warnings, CoercionWarning{Row: i, Column: col, Value: raw, Reason: reason})
		}
		return v
	}

	price, ok, reason := parsePrice(cell(ColPrice))
	if !ok {
		c.warnings = append(c.warnings, CoercionWarning{Row: i, Column: ColPrice, Value: cell(ColPrice), Reason: reason})
	}

	p := Product{
		ID:             cell(ColID),
		Name:           cell(ColName),
		Brand:          cell(ColBrand),
		SubCategory:    cell(ColSubCategory),
		SkinTypes:      cell(ColSkinTypes),
		Rating:         number(ColRating),
		Price:          price,
		VolumeML:       number(ColVolume),
		Actives:        cell(ColActives),
		Claims:         cell(ColClaims),
		AlcoholFree:    ParseBool(cell(ColAlcoholFree)),
		FragranceFree:  ParseBool(cell(ColFragranceFree)),
		MalasseziaSafe: ParseBool(cell(ColMalasseziaSafe)),
		Comedogenic:    number(ColComedogenic),
		Description:    stripMarkup(cell(ColDescription)),
		ImageURL:       cell(ColImageURL),
	}
	if p.ID == "" {
		p.ID = strconv.Itoa(i + 1)
	}

	p.activeTokens = SplitPipe(p.Actives)
	p.activeSet = toSet(p.activeTokens)
	p.claimTokens = SplitPipe(p.Claims)
	p.claimSet = toSet(p.claimTokens)
	p.skinTokens = ParseSkinTokens(p.SkinTypes)
	p.corpus = buildCorpus(&p)
	return p
}

func buildCorpus(p *Product) string {
	parts := make([]string, 0, 7)
	for _, s := range []string{p.Name, p.Brand, p.SubCategory, p.SkinTypes, p.Actives, p.Claims, p.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// computeNorms min-max normalizes rating, value-per-price and cheapness over
// the whole catalog. A zero range maps every product to 0.
func (c *Catalog) computeNorms() {
	n := len(c.products)
	ratings := make([]float64, n)
	values := make([]float64, n)
	prices := make([]float64, n)
	for i := range c.products {
		ratings[i] = c.products[i].Rating
		values[i] = c.products[i].ValuePerPrice()
		prices[i] = float64(c.products[i].Price)
	}

	c.ratingNorm = minMax(ratings, false)
	c.valueNorm = minMax(values, false)
	c.cheapNorm = minMax(prices, true)
}

// minMax rescales xs to [0,1]. With inverse set, the largest value maps to 0.
func minMax(xs []float64, inverse bool) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	span := hi - lo + epsilon
	for i, x := range xs {
		if inverse {
			out[i] = (hi - x) / span
		} else {
			out[i] = (x - lo) / span
		}
	}
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Product returns a copy of the product at row i.
func (c *Catalog) Product(i int) Product {
	return c.products[i]
}

// Products returns a copy of all products in catalog order.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Corpus returns the per-product text corpus in catalog order.
func (c *Catalog) Corpus() []string {
	corpus := make([]string, len(c.products))
	for i := range c.products {
		corpus[i] = c.products[i].corpus
	}
	return corpus
}

// RatingNorm is the catalog-wide min-max normalized rating of row i.
func (c *Catalog) RatingNorm(i int) float64 { return c.ratingNorm[i] }

// ValueNorm is the catalog-wide min-max normalized millilitres per price.
func (c *Catalog) ValueNorm(i int) float64 { return c.valueNorm[i] }

// CheapNorm is the inverse min-max normalized price: the cheapest product
// scores highest.
func (c *Catalog) CheapNorm(i int) float64 { return c.cheapNorm[i] }

// Warnings returns the cells that were coerced to defaults during Normalize.
func (c *Catalog) Warnings() []CoercionWarning {
	return append([]CoercionWarning(nil), c.warnings...)
}
