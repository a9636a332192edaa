// Package export flattens ranked results into a downloadable table.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/beauty-engine/backend/internal/recommend"
)

var baseColumns = []string{
	"nama_produk", "brand", "sub_kategori", "rating", "harga_idr", "size_ml",
	"jenis_kulit_kompatibel", "bahan_aktif", "klaim", "non_alkohol", "non_fragrance",
	"aman_malassezia", "komedogenik_score", "skor", "alasan", "deskripsi",
}

var breakdownColumns = []string{
	"s_content", "s_rating", "s_skin", "s_brand", "s_sub", "s_claim",
	"s_active", "s_value", "s_cheap", "p_avoid", "p_komedo",
}

// Item is one exported result with its resolved image.
type Item struct {
	recommend.RankedResult
	ImageURL string `json:"image_url,omitempty"`
}

// Report is a generated recommendation, kept for later download.
type Report struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Source      string          `json:"source,omitempty"`
	Query       recommend.Query `json:"query"`
	Items       []Item          `json:"items"`
}

// NewReport wraps results in a report with a fresh id. Item order is result
// order.
func NewReport(q recommend.Query, results []recommend.RankedResult) *Report {
	items := make([]Item, len(results))
	for i, r := range results {
		items[i] = Item{RankedResult: r}
	}
	return &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Query:       q,
		Items:       items,
	}
}

// Columns returns the export header. Breakdown columns follow the base
// columns when requested; image_url is always last.
func Columns(withBreakdown bool) []string {
	cols := append([]string(nil), baseColumns...)
	if withBreakdown {
		cols = append(cols, breakdownColumns...)
	}
	return append(cols, "image_url")
}

// Rows flattens the report items, one row per item, in item order.
func (r *Report) Rows(withBreakdown bool) [][]string {
	rows := make([][]string, 0, len(r.Items))
	for _, item := range r.Items {
		p := item.Product
		row := []string{
			p.Name,
			p.Brand,
			p.SubCategory,
			formatFloat(p.Rating),
			strconv.FormatInt(p.Price, 10),
			formatFloat(p.VolumeML),
			p.SkinTypes,
			p.Actives,
			p.Claims,
			strconv.FormatBool(p.AlcoholFree),
			strconv.FormatBool(p.FragranceFree),
			strconv.FormatBool(p.MalasseziaSafe),
			formatFloat(p.Comedogenic),
			formatFloat(item.Score),
			item.Explanation,
			p.Description,
		}
		if withBreakdown {
			b := item.Breakdown
			for _, v := range []float64{
				b.Content, b.Rating, b.Skin, b.Brand, b.SubCategory, b.Claim,
				b.Active, b.Value, b.Cheap, b.AvoidPenalty, b.ComedoPenalty,
			} {
				row = append(row, formatFloat(v))
			}
		}
		rows = append(rows, append(row, item.ImageURL))
	}
	return rows
}

// WriteCSV writes the header and rows as CSV.
func (r *Report) WriteCSV(w io.Writer, withBreakdown bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(withBreakdown)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(r.Rows(withBreakdown)); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// WriteJSON writes the whole report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
