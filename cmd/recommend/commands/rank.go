package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/beauty-engine/backend/internal/export"
	"github.com/beauty-engine/backend/internal/recommend"
)

var (
	rankSkin          string
	rankInterest      string
	rankBrand         string
	rankSub           string
	rankMinRating     float64
	rankPriceMin      int64
	rankPriceMax      int64
	rankAlcoholFree   bool
	rankFragranceFree bool
	rankMalassezia    bool
	rankOnlySkinMatch bool
	rankWant          []string
	rankAvoid         []string
	rankClaims        []string
	rankTopK          int
	rankFormat        string
	rankBreakdown     bool
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&rankSkin, "skin", "s", "", "skin type (kering, berminyak, kombinasi, sensitif, berjerawat, normal)")
	f.StringVarP(&rankInterest, "interest", "i", "", "free-text interest")
	f.StringVar(&rankBrand, "brand", recommend.Unspecified, "preferred brand")
	f.StringVar(&rankSub, "sub", recommend.Unspecified, "preferred sub-category")
	f.Float64Var(&rankMinRating, "min-rating", 0, "minimum rating (0-5)")
	f.Int64Var(&rankPriceMin, "price-min", 0, "minimum price, inclusive")
	f.Int64Var(&rankPriceMax, "price-max", 0, "maximum price, inclusive (0 disables the price filter)")
	f.BoolVar(&rankAlcoholFree, "alcohol-free", false, "only alcohol-free products")
	f.BoolVar(&rankFragranceFree, "fragrance-free", false, "only fragrance-free products")
	f.BoolVar(&rankMalassezia, "malassezia-safe", false, "only malassezia-safe products")
	f.BoolVar(&rankOnlySkinMatch, "only-skin-match", false, "drop products that do not list the skin type")
	f.StringSliceVar(&rankWant, "want", nil, "wanted actives")
	f.StringSliceVar(&rankAvoid, "avoid", nil, "actives to avoid")
	f.StringSliceVar(&rankClaims, "claim", nil, "wanted claims")
	f.IntVarP(&rankTopK, "top-k", "k", 0, "number of results (default from config)")
	f.StringVarP(&rankFormat, "format", "f", "table", "output format: table, csv or json")
	f.BoolVar(&rankBreakdown, "breakdown", false, "include score components in CSV output")
	rootCmd.RunE = runRank
}

func runRank(cmd *cobra.Command, args []string) error {
	switch rankFormat {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q", rankFormat)
	}

	eng, err := newEngine(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	q := eng.DefaultQuery(rankSkin)
	q.Interest = rankInterest
	q.Brand = rankBrand
	q.SubCategory = rankSub
	q.MinRating = rankMinRating
	if rankPriceMax > 0 {
		q.PriceRange = &recommend.PriceRange{Low: rankPriceMin, High: rankPriceMax}
	}
	q.AlcoholFree = rankAlcoholFree
	q.FragranceFree = rankFragranceFree
	q.MalasseziaSafe = rankMalassezia
	q.OnlySkinMatch = rankOnlySkinMatch
	q.WantedActives = rankWant
	q.AvoidActives = rankAvoid
	q.WantedClaims = rankClaims
	if rankTopK > 0 {
		q.TopK = rankTopK
	}

	report, err := eng.Recommend(context.Background(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch rankFormat {
	case "csv":
		return report.WriteCSV(out, rankBreakdown)
	case "json":
		return report.WriteJSON(out)
	}
	if len(report.Items) == 0 {
		fmt.Fprintln(out, "No products match the selected filters.")
		return nil
	}
	return printTable(out, report.Items)
}

func printTable(out io.Writer, items []export.Item) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tBRAND\tSUB\tPRICE\tRATING\tSCORE\tWHY")
	for i, it := range items {
		p := it.Product
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.1f\t%.3f\t%s\n",
			i+1, truncate(p.Name, 40), p.Brand, p.SubCategory, p.Price, p.Rating, it.Score, it.Explanation)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
