package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
	summaryJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Find products by text similarity only",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		hits, err := eng.Search(strings.Join(args, " "), searchLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROW\tSCORE\tPRODUCT\tBRAND\tSUB")
		for _, h := range hits {
			fmt.Fprintf(w, "%d\t%.3f\t%s\t%s\t%s\n",
				h.Index, h.Score, truncate(h.Product.Name, 40), h.Product.Brand, h.Product.SubCategory)
		}
		return w.Flush()
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show brands, sub-categories, tokens and price bounds of the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		s, err := eng.Summary()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if summaryJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		fmt.Fprintf(out, "Products:        %d\n", s.Products)
		fmt.Fprintf(out, "Price range:     %d - %d\n", s.PriceMin, s.PriceMax)
		fmt.Fprintf(out, "Coerced cells:   %d\n", s.Warnings)
		fmt.Fprintf(out, "Brands:          %s\n", strings.Join(s.Brands, ", "))
		fmt.Fprintf(out, "Sub-categories:  %s\n", strings.Join(s.SubCategories, ", "))
		fmt.Fprintf(out, "Skin types:      %s\n", strings.Join(s.SkinTypes, ", "))
		fmt.Fprintf(out, "Actives:         %s\n", strings.Join(s.Actives, ", "))
		fmt.Fprintf(out, "Claims:          %s\n", strings.Join(s.Claims, ", "))
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit-images",
	Short: "List products without a usable image",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		issues, err := eng.ImageAudit()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(issues) == 0 {
			fmt.Fprintln(out, "Every product has an image.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROW\tREASON\tBRAND\tSUB\tPRODUCT\tURL")
		for _, is := range issues {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				is.Row, is.Reason, is.Brand, is.SubCategory, truncate(is.Name, 40), is.URL)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "number of hits")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(searchCmd, summaryCmd, auditCmd)
}
