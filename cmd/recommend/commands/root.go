package commands

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beauty-engine/backend/internal/config"
	"github.com/beauty-engine/backend/internal/engine"
	"github.com/beauty-engine/backend/internal/images"
)

var (
	catalogPath string
	presetPath  string
	imageMap    string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Beauty product recommendations from a catalog CSV",
	Long: `Loads a product catalog, indexes it and ranks products against skin type,
preferences and safety filters. Results print as a table or export as CSV/JSON.`,
	Example: `  recommend --skin berjerawat --want niacinamide --avoid alcohol --top-k 5
  recommend --catalog produk.csv --skin kering --price-max 150000 --format csv > hasil.csv
  recommend search "vitamin c serum"`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog CSV path (default CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&presetPath, "preset", "", "YAML scoring preset (default SCORING_PRESET)")
	rootCmd.PersistentFlags().StringVar(&imageMap, "images-map", "", "image map CSV (default IMAGES_MAP_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newEngine loads config, applies flag overrides and returns an engine with
// the catalog loaded. Logs go to stderr so stdout stays clean for exports.
func newEngine(stderr io.Writer) (*engine.Engine, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if presetPath != "" {
		cfg.Scoring.PresetPath = presetPath
	}
	if imageMap != "" {
		cfg.Images.MapPath = imageMap
	}
	if err := cfg.ApplyPreset(); err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	entry := logger.WithField("service", "recommend-cli")

	lookup, err := images.LoadMapFile(cfg.Images.MapPath)
	if err != nil {
		entry.WithError(err).Warn("Image map unusable")
		lookup = images.NewMap()
	}
	resolver := images.NewResolver(lookup, nil, entry)

	eng := engine.NewEngine(cfg, entry, nil, resolver)
	if _, err := eng.Reload(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return eng, nil
}
