package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/beauty-engine/backend/internal/recommend"
)

// Config holds the configuration for the recommendation service
type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Index   IndexConfig
	Scoring ScoringConfig
	Images  ImagesConfig
	Storage StorageConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int
	RateWindow      time.Duration
}

// CatalogConfig points at the product dataset
type CatalogConfig struct {
	Path string
}

// IndexConfig holds similarity index configuration
type IndexConfig struct {
	MaxFeatures int
	NGramMax    int
}

// ScoringConfig holds the defaults applied to incoming queries
type ScoringConfig struct {
	PresetPath string              `yaml:"-"`
	TopK       int                 `yaml:"top_k"`
	Weights    recommend.Weights   `yaml:"weights"`
	Penalties  recommend.Penalties `yaml:"penalties"`
}

// ImagesConfig holds image lookup and fetching configuration
type ImagesConfig struct {
	MapPath             string
	EmbedDataURI        bool
	FetchTimeout        time.Duration
	HostRate            float64
	HostBurst           int
	MinImageBytes       int
	EnableRobotsCheck   bool
	RobotsCacheDuration time.Duration
	UserAgent           string
	BreakerFailures     uint32
	BreakerTimeout      time.Duration
}

// StorageConfig holds export archive configuration
type StorageConfig struct {
	ExportDir string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	weights := recommend.DefaultWeights()
	penalties := recommend.DefaultPenalties()

	return &Config{
		Server: ServerConfig{
			Addr:            GetStringEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:     GetDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    GetDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: GetDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     GetStringSliceEnv("SERVER_CORS_ORIGINS", []string{"*"}),
			RateLimit:       GetIntEnv("SERVER_RATE_LIMIT", 120),
			RateWindow:      GetDurationEnv("SERVER_RATE_WINDOW", time.Minute),
		},
		Catalog: CatalogConfig{
			Path: GetStringEnv("CATALOG_PATH", "data/produk_kecantikan.csv"),
		},
		Index: IndexConfig{
			MaxFeatures: GetIntEnv("INDEX_MAX_FEATURES", 0),
			NGramMax:    GetIntEnv("INDEX_NGRAM_MAX", 2),
		},
		Scoring: ScoringConfig{
			PresetPath: GetStringEnv("SCORING_PRESET", ""),
			TopK:       GetIntEnv("SCORING_TOP_K", recommend.DefaultTopK),
			Weights: recommend.Weights{
				Content:     GetFloatEnv("SCORING_W_CONTENT", weights.Content),
				Rating:      GetFloatEnv("SCORING_W_RATING", weights.Rating),
				Skin:        GetFloatEnv("SCORING_W_SKIN", weights.Skin),
				Brand:       GetFloatEnv("SCORING_W_BRAND", weights.Brand),
				SubCategory: GetFloatEnv("SCORING_W_SUB", weights.SubCategory),
				Claim:       GetFloatEnv("SCORING_W_CLAIM", weights.Claim),
				Active:      GetFloatEnv("SCORING_W_ACTIVE", weights.Active),
				Value:       GetFloatEnv("SCORING_W_VALUE", weights.Value),
				Cheap:       GetFloatEnv("SCORING_W_CHEAP", weights.Cheap),
			},
			Penalties: recommend.Penalties{
				Avoid:           GetFloatEnv("SCORING_PENALTY_AVOID", penalties.Avoid),
				ComedoPerPoint:  GetFloatEnv("SCORING_PENALTY_KOMEDO_PER_POINT", penalties.ComedoPerPoint),
				ComedoThreshold: GetFloatEnv("SCORING_KOMEDO_THRESHOLD", penalties.ComedoThreshold),
			},
		},
		Images: ImagesConfig{
			MapPath:             GetStringEnv("IMAGES_MAP_PATH", "images_map.csv"),
			EmbedDataURI:        GetBoolEnv("IMAGES_EMBED_DATA_URI", false),
			FetchTimeout:        GetDurationEnv("IMAGES_FETCH_TIMEOUT", 15*time.Second),
			HostRate:            GetFloatEnv("IMAGES_HOST_RATE", 2),
			HostBurst:           GetIntEnv("IMAGES_HOST_BURST", 4),
			MinImageBytes:       GetIntEnv("IMAGES_MIN_BYTES", 256),
			EnableRobotsCheck:   GetBoolEnv("IMAGES_ENABLE_ROBOTS_CHECK", true),
			RobotsCacheDuration: GetDurationEnv("IMAGES_ROBOTS_CACHE_DURATION", 24*time.Hour),
			UserAgent:           GetStringEnv("IMAGES_USER_AGENT", "BeautyEngine-ImageFetcher/1.0"),
			BreakerFailures:     uint32(GetIntEnv("IMAGES_BREAKER_FAILURES", 5)),
			BreakerTimeout:      GetDurationEnv("IMAGES_BREAKER_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			ExportDir: GetStringEnv("STORAGE_EXPORT_DIR", "./data/exports"),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

// LoadDotEnv loads .env style files into the environment. Missing files are
// skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// ApplyPreset overlays the YAML scoring preset at Scoring.PresetPath, if any.
// Keys absent from the file keep their current values.
func (c *Config) ApplyPreset() error {
	if c.Scoring.PresetPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.Scoring.PresetPath)
	if err != nil {
		return fmt.Errorf("failed to read scoring preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Scoring); err != nil {
		return fmt.Errorf("failed to parse scoring preset: %w", err)
	}
	return nil
}

// DefaultQuery returns a query for skinType carrying the configured weights,
// penalties and K.
func (c *Config) DefaultQuery(skinType string) recommend.Query {
	q := recommend.NewQuery(skinType)
	q.Weights = c.Scoring.Weights
	q.Penalties = c.Scoring.Penalties
	q.TopK = c.Scoring.TopK
	return q
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetStringSliceEnv splits a comma-separated variable, dropping empty items.
func GetStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
