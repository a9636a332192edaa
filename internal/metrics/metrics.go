package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Duration of recommendation queries in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	RecommendCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidates",
			Help:    "Products left after hard filters per query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	RecommendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_queries_total",
			Help: "Total number of recommendation queries by outcome",
		},
		[]string{"outcome"}, // "ok", "empty", "invalid", "error"
	)

	// Catalog Metrics
	CatalogProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Number of products in the active catalog snapshot",
		},
	)

	CatalogVocabulary = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_index_vocabulary_terms",
			Help: "Vocabulary size of the active similarity index",
		},
	)

	CatalogCoercionWarnings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_coercion_warnings",
			Help: "Cells coerced to defaults while loading the active catalog",
		},
	)

	CatalogLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_loads_total",
			Help: "Total number of catalog loads by result",
		},
		[]string{"result"}, // "success", "schema_error", "error"
	)

	// Image Metrics
	ImageResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolutions_total",
			Help: "Total number of product image resolutions by source",
		},
		[]string{"source"}, // "url", "data_uri", "placeholder"
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

// RecordRecommend records one recommendation query
func RecordRecommend(outcome string, candidates int, duration time.Duration) {
	RecommendTotal.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
	if candidates >= 0 {
		RecommendCandidates.Observe(float64(candidates))
	}
}

// RecordCatalogLoad records a catalog load and, on success, the new snapshot size
func RecordCatalogLoad(result string, products, vocabulary, warnings int) {
	CatalogLoads.WithLabelValues(result).Inc()
	if result != "success" {
		return
	}
	CatalogProducts.Set(float64(products))
	CatalogVocabulary.Set(float64(vocabulary))
	CatalogCoercionWarnings.Set(float64(warnings))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
