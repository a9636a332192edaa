package api_test

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beauty-engine/backend/internal/api"
	"github.com/beauty-engine/backend/internal/catalog"
	"github.com/beauty-engine/backend/internal/config"
	"github.com/beauty-engine/backend/internal/engine"
	"github.com/beauty-engine/backend/internal/export"
	"github.com/beauty-engine/backend/internal/images"
	"github.com/beauty-engine/backend/internal/storage"
)

const productsCSV = `nama_produk,brand,sub_kategori,jenis_kulit_kompatibel,rating,harga_idr,size_ml,bahan_aktif,klaim,non_alkohol,komedogenik_score,image_url
Hydrating Toner,Glowlab,Toner,kering,4.5,100000,150,hyaluronic acid,hydrating,yes,0,https://cdn.example.com/toner.jpg
Acne Serum,Clearskin,Serum,berjerawat,4.8,125000,30,niacinamide|zinc pca,oil control,yes,1,
Rich Cream,Glowlab,Moisturizer,kering,4.0,150000,50,shea butter,nourishing,no,4,
`

func setupServer(t *testing.T, load bool) *api.Server {
	t.Helper()
	cfg := config.Load()
	cfg.Server.RateLimit = 0

	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(productsCSV), 0644))
	cfg.Catalog.Path = path

	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	logger := logrus.New().WithField("test", "api")
	eng := engine.NewEngine(cfg, logger, store, images.NewResolver(images.NewMap(), nil, logger))
	if load {
		_, err := eng.Reload()
		require.NoError(t, err)
	}
	return api.NewServer(eng, logger)
}

func doRequest(server *api.Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

func TestHandleRecommend(t *testing.T) {
	server := setupServer(t, true)

	body := []byte(`{"skin_type":"kering","alcohol_free":true}`)
	w := doRequest(server, http.MethodPost, "/api/v1/recommend", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ExportID)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Hydrating Toner", resp.Results[0].Product.Name)
	assert.Equal(t, "https://cdn.example.com/toner.jpg", resp.Results[0].ImageURL)
	assert.Equal(t, images.Placeholder, resp.Results[1].ImageURL)
	assert.Empty(t, resp.Message)
}

func TestHandleRecommend_NoMatches(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodPost, "/api/v1/recommend", []byte(`{"skin_type":"kering","min_rating":5}`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotEmpty(t, resp.Message)
	assert.NotNil(t, resp.Results)
}

func TestHandleRecommend_BadRequests(t *testing.T) {
	server := setupServer(t, true)

	tests := []struct {
		name string
		body string
	}{
		{"Invalid JSON", `{"skin_type":`},
		{"Negative weight", `{"skin_type":"kering","weights":{"w_rating":-1}}`},
		{"Rating above five", `{"min_rating":6}`},
		{"Inverted price range", `{"price_range":{"low":200000,"high":100}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(server, http.MethodPost, "/api/v1/recommend", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleRecommend_NoCatalog(t *testing.T) {
	server := setupServer(t, false)

	w := doRequest(server, http.MethodPost, "/api/v1/recommend", []byte(`{"skin_type":"kering"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleExport(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodPost, "/api/v1/recommend", []byte(`{"skin_type":"kering"}`))
	require.Equal(t, http.StatusOK, w.Code)
	var rec api.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))

	w = doRequest(server, http.MethodGet, "/api/v1/exports/"+rec.ExportID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, rec.Count+1)
	assert.Equal(t, export.Columns(false), rows[0])

	w = doRequest(server, http.MethodGet, "/api/v1/exports/"+rec.ExportID+"?breakdown=true", nil)
	rows, err = csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, export.Columns(true), rows[0])

	w = doRequest(server, http.MethodGet, "/api/v1/exports/"+rec.ExportID+"?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report export.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, rec.ExportID, report.ID)
	assert.Len(t, report.Items, rec.Count)
}

func TestHandleExport_NotFound(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/v1/exports/6f1c7d1e-5f0e-4a43-9d55-3c9a0f1b2c3d", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(server, http.MethodGet, "/api/v1/exports/..%2Fsecret", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCatalog(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary catalog.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Products)
	assert.Equal(t, []string{"Clearskin", "Glowlab"}, summary.Brands)
}

func TestHandleImageAudit(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/v1/catalog/images", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count  int            `json:"count"`
		Issues []images.Issue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestHandleReload(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodPost, "/api/v1/catalog/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ReloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Version)
	assert.Equal(t, 3, resp.Products)
}

func TestHandleSearch(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/v1/search?q=niacinamide", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "niacinamide", resp.Query)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Acne Serum", resp.Results[0].Product.Name)
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(server, http.MethodGet, "/api/v1/search?q=serum&limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSearch_LimitIsCapped(t *testing.T) {
	server := setupServer(t, false)

	var b strings.Builder
	b.WriteString("nama_produk,brand,sub_kategori,jenis_kulit_kompatibel,rating,harga_idr,size_ml,bahan_aktif,klaim\n")
	for i := 0; i < api.MaxSearchLimit+50; i++ {
		fmt.Fprintf(&b, "Serum %d,Glowlab,Serum,kering,4,%d,30,niacinamide,brightening\n", i, 100000+i)
	}
	path := filepath.Join(t.TempDir(), "large.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	server.Engine.Config.Catalog.Path = path
	_, err := server.Engine.Reload()
	require.NoError(t, err)

	w := doRequest(server, http.MethodGet, "/api/v1/search?q=niacinamide+serum&limit=1000000000", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, api.MaxSearchLimit)
}

func TestHandleStatus(t *testing.T) {
	server := setupServer(t, false)

	w := doRequest(server, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Loaded)
	assert.Equal(t, int64(0), resp.Queries)

	_, err := server.Engine.Reload()
	require.NoError(t, err)

	w = doRequest(server, http.MethodGet, "/api/v1/status", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Loaded)
	assert.Equal(t, 3, resp.Products)
	assert.Equal(t, int64(1), resp.Version)
}

func TestMethodNotAllowed(t *testing.T) {
	server := setupServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/v1/recommend", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupServer(t, true)

	doRequest(server, http.MethodGet, "/api/v1/status", nil)
	w := doRequest(server, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_requests_total")
}
