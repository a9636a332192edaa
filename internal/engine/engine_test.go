package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beauty-engine/backend/internal/catalog"
	"github.com/beauty-engine/backend/internal/config"
	"github.com/beauty-engine/backend/internal/engine"
	"github.com/beauty-engine/backend/internal/export"
	"github.com/beauty-engine/backend/internal/images"
	"github.com/beauty-engine/backend/internal/recommend"
)

const productsCSV = `nama_produk,brand,sub_kategori,jenis_kulit_kompatibel,rating,harga_idr,size_ml,bahan_aktif,klaim,non_alkohol,komedogenik_score,image_url
Hydrating Toner,Glowlab,Toner,kering,4.5,100000,150,hyaluronic acid,hydrating,yes,0,https://cdn.example.com/toner.jpg
Acne Serum,Clearskin,Serum,berjerawat,4.8,125000,30,niacinamide|zinc pca,oil control,yes,1,
Rich Cream,Glowlab,Moisturizer,kering,4.0,150000,50,shea butter,nourishing,no,4,https://shopee.co.id/x.jpg
`

// Mocks

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(report *export.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) Get(id string) (*export.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Report), args.Error(1)
}

func (m *MockStorage) List() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newEngine(t *testing.T, store *MockStorage) *engine.Engine {
	t.Helper()
	cfg := config.Load()
	logger := logrus.New().WithField("test", "engine")
	resolver := images.NewResolver(images.NewMap(), nil, logger)
	if store == nil {
		return engine.NewEngine(cfg, logger, nil, resolver)
	}
	return engine.NewEngine(cfg, logger, store, resolver)
}

func TestNewEngine(t *testing.T) {
	eng := newEngine(t, nil)

	assert.NotNil(t, eng)
	assert.Nil(t, eng.Snapshot())
	assert.False(t, eng.Stats().StartTime.IsZero())
}

func TestRecommend_BeforeLoad(t *testing.T) {
	eng := newEngine(t, nil)

	_, err := eng.Recommend(context.Background(), recommend.NewQuery("kering"))
	assert.ErrorIs(t, err, engine.ErrNoSnapshot)

	_, err = eng.Search("toner", 5)
	assert.ErrorIs(t, err, engine.ErrNoSnapshot)

	_, err = eng.Summary()
	assert.ErrorIs(t, err, engine.ErrNoSnapshot)
}

func TestLoadCatalog_SwapsSnapshot(t *testing.T) {
	eng := newEngine(t, nil)

	first, err := eng.LoadCatalog(strings.NewReader(productsCSV), "first.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, 3, first.Catalog.Len())
	assert.Equal(t, 3, first.Index.Len())
	assert.Same(t, first, eng.Snapshot())

	second, err := eng.LoadCatalog(strings.NewReader(productsCSV), "second.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)
	assert.Same(t, second, eng.Snapshot())
	assert.Equal(t, "first.csv", first.Source)
	assert.Equal(t, 3, first.Catalog.Len())
	assert.Equal(t, int64(2), eng.Stats().Reloads)
}

func TestLoadCatalog_SchemaErrorKeepsSnapshot(t *testing.T) {
	eng := newEngine(t, nil)

	snap, err := eng.LoadCatalog(strings.NewReader(productsCSV), "good.csv")
	require.NoError(t, err)

	_, err = eng.LoadCatalog(strings.NewReader("nama_produk,brand\nA,B\n"), "bad.csv")
	require.Error(t, err)

	var schemaErr *catalog.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Missing, catalog.ColRating)
	assert.Same(t, snap, eng.Snapshot())
	assert.NotEmpty(t, eng.Stats().LastError)
}

func TestReload_FromConfiguredPath(t *testing.T) {
	eng := newEngine(t, nil)

	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(productsCSV), 0644))
	eng.Config.Catalog.Path = path

	snap, err := eng.Reload()
	require.NoError(t, err)
	assert.Equal(t, path, snap.Source)

	eng.Config.Catalog.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, err = eng.Reload()
	assert.Error(t, err)
	assert.Same(t, snap, eng.Snapshot())
}

func TestRecommend(t *testing.T) {
	store := new(MockStorage)
	store.On("Save", mock.AnythingOfType("*export.Report")).Return(nil)
	eng := newEngine(t, store)

	_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
	require.NoError(t, err)

	q := eng.DefaultQuery("kering")
	q.AlcoholFree = true
	report, err := eng.Recommend(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, "products.csv", report.Source)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "Hydrating Toner", report.Items[0].Product.Name)
	assert.Equal(t, "https://cdn.example.com/toner.jpg", report.Items[0].ImageURL)
	assert.Equal(t, images.Placeholder, report.Items[1].ImageURL)

	store.AssertCalled(t, "Save", report)
	assert.Equal(t, int64(1), eng.Stats().Queries)
}

func TestRecommend_EmptyResultIsNotAnError(t *testing.T) {
	store := new(MockStorage)
	store.On("Save", mock.Anything).Return(nil)
	eng := newEngine(t, store)

	_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
	require.NoError(t, err)

	q := eng.DefaultQuery("kering")
	q.MinRating = 5
	report, err := eng.Recommend(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Equal(t, int64(1), eng.Stats().EmptyResults)
}

func TestRecommend_InvalidQuery(t *testing.T) {
	store := new(MockStorage)
	eng := newEngine(t, store)

	_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
	require.NoError(t, err)

	q := eng.DefaultQuery("kering")
	q.Weights.Rating = -1
	_, err = eng.Recommend(context.Background(), q)

	var verr *recommend.ValidationError
	assert.True(t, errors.As(err, &verr))
	store.AssertNotCalled(t, "Save", mock.Anything)
}

func TestRecommend_StorageFailureStillReturnsReport(t *testing.T) {
	store := new(MockStorage)
	store.On("Save", mock.Anything).Return(errors.New("disk full"))
	eng := newEngine(t, store)

	_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
	require.NoError(t, err)

	report, err := eng.Recommend(context.Background(), eng.DefaultQuery("kering"))
	require.NoError(t, err)
	assert.Len(t, report.Items, 3)
}

func TestExport(t *testing.T) {
	store := new(MockStorage)
	eng := newEngine(t, store)

	archived := export.NewReport(recommend.NewQuery("kering"), nil)
	store.On("Get", archived.ID).Return(archived, nil)

	got, err := eng.Export(archived.ID)
	require.NoError(t, err)
	assert.Equal(t, archived.ID, got.ID)
	store.AssertExpectations(t)
}

func TestSearchSummaryAndAudit(t *testing.T) {
	eng := newEngine(t, nil)
	_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
	require.NoError(t, err)

	hits, err := eng.Search("niacinamide serum", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Acne Serum", hits[0].Product.Name)

	summary, err := eng.Summary()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Products)

	issues, err := eng.ImageAudit()
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "missing", issues[0].Reason)
	assert.Equal(t, "banned host", issues[1].Reason)
}

func TestRecommend_ConcurrentWithReload(t *testing.T) {
	eng := newEngine(t, nil)
	_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				report, err := eng.Recommend(context.Background(), eng.DefaultQuery("kering"))
				assert.NoError(t, err)
				assert.Len(t, report.Items, 3)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := eng.LoadCatalog(strings.NewReader(productsCSV), "products.csv")
		assert.NoError(t, err)
	}
	wg.Wait()
}
