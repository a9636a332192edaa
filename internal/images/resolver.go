package images

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/beauty-engine/backend/internal/catalog"
)

// Resolver picks the image for a product: the dataset's own URL when usable,
// then the lookup, then Placeholder. With embedding enabled the chosen URL is
// downloaded and returned as a data URI.
type Resolver struct {
	lookup  Lookup
	fetcher *Fetcher
	logger  *logrus.Entry
}

// NewResolver returns a resolver. A nil lookup matches nothing; a nil fetcher
// disables embedding.
func NewResolver(lookup Lookup, fetcher *Fetcher, logger *logrus.Entry) *Resolver {
	if lookup == nil {
		lookup = NewMap()
	}
	if logger == nil {
		logger = logrus.WithField("component", "image_resolver")
	}
	return &Resolver{lookup: lookup, fetcher: fetcher, logger: logger}
}

// URL returns the image URL for p without fetching it.
func (r *Resolver) URL(p catalog.Product) (string, bool) {
	if u := strings.TrimSpace(p.ImageURL); u != "" && !IsBanned(u) {
		return u, true
	}
	return r.lookup.Lookup(p.Brand, p.SubCategory, p.Name)
}

// Resolve returns an image reference for p that is always renderable.
func (r *Resolver) Resolve(ctx context.Context, p catalog.Product) string {
	u, ok := r.URL(p)
	if !ok {
		return Placeholder
	}
	if r.fetcher == nil {
		return u
	}

	dataURI, err := r.fetcher.DataURI(ctx, u)
	if err != nil {
		r.logger.WithError(err).WithField("url", u).Debug("Falling back to placeholder image")
		return Placeholder
	}
	return dataURI
}

// Issue is a product whose image is missing or banned.
type Issue struct {
	Row         int    `json:"row"`
	Brand       string `json:"brand"`
	SubCategory string `json:"sub_kategori"`
	Name        string `json:"nama_produk"`
	URL         string `json:"url,omitempty"`
	Reason      string `json:"reason"`
}

// Audit lists catalog products with no usable image. A banned dataset URL is
// reported only when the lookup cannot replace it.
func (r *Resolver) Audit(cat *catalog.Catalog) []Issue {
	var issues []Issue
	for i, p := range cat.Products() {
		if _, ok := r.URL(p); ok {
			continue
		}
		issue := Issue{Row: i, Brand: p.Brand, SubCategory: p.SubCategory, Name: p.Name, Reason: "missing"}
		if u := strings.TrimSpace(p.ImageURL); u != "" && IsBanned(u) {
			issue.URL = u
			issue.Reason = "banned host"
		}
		issues = append(issues, issue)
	}
	return issues
}

// BreakerState reports the fetcher's circuit breaker state, or "" when
// images are not embedded.
func (r *Resolver) BreakerState() string {
	if r.fetcher == nil {
		return ""
	}
	return r.fetcher.BreakerState()
}
