// Package images resolves product images from an image map and dataset URLs,
// optionally embedding them as data URIs. It sits outside the scoring core.
package images

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/beauty-engine/backend/internal/catalog"
)

// Placeholder is a 1x1 PNG used when no image can be resolved.
const Placeholder = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMCAO1aG+QAAAAASUVORK5CYII="

// bannedHosts are marketplaces whose image links do not render when embedded.
var bannedHosts = []string{
	"tokopedia.com",
	"images.tokopedia.net",
	"shopee.co.id",
	"cf.shopee.co.id",
	"susercontent.com",
}

// IsBanned reports whether rawURL points at a banned marketplace host.
func IsBanned(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range bannedHosts {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

// Lookup maps a product to an image URL.
type Lookup interface {
	Lookup(brand, category, name string) (string, bool)
}

type mapEntry struct {
	brand, category, name string
	url                   string
}

// Map is a read-only image map keyed by (brand, sub-category, name).
type Map struct {
	entries []mapEntry
	exact   map[[3]string]string
}

var mapColumns = []string{"brand", "sub_kategori", "nama_produk", "url"}

// LoadMap reads an image map CSV with brand, sub_kategori, nama_produk and
// url columns. Rows without a URL are skipped; a later duplicate key wins.
func LoadMap(r io.Reader) (*Map, error) {
	table, err := catalog.ReadCSV(r)
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int)
	for i, h := range table.Header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	var missing []string
	for _, c := range mapColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &catalog.SchemaError{Missing: missing}
	}

	m := &Map{exact: make(map[[3]string]string)}
	for _, row := range table.Rows {
		cell := func(col string) string {
			if i := cols[col]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		u := cell("url")
		if u == "" {
			continue
		}
		m.add(cell("brand"), cell("sub_kategori"), cell("nama_produk"), u)
	}
	return m, nil
}

// LoadMapFile loads the image map at path. A missing file yields an empty map.
func LoadMapFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewMap(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open image map: %w", err)
	}
	defer f.Close()
	return LoadMap(f)
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{exact: make(map[[3]string]string)}
}

func (m *Map) add(brand, category, name, u string) {
	e := mapEntry{brand: norm(brand), category: norm(category), name: norm(name), url: u}
	m.entries = append(m.entries, e)
	m.exact[[3]string{e.brand, e.category, e.name}] = u
}

// Len returns the number of map rows.
func (m *Map) Len() int {
	return len(m.entries)
}

// Lookup tries (brand, category, name), then (brand, any, name), then
// (brand, category, any). Banned URLs never match.
func (m *Map) Lookup(brand, category, name string) (string, bool) {
	b, c, n := norm(brand), norm(category), norm(name)

	if u, ok := m.exact[[3]string{b, c, n}]; ok && !IsBanned(u) {
		return u, true
	}
	for _, e := range m.entries {
		if e.brand == b && e.name == n && !IsBanned(e.url) {
			return e.url, true
		}
	}
	for _, e := range m.entries {
		if e.brand == b && e.category == c && !IsBanned(e.url) {
			return e.url, true
		}
	}
	return "", false
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
