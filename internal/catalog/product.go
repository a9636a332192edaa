package catalog

// Product is one normalized catalog row. Derived fields are computed once in
// Normalize and never change afterwards.
type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"nama_produk"`
	Brand          string  `json:"brand"`
	SubCategory    string  `json:"sub_kategori"`
	SkinTypes      string  `json:"jenis_kulit_kompatibel"`
	Rating         float64 `json:"rating"`
	Price          int64   `json:"harga_idr"`
	VolumeML       float64 `json:"size_ml"`
	Actives        string  `json:"bahan_aktif"`
	Claims         string  `json:"klaim"`
	AlcoholFree    bool    `json:"non_alkohol"`
	FragranceFree  bool    `json:"non_fragrance"`
	MalasseziaSafe bool    `json:"aman_malassezia"`
	Comedogenic    float64 `json:"komedogenik_score"`
	Description    string  `json:"deskripsi"`
	ImageURL       string  `json:"image_url,omitempty"`

	corpus       string
	activeTokens []string
	activeSet    map[string]struct{}
	claimTokens  []string
	claimSet     map[string]struct{}
	skinTokens   []string
}

// Corpus returns the lowercase text indexed for similarity search.
func (p *Product) Corpus() string {
	return p.corpus
}

// ActiveTokens returns the parsed active-ingredient tokens.
func (p *Product) ActiveTokens() []string {
	return append([]string(nil), p.activeTokens...)
}

// ClaimTokens returns the parsed claim tokens.
func (p *Product) ClaimTokens() []string {
	return append([]string(nil), p.claimTokens...)
}

// SkinTokens returns the canonical skin-type tokens.
func (p *Product) SkinTokens() []string {
	return append([]string(nil), p.skinTokens...)
}

// HasActive reports whether the product lists the (lowercase) ingredient.
func (p *Product) HasActive(token string) bool {
	_, ok := p.activeSet[token]
	return ok
}

// HasClaim reports whether the product lists the (lowercase) claim.
func (p *Product) HasClaim(token string) bool {
	_, ok := p.claimSet[token]
	return ok
}

// SuitsSkin reports whether the product is compatible with a canonical skin
// token, universal products included.
func (p *Product) SuitsSkin(token string) bool {
	for _, t := range p.skinTokens {
		if t == token || t == SkinAll {
			return true
		}
	}
	return false
}

// ValuePerPrice is millilitres per currency unit. Products without a price
// or volume carry no value signal and return 0.
func (p *Product) ValuePerPrice() float64 {
	if p.Price <= 0 || p.VolumeML <= 0 {
		return 0
	}
	return p.VolumeML / float64(p.Price)
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
