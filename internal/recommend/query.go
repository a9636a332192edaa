package recommend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Unspecified is the brand/sub-category preference meaning "no constraint".
// An empty preference means the same.
const Unspecified = "tidak spesifik"

// DefaultTopK is used when a query asks for K <= 0 results.
const DefaultTopK = 10

// Weights are the non-negative multipliers of each scoring signal. They do not
// need to sum to 1; scores are only compared with each other.
type Weights struct {
	Content     float64 `json:"w_content" yaml:"w_content" validate:"gte=0"`
	Rating      float64 `json:"w_rating" yaml:"w_rating" validate:"gte=0"`
	Skin        float64 `json:"w_skin" yaml:"w_skin" validate:"gte=0"`
	Brand       float64 `json:"w_brand" yaml:"w_brand" validate:"gte=0"`
	SubCategory float64 `json:"w_sub" yaml:"w_sub" validate:"gte=0"`
	Claim       float64 `json:"w_claim" yaml:"w_claim" validate:"gte=0"`
	Active      float64 `json:"w_active" yaml:"w_active" validate:"gte=0"`
	Value       float64 `json:"w_value" yaml:"w_value" validate:"gte=0"`
	Cheap       float64 `json:"w_cheap" yaml:"w_cheap" validate:"gte=0"`
}

// DefaultWeights favours text relevance and rating.
func DefaultWeights() Weights {
	return Weights{
		Content:     0.40,
		Rating:      0.20,
		Skin:        0.10,
		Brand:       0.05,
		SubCategory: 0.05,
		Claim:       0.07,
		Active:      0.08,
		Value:       0.05,
		Cheap:       0.00,
	}
}

// Penalties are subtracted from the weighted sum.
type Penalties struct {
	// Avoid is applied once when a product lists any avoided ingredient.
	Avoid float64 `json:"penalty_avoid" yaml:"penalty_avoid" validate:"gte=0"`
	// ComedoPerPoint is applied per comedogenic point above ComedoThreshold,
	// for acne-prone queries only.
	ComedoPerPoint  float64 `json:"penalty_komedo_per_point" yaml:"penalty_komedo_per_point" validate:"gte=0"`
	ComedoThreshold float64 `json:"komedo_threshold_for_acne" yaml:"komedo_threshold_for_acne" validate:"gte=0"`
}

func DefaultPenalties() Penalties {
	return Penalties{
		Avoid:           0.20,
		ComedoPerPoint:  0.02,
		ComedoThreshold: 2.0,
	}
}

// PriceRange is an inclusive price bound in whole currency units.
type PriceRange struct {
	Low  int64 `json:"low" validate:"gte=0"`
	High int64 `json:"high" validate:"gtefield=Low"`
}

// Query is one recommendation request.
type Query struct {
	SkinType    string `json:"skin_type"`
	Interest    string `json:"interest,omitempty"`
	Brand       string `json:"brand,omitempty"`
	SubCategory string `json:"sub_category,omitempty"`

	MinRating  float64     `json:"min_rating" validate:"gte=0,lte=5"`
	PriceRange *PriceRange `json:"price_range,omitempty"`

	AlcoholFree    bool `json:"alcohol_free"`
	FragranceFree  bool `json:"fragrance_free"`
	MalasseziaSafe bool `json:"malassezia_safe"`
	OnlySkinMatch  bool `json:"only_skin_match"`

	WantedActives []string `json:"wanted_actives,omitempty"`
	AvoidActives  []string `json:"avoid_actives,omitempty"`
	WantedClaims  []string `json:"wanted_claims,omitempty"`

	Weights   Weights   `json:"weights"`
	Penalties Penalties `json:"penalties"`
	TopK      int       `json:"top_k" validate:"gte=0"`
}

// NewQuery returns a query for skinType with default weights, penalties and K.
func NewQuery(skinType string) Query {
	return Query{
		SkinType:  skinType,
		Weights:   DefaultWeights(),
		Penalties: DefaultPenalties(),
		TopK:      DefaultTopK,
	}
}

// Limit is the effective result count.
func (q Query) Limit() int {
	if q.TopK <= 0 {
		return DefaultTopK
	}
	return q.TopK
}

// ValidationError lists every field of a query that failed validation.
type ValidationError struct {
	Fields []string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s", strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

var validate = validator.New()

// Validate checks that weights, penalties, rating bounds, price range and K
// are usable. Recommend itself never validates.
func (q Query) Validate() error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate query: %w", err)
	}
	verr := &ValidationError{err: err}
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		verr.Fields = append(verr.Fields, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), rule))
	}
	return verr
}

func isSpecified(pref string) bool {
	p := strings.TrimSpace(pref)
	return p != "" && !strings.EqualFold(p, Unspecified)
}

// normalizeTokens lowercases and trims tokens, dropping empties and duplicates.
func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
