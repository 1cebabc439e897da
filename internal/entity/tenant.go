package entity

import "errors"

var (
	ErrUnknownCity     = errors.New("city is not mapped to any tenant")
	ErrUnknownFacility = errors.New("facility id is not mapped to a city")
)

// TenantConfig is one country-scoped portal of the membership platform.
// Loaded once at startup and passed into constructors; there are no
// module-level credential maps.
type TenantConfig struct {
	Code        string `json:"code"`         // short tenant code, e.g. "de"
	CountryCode string `json:"country_code"` // ISO 3166-1 alpha-2
	BaseURL     string `json:"base_url"`
	APIKey      string `json:"-"`

	// Cities served by this tenant, canonical spelling.
	Cities []string `json:"cities"`
	// Facilities maps the tenant-local numeric facility id to a city.
	// Facility "1" means a different city per tenant, hence per-tenant.
	Facilities map[string]string `json:"facilities"`
	// Aliases folds known spelling variants to the canonical city name,
	// e.g. "wien" -> "vienna".
	Aliases map[string]string `json:"aliases,omitempty"`
}

func (t TenantConfig) Validate() error {
	if t.Code == "" {
		return errors.New("tenant code is required")
	}
	if t.CountryCode == "" {
		return errors.New("tenant country code is required")
	}
	if t.BaseURL == "" {
		return errors.New("tenant base url is required")
	}
	if len(t.Cities) == 0 {
		return errors.New("tenant has no cities")
	}
	return nil
}
