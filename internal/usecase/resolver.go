package usecase

import (
	"strings"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// Resolver maps city labels to tenants and tenant-local facility ids back
// to canonical city names. Pure lookup over the tenant config; a miss is
// reported as a sentinel error so callers can record the candidate as
// unresolved instead of aborting the batch.
type Resolver struct {
	tenants      map[string]entity.TenantConfig
	cityToTenant map[string]string            // canonical city -> tenant code
	facilities   map[string]map[string]string // tenant code -> facility id -> city
	aliases      map[string]string            // spelling variant -> canonical city
}

func NewResolver(tenants []entity.TenantConfig) *Resolver {
	r := &Resolver{
		tenants:      make(map[string]entity.TenantConfig),
		cityToTenant: make(map[string]string),
		facilities:   make(map[string]map[string]string),
		aliases:      make(map[string]string),
	}

	for _, t := range tenants {
		r.tenants[t.Code] = t

		for _, city := range t.Cities {
			r.cityToTenant[foldCity(city)] = t.Code
		}

		r.facilities[t.Code] = make(map[string]string)
		for facilityID, city := range t.Facilities {
			r.facilities[t.Code][facilityID] = foldCity(city)
		}

		for variant, canonical := range t.Aliases {
			r.aliases[foldCity(variant)] = foldCity(canonical)
		}
	}

	return r
}

// Normalize folds case, whitespace and known spelling variants of a city
// label to one canonical form.
func (r *Resolver) Normalize(cityLabel string) string {
	folded := foldCity(cityLabel)
	if canonical, ok := r.aliases[folded]; ok {
		return canonical
	}
	return folded
}

// TenantFor resolves the tenant serving a city label.
func (r *Resolver) TenantFor(cityLabel string) (string, error) {
	code, ok := r.cityToTenant[r.Normalize(cityLabel)]
	if !ok {
		return "", entity.ErrUnknownCity
	}
	return code, nil
}

// CityFor resolves a tenant-local facility id to its canonical city name.
func (r *Resolver) CityFor(tenantCode, facilityID string) (string, error) {
	facilities, ok := r.facilities[tenantCode]
	if !ok {
		return "", entity.ErrUnknownFacility
	}
	city, ok := facilities[facilityID]
	if !ok {
		return "", entity.ErrUnknownFacility
	}
	return city, nil
}

// Tenant returns the config for a tenant code.
func (r *Resolver) Tenant(code string) (entity.TenantConfig, bool) {
	t, ok := r.tenants[code]
	return t, ok
}

// Tenants lists every configured tenant code.
func (r *Resolver) Tenants() []string {
	codes := make([]string, 0, len(r.tenants))
	for code := range r.tenants {
		codes = append(codes, code)
	}
	return codes
}

func foldCity(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
