package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// LoadTenants reads the tenant tables from a JSON file and resolves each
// tenant's API key from the environment (MAGICLINE_API_KEY_<CODE>).
// Loaded once at startup; the values travel by parameter from here on.
func LoadTenants(path string) ([]entity.TenantConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file %s: %w", path, err)
	}

	var tenants []entity.TenantConfig
	if err := json.Unmarshal(raw, &tenants); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file %s: %w", path, err)
	}

	for i := range tenants {
		envKey := "MAGICLINE_API_KEY_" + strings.ToUpper(tenants[i].Code)
		tenants[i].APIKey = os.Getenv(envKey)

		if err := tenants[i].Validate(); err != nil {
			return nil, fmt.Errorf("tenant %q: %w", tenants[i].Code, err)
		}
		if tenants[i].APIKey == "" {
			return nil, fmt.Errorf("tenant %q: %s is not set", tenants[i].Code, envKey)
		}
	}

	if len(tenants) == 0 {
		return nil, fmt.Errorf("tenants file %s declares no tenants", path)
	}

	return tenants, nil
}

// IntFromEnv reads an integer setting with a fallback.
func IntFromEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
