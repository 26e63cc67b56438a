package testutil

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/config"
)

// The hard-coded table the adapter was first deployed against. Only tests
// use these constants; deployments resolve their table from settings.
const (
	FixtureProjectID = "myproject-469115"
	FixtureDatasetID = "my_baseball_data"
	FixtureTableID   = "schedule"
)

// FixtureSettings returns the fixture table as a raw settings record
func FixtureSettings(baseURL, tokenURL string) map[string]string {
	settings := map[string]string{
		config.KeyProjectID:          FixtureProjectID,
		config.KeyDatasetID:          FixtureDatasetID,
		config.KeyTableID:            FixtureTableID,
		config.KeyServiceAccountJSON: ServiceAccountJSON(),
	}
	if baseURL != "" {
		settings[config.KeyBaseURL] = baseURL
	}
	if tokenURL != "" {
		settings[config.KeyTokenURL] = tokenURL
	}
	return settings
}

// FixtureConfiguration resolves the fixture table against the given endpoints
func FixtureConfiguration(baseURL, tokenURL string) *config.Configuration {
	cfg, err := config.ResolveDefault(config.MapResolver(FixtureSettings(baseURL, tokenURL)))
	if err != nil {
		panic(err)
	}
	return cfg
}

// WriteConfigFile writes an application config file into dir that points
// the fixture table at the given endpoints, and returns its path.
func WriteConfigFile(dir, baseURL, tokenURL string) (string, error) {
	doc := map[string]any{
		"log":      map[string]string{"level": "debug", "format": "console"},
		"bigquery": FixtureSettings(baseURL, tokenURL),
		"http":     map[string]string{"timeout": "5s"},
		"health":   map[string]any{"enabled": true, "address": "127.0.0.1:0"},
		"metrics":  map[string]any{"enabled": true, "namespace": "bqvt_test"},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
