package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// Setting names recognised by the resolver
const (
	KeyProjectID          = "bqProjectId"
	KeyDatasetID          = "bqDatasetId"
	KeyTableID            = "bqTableId"
	KeyServiceAccountJSON = "bqServiceAccountJson"
	KeyBaseURL            = "bqBaseUrl"
	KeyTokenURL           = "googleTokenUrl"
)

// Defaults for the optional settings
const (
	DefaultBaseURL  = "https://bigquery.googleapis.com/bigquery/v2"
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
)

// Configuration is the resolved connection configuration for one remote
// table. It is immutable once returned by a Resolver.
type Configuration struct {
	ProjectID          string `validate:"required"`
	DatasetID          string `validate:"required"`
	TableID            string `validate:"required"`
	ServiceAccountJSON string `validate:"required"`
	BaseURL            string `validate:"required,url"`
	TokenURL           string `validate:"required,url"`
}

// RequiredKeys lists the settings every deployment must supply
func RequiredKeys() []string {
	return []string{KeyProjectID, KeyDatasetID, KeyTableID, KeyServiceAccountJSON}
}

// OptionalKeys lists the optional settings with their defaults
func OptionalKeys() map[string]string {
	return map[string]string{
		KeyBaseURL:  DefaultBaseURL,
		KeyTokenURL: DefaultTokenURL,
	}
}

// Resolver produces a Configuration from some settings source
type Resolver interface {
	Resolve(required []string, optional map[string]string) (*Configuration, error)
}

// ResolveDefault resolves the standard required and optional settings
func ResolveDefault(r Resolver) (*Configuration, error) {
	return r.Resolve(RequiredKeys(), OptionalKeys())
}

// LookupResolver resolves settings one key at a time through a function,
// typically a call into the host's settings store.
type LookupResolver func(key string) (string, bool)

// Resolve implements Resolver
func (f LookupResolver) Resolve(required []string, optional map[string]string) (*Configuration, error) {
	values := make(map[string]string, len(required)+len(optional))
	var missing []string
	var result *multierror.Error

	for _, key := range required {
		value, ok := f(key)
		if !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, key)
			result = multierror.Append(result, fmt.Errorf("required setting %q is not set", key))
			continue
		}
		values[key] = value
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(
			errors.ErrConfigMissingField,
			err,
			"missing required configuration",
		).WithField("missing", missing)
	}

	for key, def := range optional {
		value, ok := f(key)
		if !ok || strings.TrimSpace(value) == "" {
			value = def
		}
		values[key] = value
	}

	return newConfiguration(values)
}

// MapResolver resolves settings from a record fetched up front
type MapResolver map[string]string

// Resolve implements Resolver
func (m MapResolver) Resolve(required []string, optional map[string]string) (*Configuration, error) {
	return LookupResolver(func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}).Resolve(required, optional)
}

// envNames maps setting names to their environment variables
var envNames = map[string]string{
	KeyProjectID:          EnvPrefix + "PROJECT_ID",
	KeyDatasetID:          EnvPrefix + "DATASET_ID",
	KeyTableID:            EnvPrefix + "TABLE_ID",
	KeyServiceAccountJSON: EnvPrefix + "SERVICE_ACCOUNT_JSON",
	KeyBaseURL:            EnvPrefix + "BASE_URL",
	KeyTokenURL:           EnvPrefix + "TOKEN_URL",
}

// ViperResolver resolves settings through viper, so environment variables
// and bound flags override values seeded from the config file.
type ViperResolver struct {
	v *viper.Viper
}

// NewViperResolver binds the BQVT_* environment variables on v and seeds
// fileValues as defaults.
func NewViperResolver(v *viper.Viper, fileValues map[string]string) (*ViperResolver, error) {
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrap(errors.ErrConfigLoadFailed, err, "failed to bind environment variable").
				WithField("env", env)
		}
	}
	for key, value := range fileValues {
		v.SetDefault(key, value)
	}
	return &ViperResolver{v: v}, nil
}

// Resolve implements Resolver
func (r *ViperResolver) Resolve(required []string, optional map[string]string) (*Configuration, error) {
	return LookupResolver(func(key string) (string, bool) {
		if !r.v.IsSet(key) {
			return "", false
		}
		return r.v.GetString(key), true
	}).Resolve(required, optional)
}

func newConfiguration(values map[string]string) (*Configuration, error) {
	cfg := &Configuration{
		ProjectID:          strings.TrimSpace(values[KeyProjectID]),
		DatasetID:          strings.TrimSpace(values[KeyDatasetID]),
		TableID:            strings.TrimSpace(values[KeyTableID]),
		ServiceAccountJSON: values[KeyServiceAccountJSON],
		BaseURL:            strings.TrimRight(strings.TrimSpace(values[KeyBaseURL]), "/"),
		TokenURL:           strings.TrimSpace(values[KeyTokenURL]),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err, errors.ErrConfigInvalid)
	}
	return cfg, nil
}
