package mapping

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// Schema is the on-disk form of a registry
type Schema struct {
	Mappings []FieldMapping `yaml:"mappings"`
}

// LoadFile reads a YAML schema file and builds a registry from it
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigLoadFailed, err, "failed to read mapping file").
			WithField("path", path)
	}
	return Parse(data)
}

// Parse builds a registry from YAML schema bytes
func Parse(data []byte) (*Registry, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, errors.Wrap(errors.ErrMappingInvalid, err, "failed to parse mapping schema")
	}
	if len(schema.Mappings) == 0 {
		return nil, errors.New(errors.ErrMappingInvalid, "mapping schema declares no mappings")
	}
	return NewRegistry(schema.Mappings...)
}

// DefaultMappings is the schedule table the adapter ships with
func DefaultMappings() []FieldMapping {
	return []FieldMapping{
		{Source: "row_id", Destination: "new_bqscheduleid", Type: GUID, PrimaryKey: true},
		{Source: "bq_name", Destination: "new_name", Type: String},
		{Source: "attendance", Destination: "new_attendance", Type: Integer},
		{Source: "awayTeamId", Destination: "new_awayteamid", Type: String},
		{Source: "awayTeamName", Destination: "new_awayteamname", Type: String},
		{Source: "created", Destination: "new_created", Type: DateTime},
		{Source: "dayNight", Destination: "new_daynight", Type: String},
		{Source: "duration", Destination: "new_gameduration", Type: String},
		{Source: "duration_minutes", Destination: "new_gamedurationminutes", Type: Integer},
		{Source: "gameId", Destination: "new_gameid", Type: String},
		{Source: "gameNumber", Destination: "new_gamenumber", Type: Integer},
		{Source: "startTime", Destination: "new_gamestarttime", Type: DateTime},
		{Source: "status", Destination: "new_gamestatus", Type: String},
		{Source: "homeTeamId", Destination: "new_hometeamid", Type: String},
		{Source: "homeTeamName", Destination: "new_hometeamname", Type: String},
		{Source: "seasonId", Destination: "new_seasonid", Type: String},
		{Source: "type", Destination: "new_type", Type: String},
		{Source: "year", Destination: "new_year", Type: Integer},
	}
}

// DefaultRegistry returns a registry over DefaultMappings
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultMappings()...)
	if err != nil {
		panic(err)
	}
	return r
}
