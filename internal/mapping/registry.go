// Package mapping pairs remote column names with host attribute names and
// the data type used to coerce values between them.
package mapping

import (
	"fmt"
	"strings"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// DataType is the logical type shared by a column and its attribute
type DataType int

const (
	String DataType = iota
	Integer
	GUID
	DateTime
)

var dataTypeNames = map[DataType]string{
	String:   "string",
	Integer:  "integer",
	GUID:     "guid",
	DateTime: "datetime",
}

// String returns the lower-case type name
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType parses a type name, ignoring case
func ParseDataType(s string) (DataType, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for t, name := range dataTypeNames {
		if name == needle {
			return t, nil
		}
	}
	return String, errors.New(errors.ErrMappingInvalid, "unknown data type").
		WithField("type", s)
}

// UnmarshalYAML lets schema files spell types by name
func (t *DataType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FieldMapping links one remote column to one host attribute
type FieldMapping struct {
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	Type        DataType `yaml:"type"`
	PrimaryKey  bool     `yaml:"primary_key"`
}

// Registry is an immutable set of field mappings. It is safe for
// concurrent reads.
type Registry struct {
	mappings []FieldMapping
	bySource map[string]int
	pk       int
}

// NewRegistry validates mappings and builds a registry. Source names must
// be unique ignoring case and at most one mapping may be the primary key.
func NewRegistry(mappings ...FieldMapping) (*Registry, error) {
	r := &Registry{
		mappings: make([]FieldMapping, 0, len(mappings)),
		bySource: make(map[string]int, len(mappings)),
		pk:       -1,
	}

	for _, m := range mappings {
		if m.Source == "" || m.Destination == "" {
			return nil, errors.New(errors.ErrMappingInvalid, "mapping requires source and destination").
				WithFields(map[string]interface{}{"source": m.Source, "destination": m.Destination})
		}

		key := strings.ToLower(m.Source)
		if _, dup := r.bySource[key]; dup {
			return nil, errors.New(errors.ErrMappingInvalid, "duplicate source column").
				WithField("source", m.Source)
		}

		if m.PrimaryKey {
			if r.pk >= 0 {
				return nil, errors.New(errors.ErrMappingInvalid, "more than one primary key").
					WithFields(map[string]interface{}{
						"first":  r.mappings[r.pk].Source,
						"second": m.Source,
					})
			}
			if m.Type != GUID {
				return nil, errors.New(errors.ErrMappingInvalid, "primary key must be of type guid").
					WithFields(map[string]interface{}{"source": m.Source, "type": m.Type.String()})
			}
			r.pk = len(r.mappings)
		}

		r.bySource[key] = len(r.mappings)
		r.mappings = append(r.mappings, m)
	}

	return r, nil
}

// LookupBySource finds the mapping for a remote column, ignoring case
func (r *Registry) LookupBySource(source string) (FieldMapping, bool) {
	i, ok := r.bySource[strings.ToLower(source)]
	if !ok {
		return FieldMapping{}, false
	}
	return r.mappings[i], true
}

// LookupByDestination returns the remote column for a host attribute,
// ignoring case.
func (r *Registry) LookupByDestination(destination string) (string, bool) {
	m, ok := r.MappingForDestination(destination)
	return m.Source, ok
}

// MappingForDestination returns the full mapping for a host attribute
func (r *Registry) MappingForDestination(destination string) (FieldMapping, bool) {
	for _, m := range r.mappings {
		if strings.EqualFold(m.Destination, destination) {
			return m, true
		}
	}
	return FieldMapping{}, false
}

// PrimaryKey returns the primary key mapping if one is declared
func (r *Registry) PrimaryKey() (FieldMapping, bool) {
	if r.pk < 0 {
		return FieldMapping{}, false
	}
	return r.mappings[r.pk], true
}

// Mappings returns a copy of all mappings in declaration order
func (r *Registry) Mappings() []FieldMapping {
	return append([]FieldMapping(nil), r.mappings...)
}

// Len returns the number of mappings
func (r *Registry) Len() int {
	return len(r.mappings)
}
