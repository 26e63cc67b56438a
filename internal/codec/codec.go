// Package codec converts values between host attributes, remote JSON rows,
// and SQL literals. Every value placed into query text passes through
// FormatForQuery and every identifier through ValidateIdentifier.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/mapping"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// DateTimeLayout is the layout of DATETIME literals and insert payloads
const DateTimeLayout = "2006-01-02 15:04:05"

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	projectIDPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	DateTimeLayout,
	"2006-01-02",
}

// ValidateIdentifier accepts names safe to splice into query text
func ValidateIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", errors.New(errors.ErrValidationFailed, "invalid identifier").
			WithField("identifier", name)
	}
	return name, nil
}

// ValidateProjectID accepts project IDs, which unlike identifiers may
// contain hyphens and start with a digit
func ValidateProjectID(project string) (string, error) {
	if !projectIDPattern.MatchString(project) {
		return "", errors.New(errors.ErrValidationFailed, "invalid project ID").
			WithField("project_id", project)
	}
	return project, nil
}

// ValidateGUID parses value as a GUID and returns its canonical form
func ValidateGUID(value, param string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", errors.Wrap(errors.ErrValidationFailed, err, "invalid GUID format").
			WithField("parameter", param)
	}
	return id.String(), nil
}

// EscapeString quotes s as a string literal. The empty string becomes NULL.
func EscapeString(s string) string {
	if s == "" {
		return "NULL"
	}
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

// FormatForQuery renders v as a literal of type t
func FormatForQuery(v any, t mapping.DataType) (string, error) {
	if v == nil {
		return "NULL", nil
	}

	switch t {
	case mapping.Integer:
		n, ok := toInt64(v)
		if !ok {
			return "", invalidValue("integer", v)
		}
		return strconv.FormatInt(n, 10), nil

	case mapping.GUID:
		id, err := ValidateGUID(stringify(v), "guid")
		if err != nil {
			return "", err
		}
		return EscapeString(id), nil

	case mapping.DateTime:
		ts, ok := toTime(v)
		if !ok {
			return "", invalidValue("datetime", v)
		}
		return "DATETIME('" + ts.Format(DateTimeLayout) + "')", nil

	default:
		return EscapeString(stringify(v)), nil
	}
}

// Coerce converts a raw value to the Go type for t. It returns nil when
// the value cannot be converted; callers skip nil values.
func Coerce(raw any, t mapping.DataType) any {
	if raw == nil {
		return nil
	}

	switch t {
	case mapping.GUID:
		if id, ok := raw.(uuid.UUID); ok {
			return id
		}
		id, err := uuid.Parse(strings.TrimSpace(stringify(raw)))
		if err != nil {
			return nil
		}
		return id

	case mapping.Integer:
		n, ok := toInt64(raw)
		if !ok {
			return nil
		}
		return n

	case mapping.DateTime:
		ts, ok := toTime(raw)
		if !ok {
			return nil
		}
		return ts

	default:
		return stringify(raw)
	}
}

// ToJSONValue converts v to the form used in insert payloads
func ToJSONValue(v any, t mapping.DataType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case mapping.GUID:
		return ValidateGUID(stringify(v), "guid")
	case mapping.Integer:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue("integer", v)
		}
		return n, nil
	case mapping.DateTime:
		ts, ok := toTime(v)
		if !ok {
			return nil, invalidValue("datetime", v)
		}
		return ts.Format(DateTimeLayout), nil
	default:
		return stringify(v), nil
	}
}

func invalidValue(kind string, v any) error {
	return errors.New(errors.ErrValidationFailed, "invalid "+kind+" value").
		WithDetail(fmt.Sprintf("%v", v)).
		WithField("type", kind)
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(DateTimeLayout)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		return parseIntString(n.String())
	case string:
		return parseIntString(n)
	default:
		return 0, false
	}
}

func parseIntString(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, true
	case string:
		return parseTime(val)
	default:
		return time.Time{}, false
	}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
