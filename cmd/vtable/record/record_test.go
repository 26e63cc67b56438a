package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		want  map[string]any
	}{
		{
			name:  "none",
			pairs: nil,
			want:  map[string]any{},
		},
		{
			name:  "simple pairs",
			pairs: []string{"new_name=Cubs", "new_attendance=39000"},
			want:  map[string]any{"new_name": "Cubs", "new_attendance": "39000"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"new_notes=a=b"},
			want:  map[string]any{"new_notes": "a=b"},
		},
		{
			name:  "empty value",
			pairs: []string{"new_venue="},
			want:  map[string]any{"new_venue": ""},
		},
		{
			name:  "later pair wins",
			pairs: []string{"new_name=Cubs", "new_name=Mets"},
			want:  map[string]any{"new_name": "Mets"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAttributes(tt.pairs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAttributes_Malformed(t *testing.T) {
	for _, pair := range []string{"new_name", "=Cubs", "  =x"} {
		t.Run(pair, func(t *testing.T) {
			_, err := ParseAttributes([]string{pair})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
		})
	}
}

func TestNewCommand_Subcommands(t *testing.T) {
	cmd := NewCommand(nil)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"create", "get", "list", "update", "delete"}, names)
}
