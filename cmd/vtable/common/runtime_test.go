package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/config"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/testutil"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
)

func writeConfig(t *testing.T, stub *testutil.StubServer) string {
	t.Helper()
	path, err := testutil.WriteConfigFile(t.TempDir(), stub.BaseURL(), stub.TokenURL())
	require.NoError(t, err)
	return path
}

func TestBuild(t *testing.T) {
	stub := testutil.NewStubServer()
	defer stub.Close()

	flags := &Flags{ConfigFile: writeConfig(t, stub)}
	rt, err := Build(context.Background(), flags, logger.Nop())
	require.NoError(t, err)
	defer rt.Close(context.Background())

	assert.Equal(t, testutil.FixtureProjectID, rt.Connection.ProjectID)
	assert.Equal(t, stub.BaseURL(), rt.Connection.BaseURL)
	assert.Equal(t, "new_bqschedule", rt.Adapter.LogicalName())
	assert.NotNil(t, rt.Metrics)

	ref, err := rt.Executor.TableReference()
	require.NoError(t, err)
	assert.Equal(t, "`myproject-469115.my_baseball_data.schedule`", ref)

	tok, err := rt.Tokens.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", tok.AccessToken)
	assert.Equal(t, testutil.TestClientEmail, rt.Tokens.ClientEmail())
}

func TestBuild_MissingSettings(t *testing.T) {
	_, err := Build(context.Background(), &Flags{}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigMissingField))
}

func TestResolveConnection_CredentialsFileOverrides(t *testing.T) {
	settings := testutil.FixtureSettings("", "")
	settings[config.KeyServiceAccountJSON] = "{not json"
	cfg := config.DefaultConfig()
	cfg.BigQuery = settings

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(testutil.ServiceAccountJSON()), 0o600))

	conn, err := ResolveConnection(cfg, &Flags{CredentialsFile: path})
	require.NoError(t, err)
	assert.Equal(t, testutil.ServiceAccountJSON(), conn.ServiceAccountJSON)
	assert.Equal(t, config.DefaultBaseURL, conn.BaseURL)
}

func TestResolveConnection_EnvOverridesFile(t *testing.T) {
	t.Setenv("BQVT_TABLE_ID", "games")

	cfg := config.DefaultConfig()
	cfg.BigQuery = testutil.FixtureSettings("", "")

	conn, err := ResolveConnection(cfg, &Flags{})
	require.NoError(t, err)
	assert.Equal(t, "games", conn.TableID)
}

func TestLoadRegistry(t *testing.T) {
	cfg := config.DefaultConfig()

	registry, err := LoadRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, 18, registry.Len())

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`mappings:
  - source: id
    destination: crd_widgetid
    type: guid
    primary_key: true
  - source: label
    destination: crd_label
    type: string
`), 0o600))

	cfg.Mapping.File = path
	registry, err = LoadRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())
	pk, ok := registry.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "crd_widgetid", pk.Destination)
}

func TestLoadConfig_MappingFlag(t *testing.T) {
	cfg, err := LoadConfig(&Flags{MappingFile: "/etc/bqvt/mapping.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/bqvt/mapping.yaml", cfg.Mapping.File)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}
