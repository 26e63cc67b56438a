package adapter

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/auth"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/bigquery"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/mapping"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/testutil"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/metrics"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/tracing"
)

const (
	testRecordID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	tableRef     = "`myproject-469115.my_baseball_data.schedule`"
)

var fixedID = uuid.MustParse("9b2c1d0e-7a41-4c3e-8f00-5a1d2b3c4d5e")

const scheduleResponse = `{
	"kind": "bigquery#queryResponse",
	"schema": {"fields": [
		{"name": "row_id", "type": "STRING"},
		{"name": "bq_name", "type": "STRING"},
		{"name": "attendance", "type": "INTEGER"},
		{"name": "startTime", "type": "DATETIME"},
		{"name": "venue_capacity", "type": "INTEGER"},
		{"name": "year", "type": "INTEGER"}
	]},
	"rows": [
		{"f": [
			{"v": "3F2504E0-4F89-11D3-9A0C-0305E82C3301"},
			{"v": "Cubs at Cardinals"},
			{"v": "39000"},
			{"v": "2016-06-17T19:05:00"},
			{"v": "41000"},
			{"v": "not-a-year"}
		]},
		{"f": [
			{"v": "9b2c1d0e-7a41-4c3e-8f00-5a1d2b3c4d5e"},
			{"v": "Mets at Braves"},
			{"v": null}
		]}
	],
	"totalRows": "2",
	"jobComplete": true
}`

type fixture struct {
	adapter  *Adapter
	server   *testutil.StubServer
	metrics  *metrics.Metrics
	recorder *tracetest.SpanRecorder
}

func newFixture(t *testing.T, registry *mapping.Registry) *fixture {
	t.Helper()

	server := testutil.NewStubServer()
	t.Cleanup(server.Close)
	cfg := server.Configuration()

	m := metrics.NewMetrics(metrics.Config{Namespace: "test", Registry: prometheus.NewRegistry()})

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tracing.NewProviderFromTracerProvider(tp, "adapter-test")

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Credential: testutil.CreateValidServiceAccount(),
		TokenURL:   cfg.TokenURL,
	})
	require.NoError(t, err)

	exec, err := bigquery.NewExecutor(cfg, tokens)
	require.NoError(t, err)

	if registry == nil {
		registry = mapping.DefaultRegistry()
	}
	a, err := New(exec, registry,
		WithMetrics(m),
		WithTracer(tracer),
		WithIDGenerator(func() uuid.UUID { return fixedID }),
	)
	require.NoError(t, err)

	return &fixture{adapter: a, server: server, metrics: m, recorder: recorder}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, mapping.DefaultRegistry())
	assert.Error(t, err)

	f := newFixture(t, nil)
	_, err = New(f.adapter.executor, nil)
	assert.Error(t, err)

	assert.Equal(t, DefaultLogicalName, f.adapter.LogicalName())
}

func TestCreate_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)

	created, err := f.adapter.Create(context.Background(), &Record{
		LogicalName: DefaultLogicalName,
		Attributes: map[string]any{
			"new_name":          "Cubs at Cardinals",
			"new_attendance":    "39000",
			"new_gamestarttime": "2016-06-17T19:05:00",
			"new_homeTeamName":  "Cardinals",
			"new_bqscheduleid":  "00000000-0000-0000-0000-000000000001",
			"new_unknown":       "dropped",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.server.TokenCalls())
	assert.Equal(t, 1, f.server.InsertCalls())
	assert.Equal(t, 0, f.server.QueryCalls())
	assert.Equal(t, []string{"/bigquery/v2/projects/myproject-469115/datasets/my_baseball_data/tables/schedule/insertAll"}, f.server.InsertPaths())
	assert.Equal(t, []string{"Bearer test-access-token"}, f.server.Authorizations())

	bodies := f.server.InsertBodies()
	require.Len(t, bodies, 1)
	assert.Equal(t, map[string]any{
		"rows": []any{
			map[string]any{"json": map[string]any{
				"row_id":       fixedID.String(),
				"bq_name":      "Cubs at Cardinals",
				"attendance":   float64(39000),
				"startTime":    "2016-06-17 19:05:00",
				"homeTeamName": "Cardinals",
			}},
		},
	}, bodies[0])

	assert.Equal(t, fixedID.String(), created.ID)
	assert.Equal(t, DefaultLogicalName, created.LogicalName)
	assert.Equal(t, fixedID, created.Attributes["new_bqscheduleid"])
	assert.Equal(t, "Cubs at Cardinals", created.Attributes["new_name"])

	assert.Equal(t, float64(1), promtestutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues(OpCreate, "success")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(f.metrics.SkippedAttributesTotal.WithLabelValues("unmapped")))
}

func TestCreate_NoPrimaryKey(t *testing.T) {
	registry, err := mapping.NewRegistry(mapping.FieldMapping{Source: "bq_name", Destination: "new_name"})
	require.NoError(t, err)
	f := newFixture(t, registry)

	_, err = f.adapter.Create(context.Background(), &Record{Attributes: map[string]any{"new_name": "x"}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))
	assert.Equal(t, 0, f.server.InsertCalls())
	assert.Equal(t, float64(1), promtestutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues(OpCreate, "error")))
}

func TestCreate_DropsUncoercibleValues(t *testing.T) {
	f := newFixture(t, nil)

	created, err := f.adapter.Create(context.Background(), &Record{Attributes: map[string]any{
		"new_name":          "Opening Day",
		"new_attendance":    "a lot",
		"new_gamestarttime": "sometime in June",
	}})
	require.NoError(t, err)
	assert.Equal(t, fixedID.String(), created.ID)

	require.Equal(t, 1, f.server.InsertCalls())
	row := f.server.InsertBodies()[0]["rows"].([]any)[0].(map[string]any)["json"].(map[string]any)
	assert.Equal(t, map[string]any{
		"row_id":  fixedID.String(),
		"bq_name": "Opening Day",
	}, row)

	assert.Equal(t, float64(2), promtestutil.ToFloat64(f.metrics.SkippedAttributesTotal.WithLabelValues("uncoercible")))
}

func TestCreate_RemoteFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.server.SetInsertResponse(http.StatusForbidden, `{"error":{"code":403,"message":"Access Denied"}}`)

	_, err := f.adapter.Create(context.Background(), &Record{Attributes: map[string]any{"new_name": "x"}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrRemoteAPI, errors.GetCode(err))
}

func TestRetrieve(t *testing.T) {
	f := newFixture(t, nil)
	f.server.SetQueryResponse(http.StatusOK, scheduleResponse)

	rec, err := f.adapter.Retrieve(context.Background(), "3F2504E0-4F89-11D3-9A0C-0305E82C3301")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SELECT * FROM " + tableRef + " WHERE row_id = '" + testRecordID + "' LIMIT 1",
	}, f.server.Queries())

	assert.Equal(t, testRecordID, rec.ID)
	assert.Equal(t, DefaultLogicalName, rec.LogicalName)
	assert.Equal(t, map[string]any{
		"new_bqscheduleid":  uuid.MustParse(testRecordID),
		"new_name":          "Cubs at Cardinals",
		"new_attendance":    int64(39000),
		"new_gamestarttime": time.Date(2016, 6, 17, 19, 5, 0, 0, time.UTC),
	}, rec.Attributes)

	assert.Equal(t, float64(1), promtestutil.ToFloat64(f.metrics.SkippedAttributesTotal.WithLabelValues("unmapped")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(f.metrics.SkippedAttributesTotal.WithLabelValues("uncoercible")))
}

func TestRetrieve_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.adapter.Retrieve(context.Background(), testRecordID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotFound, errors.GetCode(err))
	assert.Equal(t, 1, f.server.QueryCalls())
}

func TestRetrieve_InvalidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "blank", id: "   "},
		{name: "not a guid", id: "not-a-guid"},
		{name: "injection", id: "' OR '1'='1"},
		{name: "nil guid", id: "00000000-0000-0000-0000-000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			_, err := f.adapter.Retrieve(context.Background(), tt.id)
			require.Error(t, err)
			assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))

			assert.Equal(t, 0, f.server.TokenCalls())
			assert.Equal(t, 0, f.server.QueryCalls())
		})
	}
}

func TestRetrieveMultiple(t *testing.T) {
	f := newFixture(t, nil)
	f.server.SetQueryResponse(http.StatusOK, scheduleResponse)

	recs, err := f.adapter.RetrieveMultiple(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT * FROM " + tableRef}, f.server.Queries())
	require.Len(t, recs, 2)
	assert.Equal(t, testRecordID, recs[0].ID)
	assert.Equal(t, fixedID.String(), recs[1].ID)
	assert.Equal(t, map[string]any{
		"new_bqscheduleid": fixedID,
		"new_name":         "Mets at Braves",
	}, recs[1].Attributes)
}

func TestRetrieveMultiple_Empty(t *testing.T) {
	f := newFixture(t, nil)

	recs, err := f.adapter.RetrieveMultiple(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRowRecordRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	f.server.SetQueryResponse(http.StatusOK, scheduleResponse)

	rec, err := f.adapter.Retrieve(context.Background(), testRecordID)
	require.NoError(t, err)

	registry := mapping.DefaultRegistry()
	for destination := range rec.Attributes {
		source, ok := registry.LookupByDestination(destination)
		require.True(t, ok, destination)

		m, ok := registry.LookupBySource(source)
		require.True(t, ok)
		assert.Equal(t, destination, m.Destination)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, nil)

	err := f.adapter.Update(context.Background(), &Record{
		ID: testRecordID,
		Attributes: map[string]any{
			"new_name":          "O'Brien",
			"new_attendance":    100,
			"new_bqscheduleid":  testRecordID,
			"new_gamestarttime": "2016-06-17 19:05:00",
			"new_unknown":       "skipped",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"UPDATE " + tableRef +
			` SET attendance = 100, startTime = DATETIME('2016-06-17 19:05:00'), bq_name = 'O\'Brien'` +
			" WHERE row_id = '" + testRecordID + "'",
	}, f.server.Queries())
}

func TestUpdate_EmptySet(t *testing.T) {
	tests := []struct {
		name       string
		attributes map[string]any
	}{
		{name: "no attributes", attributes: nil},
		{name: "only unmapped", attributes: map[string]any{"new_unknown": "x"}},
		{name: "only primary key", attributes: map[string]any{"new_bqscheduleid": testRecordID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			err := f.adapter.Update(context.Background(), &Record{ID: testRecordID, Attributes: tt.attributes})
			require.Error(t, err)
			assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))
			assert.Equal(t, 0, f.server.QueryCalls())
		})
	}
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture(t, nil)

	err := f.adapter.Update(context.Background(), nil)
	assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))

	err = f.adapter.Update(context.Background(), &Record{Attributes: map[string]any{"new_name": "x"}})
	assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))

	err = f.adapter.Update(context.Background(), &Record{ID: testRecordID, Attributes: map[string]any{"new_bqscheduleid": testRecordID, "new_attendance": "many"}})
	assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))

	assert.Equal(t, 0, f.server.QueryCalls())
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.adapter.Delete(context.Background(), testRecordID))
	assert.Equal(t, []string{
		"DELETE FROM " + tableRef + " WHERE row_id = '" + testRecordID + "'",
	}, f.server.Queries())

	err := f.adapter.Delete(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err))
	assert.Equal(t, 1, f.server.QueryCalls())
}

func TestDelete_RemoteFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.server.SetQueryResponse(http.StatusNotFound, `{"error":{"code":404,"message":"Not found: Table"}}`)

	err := f.adapter.Delete(context.Background(), testRecordID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrRemoteAPI, errors.GetCode(err))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues(OpDelete, "error")))
}

func TestOperations_Spans(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.adapter.Delete(context.Background(), testRecordID))
	_, err := f.adapter.Retrieve(context.Background(), "not-a-guid")
	require.Error(t, err)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range f.recorder.Ended() {
		byName[span.Name()] = span
	}

	require.Contains(t, byName, "adapter.Delete")
	assert.Equal(t, codes.Ok, byName["adapter.Delete"].Status().Code)

	require.Contains(t, byName, "adapter.Retrieve")
	assert.Equal(t, codes.Error, byName["adapter.Retrieve"].Status().Code)
}
