// Package bigquery runs SQL statements and streaming inserts against the
// BigQuery REST API with a bearer token obtained per call.
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/codec"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/config"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/metrics"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/tracing"
)

const (
	callQuery     = "query"
	callInsertAll = "insertAll"

	defaultHTTPTimeout = 30 * time.Second
)

// TokenProvider supplies the bearer token for each request
type TokenProvider interface {
	AccessToken(ctx context.Context) (*oauth2.Token, error)
}

// Option configures an Executor
type Option func(*Executor)

// WithHTTPClient sets the client used for data calls
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		e.client = client
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(e *Executor) {
		e.logger = log
	}
}

// WithMetrics records request counts and latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTracer wraps each call in a span
func WithTracer(p *tracing.Provider) Option {
	return func(e *Executor) {
		e.tracer = p
	}
}

// Executor issues requests for one configured table
type Executor struct {
	cfg     *config.Configuration
	tokens  TokenProvider
	client  *http.Client
	logger  logger.Logger
	metrics *metrics.Metrics
	tracer  *tracing.Provider
}

// NewExecutor creates an executor bound to cfg
func NewExecutor(cfg *config.Configuration, tokens TokenProvider, opts ...Option) (*Executor, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrConfigInvalid, "configuration is required")
	}
	if tokens == nil {
		return nil, errors.New(errors.ErrConfigInvalid, "token provider is required")
	}
	if _, err := codec.ValidateProjectID(cfg.ProjectID); err != nil {
		return nil, err
	}

	e := &Executor{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// TableReference returns the quoted `project.dataset.table` reference
func (e *Executor) TableReference() (string, error) {
	project, err := codec.ValidateProjectID(e.cfg.ProjectID)
	if err != nil {
		return "", err
	}
	dataset, err := codec.ValidateIdentifier(e.cfg.DatasetID)
	if err != nil {
		return "", err
	}
	table, err := codec.ValidateIdentifier(e.cfg.TableID)
	if err != nil {
		return "", err
	}
	return "`" + project + "." + dataset + "." + table + "`", nil
}

// TableID returns the configured table name
func (e *Executor) TableID() string {
	return e.cfg.TableID
}

type queryRequest struct {
	Query        string `json:"query"`
	UseLegacySQL bool   `json:"useLegacySql"`
}

// ExecuteQuery runs a standard SQL statement and returns the full result
func (e *Executor) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	endpoint := e.baseURL() + "/projects/" + url.PathEscape(e.cfg.ProjectID) + "/queries"

	var result QueryResult
	if err := e.post(ctx, callQuery, endpoint, queryRequest{Query: query}, &result); err != nil {
		return nil, err
	}

	e.logger.Debug("Query completed",
		logger.Int("rows", len(result.Rows)),
		logger.Bool("job_complete", result.JobComplete),
	)
	return &result, nil
}

type insertRow struct {
	JSON map[string]any `json:"json"`
}

type insertRequest struct {
	Rows []insertRow `json:"rows"`
}

// InsertRow streams one row into table. Per-row insert errors in an
// otherwise successful response are returned as an ErrRemoteAPI error.
func (e *Executor) InsertRow(ctx context.Context, table string, row map[string]any) (*InsertResult, error) {
	if _, err := codec.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	if _, err := codec.ValidateIdentifier(e.cfg.DatasetID); err != nil {
		return nil, err
	}

	endpoint := e.baseURL() +
		"/projects/" + url.PathEscape(e.cfg.ProjectID) +
		"/datasets/" + url.PathEscape(e.cfg.DatasetID) +
		"/tables/" + url.PathEscape(table) + "/insertAll"

	var result InsertResult
	if err := e.post(ctx, callInsertAll, endpoint, insertRequest{Rows: []insertRow{{JSON: row}}}, &result); err != nil {
		return nil, err
	}

	if len(result.InsertErrors) > 0 {
		return &result, errors.New(errors.ErrRemoteAPI, "insert rejected rows").
			WithDetail(result.InsertErrors.Error()).
			WithFields(map[string]interface{}{
				"table":         table,
				"rejected_rows": len(result.InsertErrors),
			})
	}
	return &result, nil
}

func (e *Executor) baseURL() string {
	return strings.TrimRight(e.cfg.BaseURL, "/")
}

// post sends payload as JSON with a fresh bearer token and decodes a 2xx
// response into out
func (e *Executor) post(ctx context.Context, call, endpoint string, payload, out any) (err error) {
	ctx, span := e.tracer.StartSpan(ctx, "bigquery."+call)
	defer func() { tracing.End(span, err) }()
	span.SetAttributes(
		attribute.String("bigquery.call", call),
		attribute.String("bigquery.project", e.cfg.ProjectID),
	)

	timer := metrics.NewTimer()
	defer func() {
		e.metrics.RecordRemoteRequest(call, metrics.Status(err), timer.ObserveDuration())
	}()

	tok, err := e.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, err, "failed to encode request").
			WithField("call", call)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrInternal, err, "failed to build request").
			WithField("call", call)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrRemoteUnreachable, err, "BigQuery request failed").
			WithField("call", call)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrRemoteResponseBody, err, "failed to read BigQuery response").
			WithField("call", call)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Warn("BigQuery request rejected",
			logger.String("call", call),
			logger.Int("status_code", resp.StatusCode),
		)
		return errors.New(errors.ErrRemoteAPI, "BigQuery API error").
			WithDetail("HTTP " + strconv.Itoa(resp.StatusCode) + ": " + remoteMessage(respBody)).
			WithFields(map[string]interface{}{
				"call":        call,
				"status_code": resp.StatusCode,
				"body":        string(respBody),
			})
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(errors.ErrRemoteResponseBody, err, "malformed BigQuery response").
			WithField("call", call)
	}
	return nil
}

// remoteMessage extracts error.message from a Google API error body,
// falling back to the raw body
func remoteMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}
