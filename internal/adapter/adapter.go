// Package adapter maps host records onto a remote BigQuery table. Each
// operation translates attributes through the field mapping registry,
// builds a guarded statement or row payload, and runs it through the
// executor.
package adapter

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/bigquery"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/codec"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/mapping"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/metrics"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/tracing"
)

// DefaultLogicalName is the host entity name of the schedule table
const DefaultLogicalName = "new_bqschedule"

// Operation names used in logs, spans and metrics
const (
	OpCreate           = "Create"
	OpRetrieve         = "Retrieve"
	OpRetrieveMultiple = "RetrieveMultiple"
	OpUpdate           = "Update"
	OpDelete           = "Delete"
)

// Reasons an attribute or column is skipped
const (
	skipUnmapped    = "unmapped"
	skipUncoercible = "uncoercible"
)

// Record is a host entity instance
type Record struct {
	LogicalName string         `json:"logicalName"`
	ID          string         `json:"id,omitempty"`
	Attributes  map[string]any `json:"attributes"`
}

// Executor is the remote side of the adapter
type Executor interface {
	ExecuteQuery(ctx context.Context, query string) (*bigquery.QueryResult, error)
	InsertRow(ctx context.Context, table string, row map[string]any) (*bigquery.InsertResult, error)
	TableReference() (string, error)
	TableID() string
}

// Option configures an Adapter
type Option func(*Adapter)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(a *Adapter) {
		a.logger = log
	}
}

// WithMetrics records operation outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithTracer wraps each operation in a span
func WithTracer(p *tracing.Provider) Option {
	return func(a *Adapter) {
		a.tracer = p
	}
}

// WithLogicalName sets the entity name stamped on returned records
func WithLogicalName(name string) Option {
	return func(a *Adapter) {
		a.logicalName = name
	}
}

// WithIDGenerator replaces uuid.New for primary keys of created rows
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(a *Adapter) {
		a.newID = gen
	}
}

// Adapter implements the five host operations against one table
type Adapter struct {
	executor    Executor
	registry    *mapping.Registry
	logger      logger.Logger
	metrics     *metrics.Metrics
	tracer      *tracing.Provider
	logicalName string
	newID       func() uuid.UUID
}

// New creates an adapter over executor using registry for field mapping
func New(executor Executor, registry *mapping.Registry, opts ...Option) (*Adapter, error) {
	if executor == nil {
		return nil, errors.New(errors.ErrConfigInvalid, "executor is required")
	}
	if registry == nil {
		return nil, errors.New(errors.ErrConfigInvalid, "field mapping registry is required")
	}

	a := &Adapter{
		executor:    executor,
		registry:    registry,
		logger:      logger.Nop(),
		logicalName: DefaultLogicalName,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger = a.logger.With(logger.String("entity", a.logicalName))
	return a, nil
}

// LogicalName returns the entity name stamped on records
func (a *Adapter) LogicalName() string {
	return a.logicalName
}

// Create inserts rec as a new row under a freshly generated primary key
func (a *Adapter) Create(ctx context.Context, rec *Record) (created *Record, err error) {
	ctx, span, finish := a.begin(ctx, OpCreate)
	defer func() { finish(err) }()

	if rec == nil {
		return nil, errors.New(errors.ErrValidationFailed, "record is required")
	}

	pk, ok := a.registry.PrimaryKey()
	if !ok {
		return nil, errors.New(errors.ErrValidationFailed, "no primary key field mapping found")
	}

	row := make(map[string]any, len(rec.Attributes)+1)
	for _, name := range sortedKeys(rec.Attributes) {
		m, ok := a.registry.MappingForDestination(name)
		if !ok {
			a.skip(ctx, name, skipUnmapped)
			continue
		}
		if m.PrimaryKey {
			continue
		}

		raw := rec.Attributes[name]
		coerced := codec.Coerce(raw, m.Type)
		if coerced == nil {
			if raw != nil {
				a.skip(ctx, name, skipUncoercible)
			}
			continue
		}
		value, err := codec.ToJSONValue(coerced, m.Type)
		if err != nil {
			return nil, err
		}
		row[m.Source] = value
		a.logger.Debug("Mapped attribute",
			logger.String("attribute", name),
			logger.String("column", m.Source),
		)
	}

	id := a.newID()
	row[pk.Source] = id.String()
	span.SetAttributes(attribute.String("record.id", id.String()))

	a.logger.Debug("Inserting row", logger.Int("fields", len(row)))
	if _, err := a.executor.InsertRow(ctx, a.executor.TableID(), row); err != nil {
		return nil, err
	}

	created = &Record{
		LogicalName: a.logicalName,
		ID:          id.String(),
		Attributes:  make(map[string]any, len(rec.Attributes)+1),
	}
	for k, v := range rec.Attributes {
		created.Attributes[k] = v
	}
	created.Attributes[pk.Destination] = id

	a.logger.Info("Record created", logger.String("id", created.ID))
	return created, nil
}

// Retrieve returns the row whose primary key equals id
func (a *Adapter) Retrieve(ctx context.Context, id string) (rec *Record, err error) {
	ctx, span, finish := a.begin(ctx, OpRetrieve)
	defer func() { finish(err) }()

	pkColumn, recordID, err := a.keyPredicate(id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("record.id", recordID))

	ref, err := a.executor.TableReference()
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + ref + " WHERE " + pkColumn + " = " + codec.EscapeString(recordID) + " LIMIT 1"
	a.logger.Debug("Retrieve query", logger.String("query", query))

	result, err := a.executor.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	records := result.Records()
	if len(records) == 0 {
		return nil, errors.New(errors.ErrNotFound, "record not found").
			WithField("id", recordID)
	}
	return a.toRecord(ctx, records[0]), nil
}

// RetrieveMultiple returns every row of the table
func (a *Adapter) RetrieveMultiple(ctx context.Context) (recs []*Record, err error) {
	ctx, _, finish := a.begin(ctx, OpRetrieveMultiple)
	defer func() { finish(err) }()

	ref, err := a.executor.TableReference()
	if err != nil {
		return nil, err
	}

	result, err := a.executor.ExecuteQuery(ctx, "SELECT * FROM "+ref)
	if err != nil {
		return nil, err
	}

	rows := result.Records()
	recs = make([]*Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, a.toRecord(ctx, row))
	}

	a.logger.Info("Records retrieved", logger.Int("count", len(recs)))
	return recs, nil
}

// Update sets the mapped attributes of rec on the row keyed by rec.ID.
// The primary key attribute is never part of the SET list.
func (a *Adapter) Update(ctx context.Context, rec *Record) (err error) {
	ctx, span, finish := a.begin(ctx, OpUpdate)
	defer func() { finish(err) }()

	if rec == nil {
		return errors.New(errors.ErrValidationFailed, "record is required")
	}

	pkColumn, recordID, err := a.keyPredicate(rec.ID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("record.id", recordID))

	var assignments []string
	for _, name := range sortedKeys(rec.Attributes) {
		m, ok := a.registry.MappingForDestination(name)
		if !ok {
			a.skip(ctx, name, skipUnmapped)
			continue
		}
		if m.PrimaryKey {
			continue
		}

		column, err := codec.ValidateIdentifier(m.Source)
		if err != nil {
			return err
		}
		literal, err := codec.FormatForQuery(rec.Attributes[name], m.Type)
		if err != nil {
			return err
		}
		assignments = append(assignments, column+" = "+literal)
	}

	if len(assignments) == 0 {
		return errors.New(errors.ErrValidationFailed, "no mapped attributes to update").
			WithField("id", recordID)
	}

	ref, err := a.executor.TableReference()
	if err != nil {
		return err
	}

	query := "UPDATE " + ref + " SET " + strings.Join(assignments, ", ") +
		" WHERE " + pkColumn + " = " + codec.EscapeString(recordID)
	a.logger.Debug("Update query", logger.String("query", query))

	if _, err := a.executor.ExecuteQuery(ctx, query); err != nil {
		return err
	}

	a.logger.Info("Record updated",
		logger.String("id", recordID),
		logger.Int("fields", len(assignments)),
	)
	return nil
}

// Delete removes the row keyed by id
func (a *Adapter) Delete(ctx context.Context, id string) (err error) {
	ctx, span, finish := a.begin(ctx, OpDelete)
	defer func() { finish(err) }()

	pkColumn, recordID, err := a.keyPredicate(id)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("record.id", recordID))

	ref, err := a.executor.TableReference()
	if err != nil {
		return err
	}

	query := "DELETE FROM " + ref + " WHERE " + pkColumn + " = " + codec.EscapeString(recordID)
	a.logger.Debug("Delete query", logger.String("query", query))

	if _, err := a.executor.ExecuteQuery(ctx, query); err != nil {
		return err
	}

	a.logger.Info("Record deleted", logger.String("id", recordID))
	return nil
}

// keyPredicate validates id and returns the primary key column and the
// canonical id
func (a *Adapter) keyPredicate(id string) (string, string, error) {
	if strings.TrimSpace(id) == "" {
		return "", "", errors.New(errors.ErrValidationFailed, "record ID is required")
	}

	recordID, err := codec.ValidateGUID(id, "id")
	if err != nil {
		return "", "", err
	}
	if recordID == uuid.Nil.String() {
		return "", "", errors.New(errors.ErrValidationFailed, "record ID is required").
			WithField("id", recordID)
	}

	pk, ok := a.registry.PrimaryKey()
	if !ok {
		return "", "", errors.New(errors.ErrValidationFailed, "no primary key field mapping found")
	}
	column, err := codec.ValidateIdentifier(pk.Source)
	if err != nil {
		return "", "", err
	}
	return column, recordID, nil
}

// toRecord maps one result row onto a host record
func (a *Adapter) toRecord(ctx context.Context, row []bigquery.Column) *Record {
	rec := &Record{
		LogicalName: a.logicalName,
		Attributes:  make(map[string]any, len(row)),
	}

	for _, col := range row {
		m, ok := a.registry.LookupBySource(col.Name)
		if !ok {
			a.skip(ctx, col.Name, skipUnmapped)
			continue
		}

		value := codec.Coerce(col.Value, m.Type)
		if value == nil {
			if col.Value != nil {
				a.skip(ctx, col.Name, skipUncoercible)
			}
			continue
		}

		if id, isGUID := value.(uuid.UUID); m.PrimaryKey && isGUID {
			rec.ID = id.String()
		}
		rec.Attributes[m.Destination] = value
	}
	return rec
}

func (a *Adapter) skip(ctx context.Context, name, reason string) {
	a.metrics.RecordSkippedAttribute(reason)
	tracing.AddEvent(ctx, "attribute skipped", trace.WithAttributes(
		attribute.String("name", name),
		attribute.String("reason", reason),
	))

	if reason == skipUnmapped {
		a.logger.Debug("No mapping found for field",
			logger.String("field", name),
			logger.String("code", string(errors.ErrMappingNotFound)),
		)
		return
	}
	a.logger.Warn("Could not convert field value", logger.String("field", name))
}

// begin opens the span and log markers for op. The returned func records
// the outcome and must be called exactly once.
func (a *Adapter) begin(ctx context.Context, op string) (context.Context, trace.Span, func(error)) {
	ctx, span := a.tracer.StartSpan(ctx, "adapter."+op)
	span.SetAttributes(
		attribute.String("operation", op),
		attribute.String("entity", a.logicalName),
	)

	log := a.logger.WithContext(ctx).With(logger.String("operation", op))
	log.Info(op + " started")
	start := time.Now()

	return ctx, span, func(err error) {
		duration := time.Since(start)
		a.metrics.RecordOperation(op, metrics.Status(err), duration)
		if err != nil {
			log.Error(op+" failed",
				logger.Error(err),
				logger.Duration("duration_ms", duration),
			)
		} else {
			log.Info(op+" completed", logger.Duration("duration_ms", duration))
		}
		tracing.End(span, err)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
