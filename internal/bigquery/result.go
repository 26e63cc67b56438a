package bigquery

import (
	"strconv"
	"strings"
)

// FieldSchema describes one result column
type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
}

// Schema is the column layout of a result
type Schema struct {
	Fields []FieldSchema `json:"fields"`
}

// Cell is one positional value in a row
type Cell struct {
	V any `json:"v"`
}

// Row is one result row, positionally aligned with the schema
type Row struct {
	F []Cell `json:"f"`
}

// QueryResult is the body of a jobs.query response
type QueryResult struct {
	Kind               string `json:"kind,omitempty"`
	Schema             Schema `json:"schema"`
	Rows               []Row  `json:"rows"`
	TotalRows          Count  `json:"totalRows"`
	JobComplete        bool   `json:"jobComplete"`
	NumDMLAffectedRows Count  `json:"numDmlAffectedRows"`
}

// Column is a named value within a decoded record
type Column struct {
	Name  string
	Value any
}

// Records pairs each row's cells with the schema's column names. Cells
// beyond the schema and columns beyond the row are ignored.
func (r *QueryResult) Records() [][]Column {
	records := make([][]Column, 0, len(r.Rows))
	for _, row := range r.Rows {
		n := len(row.F)
		if len(r.Schema.Fields) < n {
			n = len(r.Schema.Fields)
		}
		columns := make([]Column, 0, n)
		for i := 0; i < n; i++ {
			columns = append(columns, Column{Name: r.Schema.Fields[i].Name, Value: row.F[i].V})
		}
		records = append(records, columns)
	}
	return records
}

// Count is an int64 that BigQuery encodes as a JSON string
type Count int64

// UnmarshalJSON accepts a JSON number or numeric string
func (c *Count) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

// ErrorProto is a single error reported for an inserted row
type ErrorProto struct {
	Reason   string `json:"reason"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

// RowError lists the errors for the row at Index
type RowError struct {
	Index  int          `json:"index"`
	Errors []ErrorProto `json:"errors"`
}

// RowErrors is the insertErrors array of an insertAll response
type RowErrors []RowError

func (e RowErrors) Error() string {
	var parts []string
	for _, row := range e {
		for _, proto := range row.Errors {
			parts = append(parts, "row "+strconv.Itoa(row.Index)+": "+proto.Reason+": "+proto.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// InsertResult is the body of a tabledata.insertAll response
type InsertResult struct {
	Kind         string    `json:"kind,omitempty"`
	InsertErrors RowErrors `json:"insertErrors,omitempty"`
}
