package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/config"
)

// DefaultTokenResponse is served by the stub token endpoint
const DefaultTokenResponse = `{"access_token":"test-access-token","expires_in":3600,"token_type":"Bearer"}`

type stubResponse struct {
	status int
	body   string
}

// StubServer fakes the token endpoint and the BigQuery REST endpoints
// while counting and recording every call.
type StubServer struct {
	*httptest.Server

	mu             sync.Mutex
	token          stubResponse
	query          stubResponse
	insert         stubResponse
	tokenCalls     int
	queryCalls     int
	insertCalls    int
	tokenForms     []url.Values
	queries        []string
	queryPaths     []string
	insertBodies   []map[string]any
	insertPaths    []string
	authorizations []string
}

// NewStubServer starts a stub server; callers must Close it
func NewStubServer() *StubServer {
	s := &StubServer{
		token:  stubResponse{http.StatusOK, DefaultTokenResponse},
		query:  stubResponse{http.StatusOK, `{"kind":"bigquery#queryResponse","jobComplete":true}`},
		insert: stubResponse{http.StatusOK, `{"kind":"bigquery#tableDataInsertAllResponse"}`},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// TokenURL is the stub token endpoint
func (s *StubServer) TokenURL() string {
	return s.URL + "/token"
}

// BaseURL is the stub BigQuery API root
func (s *StubServer) BaseURL() string {
	return s.URL + "/bigquery/v2"
}

// Configuration returns the fixture table wired to this server
func (s *StubServer) Configuration() *config.Configuration {
	return FixtureConfiguration(s.BaseURL(), s.TokenURL())
}

// SetTokenResponse changes what the token endpoint returns
func (s *StubServer) SetTokenResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = stubResponse{status, body}
}

// SetQueryResponse changes what the queries endpoint returns
func (s *StubServer) SetQueryResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = stubResponse{status, body}
}

// SetInsertResponse changes what the insertAll endpoint returns
func (s *StubServer) SetInsertResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert = stubResponse{status, body}
}

// TokenCalls returns the number of token exchanges served
func (s *StubServer) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

// QueryCalls returns the number of queries served
func (s *StubServer) QueryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryCalls
}

// InsertCalls returns the number of inserts served
func (s *StubServer) InsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCalls
}

// TokenForms returns the form bodies posted to the token endpoint
func (s *StubServer) TokenForms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.tokenForms...)
}

// Queries returns the SQL texts received, in order
func (s *StubServer) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// QueryPaths returns the request paths of the queries received
func (s *StubServer) QueryPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queryPaths...)
}

// InsertBodies returns the decoded insertAll payloads, in order
func (s *StubServer) InsertBodies() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.insertBodies...)
}

// InsertPaths returns the request paths of the inserts received
func (s *StubServer) InsertPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.insertPaths...)
}

// Authorizations returns the Authorization headers seen on data calls
func (s *StubServer) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authorizations...)
}

func (s *StubServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var resp stubResponse
	switch {
	case r.URL.Path == "/token":
		s.tokenCalls++
		form, _ := url.ParseQuery(string(body))
		s.tokenForms = append(s.tokenForms, form)
		resp = s.token

	case strings.HasSuffix(r.URL.Path, "/queries"):
		s.queryCalls++
		var payload struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(body, &payload)
		s.queries = append(s.queries, payload.Query)
		s.queryPaths = append(s.queryPaths, r.URL.Path)
		s.authorizations = append(s.authorizations, r.Header.Get("Authorization"))
		resp = s.query

	case strings.HasSuffix(r.URL.Path, "/insertAll"):
		s.insertCalls++
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		s.insertBodies = append(s.insertBodies, payload)
		s.insertPaths = append(s.insertPaths, r.URL.Path)
		s.authorizations = append(s.authorizations, r.Header.Get("Authorization"))
		resp = s.insert

	default:
		resp = stubResponse{http.StatusNotFound, `{"error":{"code":404,"message":"Not found"}}`}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}
