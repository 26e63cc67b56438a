// Package auth turns a service-account credential into short-lived bearer
// tokens through the OAuth 2.0 JWT bearer grant.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/credentials"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/keys"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/metrics"
)

const (
	// BigQueryScope is the OAuth scope requested for data calls
	BigQueryScope = "https://www.googleapis.com/auth/bigquery"

	// ExpiryBuffer is subtracted from a token's expiry when deciding
	// whether it may still be handed out
	ExpiryBuffer = 5 * time.Minute

	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	defaultHTTPTimeout = 30 * time.Second
)

// TokenConfig identifies whose token to mint and where
type TokenConfig struct {
	Credential *credentials.ServiceAccountCredential
	TokenURL   string
	Scope      string
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithHTTPClient sets the client used for the token exchange
func WithHTTPClient(client *http.Client) Option {
	return func(m *TokenManager) {
		m.client = client
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		m.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(m *TokenManager) {
		m.logger = log
	}
}

// WithMetrics records exchanges and cache hits
func WithMetrics(mtr *metrics.Metrics) Option {
	return func(m *TokenManager) {
		m.metrics = mtr
	}
}

// WithCache shares tokens with other managers through cache
func WithCache(cache *SharedCache) Option {
	return func(m *TokenManager) {
		m.cache = cache
	}
}

// TokenManager hands out bearer tokens, exchanging a freshly signed
// assertion only when the cached token is inside the expiry buffer.
type TokenManager struct {
	cfg     TokenConfig
	client  *http.Client
	now     func() time.Time
	logger  logger.Logger
	metrics *metrics.Metrics
	cache   *SharedCache

	mu     sync.Mutex
	token  *oauth2.Token
	signer *rsa.PrivateKey
}

// NewTokenManager creates a token manager in the unauthenticated state
func NewTokenManager(cfg TokenConfig, opts ...Option) (*TokenManager, error) {
	if err := credentials.Validate(cfg.Credential); err != nil {
		return nil, err
	}
	if cfg.TokenURL == "" {
		return nil, errors.New(errors.ErrConfigMissingField, "token URL is required")
	}
	if cfg.Scope == "" {
		cfg.Scope = BigQueryScope
	}

	m := &TokenManager{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.With(logger.String("client_email", cfg.Credential.ClientEmail))
	return m, nil
}

// AccessToken returns a token valid for at least ExpiryBuffer
func (m *TokenManager) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usable(m.token) {
		m.metrics.RecordTokenCacheHit()
		m.logger.Debug("Access token served from cache",
			logger.Time("expires_at", m.token.Expiry),
		)
		return cloneToken(m.token), nil
	}

	if m.cache == nil {
		tok, err := m.exchange(ctx)
		if err != nil {
			return nil, err
		}
		m.token = tok
		return cloneToken(tok), nil
	}

	key := cacheKey(m.cfg.Credential.ClientEmail, m.cfg.TokenURL, m.cfg.Scope)
	tok, hit, err := m.cache.fetch(key, m.usable, m.cacheTTL, func() (*oauth2.Token, error) {
		return m.exchange(ctx)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		m.metrics.RecordTokenCacheHit()
		m.logger.Debug("Access token served from shared cache",
			logger.Time("expires_at", tok.Expiry),
		)
	}

	m.token = tok
	return cloneToken(tok), nil
}

// Token is an alias of AccessToken
func (m *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	return m.AccessToken(ctx)
}

// TokenSource adapts the manager to oauth2.TokenSource, bound to ctx
func (m *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &boundSource{ctx: ctx, m: m}
}

// ClientEmail is the service account identity tokens are minted for
func (m *TokenManager) ClientEmail() string {
	return m.cfg.Credential.ClientEmail
}

// Invalidate forgets the instance-level token
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
}

type boundSource struct {
	ctx context.Context
	m   *TokenManager
}

func (s *boundSource) Token() (*oauth2.Token, error) {
	return s.m.AccessToken(s.ctx)
}

func (m *TokenManager) usable(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != "" && m.now().Before(tok.Expiry.Add(-ExpiryBuffer))
}

func (m *TokenManager) cacheTTL(tok *oauth2.Token) time.Duration {
	return tok.Expiry.Add(-ExpiryBuffer).Sub(m.now())
}

// tokenResponse is the token endpoint's success body
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   flexSeconds `json:"expires_in"`
	TokenType   string      `json:"token_type"`
}

// flexSeconds accepts a JSON number or a numeric string
type flexSeconds int64

func (s *flexSeconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*s = flexSeconds(n)
	return nil
}

// exchange signs a new assertion and trades it for an access token
func (m *TokenManager) exchange(ctx context.Context) (tok *oauth2.Token, err error) {
	timer := metrics.NewTimer()
	defer func() {
		m.metrics.RecordTokenExchange(metrics.Status(err), timer.ObserveDuration())
	}()

	signer, err := m.signingKey()
	if err != nil {
		return nil, err
	}

	now := m.now()
	assertion, err := signAssertion(signer, m.cfg.Credential.ClientEmail, m.cfg.Scope, m.cfg.TokenURL, now)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrTokenGenerationFailed, err, "failed to build token request").
			WithField("token_url", m.cfg.TokenURL)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAuthenticationFailed, err, "token endpoint request failed").
			WithField("token_url", m.cfg.TokenURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAuthenticationFailed, err, "failed to read token response").
			WithField("token_url", m.cfg.TokenURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("Token exchange rejected",
			logger.Int("status_code", resp.StatusCode),
		)
		return nil, errors.New(errors.ErrAuthenticationFailed, "token exchange rejected").
			WithDetail("HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(body)).
			WithFields(map[string]interface{}{
				"status_code": resp.StatusCode,
				"body":        string(body),
				"token_url":   m.cfg.TokenURL,
			})
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(errors.ErrAuthenticationFailed, err, "malformed token response").
			WithField("status_code", resp.StatusCode)
	}
	if parsed.AccessToken == "" {
		return nil, errors.New(errors.ErrAuthenticationFailed, "token response has no access_token").
			WithField("status_code", resp.StatusCode)
	}

	tokenType := parsed.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	tok = &oauth2.Token{
		AccessToken: parsed.AccessToken,
		TokenType:   tokenType,
		Expiry:      now.Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}

	m.logger.Info("Token exchange completed",
		logger.Time("expires_at", tok.Expiry),
		logger.Duration("duration_ms", timer.ObserveDuration()),
	)

	return tok, nil
}

// signingKey parses the credential's private key on first use
func (m *TokenManager) signingKey() (*rsa.PrivateKey, error) {
	if m.signer != nil {
		return m.signer, nil
	}

	material, err := keys.ParsePEM(m.cfg.Credential.PrivateKey)
	if err != nil {
		return nil, err
	}
	key, err := material.PrivateKey()
	if err != nil {
		return nil, err
	}

	m.signer = key
	return key, nil
}

func cloneToken(tok *oauth2.Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
	}
}
