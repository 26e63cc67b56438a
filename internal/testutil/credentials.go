// Package testutil provides shared fixtures for the adapter's tests
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"sync"
	"time"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/credentials"
)

// TestClientEmail is the service account identity used across tests
const TestClientEmail = "bq-reader@myproject-469115.iam.gserviceaccount.com"

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
	testPEM string
)

// TestKey returns a 2048-bit RSA key generated once per test binary along
// with its PKCS#8 PEM encoding.
func TestKey() (*rsa.PrivateKey, string) {
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			panic(err)
		}
		testKey = key
		testPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	})
	return testKey, testPEM
}

// CreateValidServiceAccount returns a credential carrying a real test key
func CreateValidServiceAccount() *credentials.ServiceAccountCredential {
	_, keyPEM := TestKey()
	return &credentials.ServiceAccountCredential{
		Type:         credentials.ServiceAccountType,
		ProjectID:    FixtureProjectID,
		PrivateKeyID: "abcdef1234567890",
		PrivateKey:   keyPEM,
		ClientEmail:  TestClientEmail,
		ClientID:     "123456789012345678901",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     "https://oauth2.googleapis.com/token",
	}
}

// ServiceAccountJSON renders CreateValidServiceAccount as a JSON document
func ServiceAccountJSON() string {
	data, err := json.Marshal(CreateValidServiceAccount())
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MockTime is a settable clock for time-dependent logic
type MockTime struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

// NewMockTime creates a new mock time with the specified current time
func NewMockTime(now time.Time) *MockTime {
	return &MockTime{CurrentTime: now}
}

// Now returns the mocked current time
func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CurrentTime
}

// Advance moves the clock forward by d
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentTime = m.CurrentTime.Add(d)
}
