package credentials

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// Parse decodes a service-account JSON document and validates it
func Parse(data []byte) (*ServiceAccountCredential, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New(
			errors.ErrCredentialMalformed,
			"service account JSON is empty",
		)
	}

	var creds ServiceAccountCredential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrap(
			errors.ErrCredentialMalformed,
			err,
			"failed to parse service account JSON",
		)
	}

	if err := Validate(&creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// LoadFile reads a service-account key file from disk and returns its raw
// contents after checking that it parses.
func LoadFile(path string) (string, error) {
	if path == "" {
		return "", errors.New(
			errors.ErrInvalidArgument,
			"service account file path not provided",
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(
			errors.ErrConfigLoadFailed,
			err,
			"failed to read service account file",
		).WithField("path", redactPath(path))
	}

	if _, err := Parse(data); err != nil {
		var appErr *errors.Error
		if errors.As(err, &appErr) {
			appErr.WithField("path", redactPath(path))
		}
		return "", err
	}

	return string(data), nil
}

// redactPath redacts sensitive parts of file paths for logging
func redactPath(path string) string {
	if path == "" {
		return ""
	}
	// /vault/secrets/bigquery-sa.json -> .../bigquery-sa.json
	if len(path) > 20 {
		return "..." + path[len(path)-17:]
	}
	return path
}
