package credentials

import (
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// Validate checks the fields needed to mint a token
func Validate(creds *ServiceAccountCredential) error {
	if creds == nil {
		return errors.New(errors.ErrCredentialMalformed, "service account credential is nil")
	}

	if creds.Type != "" && creds.Type != ServiceAccountType {
		return errors.New(
			errors.ErrCredentialMalformed,
			"invalid credential type",
		).WithField("type", creds.Type).
			WithDetail("expected 'service_account'")
	}

	if creds.ClientEmail == "" {
		return errors.New(
			errors.ErrCredentialMalformed,
			"service account JSON missing client_email",
		)
	}

	if creds.PrivateKey == "" {
		return errors.New(
			errors.ErrCredentialMalformed,
			"service account JSON missing private_key",
		)
	}

	return nil
}
