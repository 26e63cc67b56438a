package health

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenSource is anything that can produce an access token on demand
type TokenSource interface {
	AccessToken(ctx context.Context) (*oauth2.Token, error)
}

// TokenCheck reports ready once an access token can be obtained. Cached
// tokens make repeated probes cheap.
func TokenCheck(src TokenSource) Check {
	return func(ctx context.Context) error {
		tok, err := src.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("access token unavailable: %w", err)
		}
		if !tok.Valid() {
			return fmt.Errorf("access token is expired")
		}
		return nil
	}
}

// TableReferencer exposes the configured remote table reference
type TableReferencer interface {
	TableReference() (string, error)
}

// TableCheck verifies the configured table reference is well formed
func TableCheck(t TableReferencer) Check {
	return func(ctx context.Context) error {
		if _, err := t.TableReference(); err != nil {
			return fmt.Errorf("invalid table reference: %w", err)
		}
		return nil
	}
}

// CombinedCheck combines multiple checks with AND logic
// All checks must pass for the combined check to pass
func CombinedCheck(checks ...Check) Check {
	return func(ctx context.Context) error {
		for i, check := range checks {
			if err := check(ctx); err != nil {
				return fmt.Errorf("check %d failed: %w", i, err)
			}
		}
		return nil
	}
}
