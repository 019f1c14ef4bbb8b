// Package secrets resolves ${secret:name} references in configuration
// values from environment variables and mounted secret files.
package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no provider holds a secret.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// Get returns the value of the named secret. It returns an error
	// wrapping ErrNotFound when the backend has no such secret.
	Get(ctx context.Context, name string) (string, error)

	// Name returns the provider name (env, file).
	Name() string
}
