// Package secrets declares the repository for the Secrets namespace: bulk
// secrets written at setup, the initialization flag and OAuth tokens.
package secrets

import "context"

// Repository stores secret values. Implementations seal values at rest when
// configured to.
type Repository interface {
	// PutMany writes every secret. A failure leaves the initialization flag
	// untouched.
	PutMany(ctx context.Context, secrets map[string]string) error

	// Initialized reports whether bulk setup has ever succeeded.
	Initialized(ctx context.Context) (bool, error)

	// MarkInitialized sets the flag if it is absent and reports whether this
	// call set it.
	MarkInitialized(ctx context.Context) (bool, error)

	// SaveOAuthToken stores token material for provider, replacing any
	// previous token.
	SaveOAuthToken(ctx context.Context, provider, token string) error

	// OAuthToken returns the stored token for provider or common.ErrNotFound.
	OAuthToken(ctx context.Context, provider string) (string, error)
}
