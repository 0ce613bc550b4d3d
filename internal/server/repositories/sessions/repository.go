// Package sessions declares the repository for the Sessions namespace:
// OAuth state tokens, checkout sessions and inbound messages.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/server/models"
)

type Repository interface {
	// SaveState stores an OAuth state token for ttl.
	SaveState(ctx context.Context, token string, state models.OAuthState, ttl time.Duration) error

	// FindState returns common.ErrNotFound for unknown or expired tokens.
	FindState(ctx context.Context, token string) (*models.OAuthState, error)

	DeleteState(ctx context.Context, token string) error

	// SaveSession writes the whole session record.
	SaveSession(ctx context.Context, s *models.Session, ttl time.Duration) error

	// FindSession returns common.ErrNotFound when no session exists.
	FindSession(ctx context.Context, id string) (*models.Session, error)

	// ClaimDelivery stores d as the delivery for session id unless one was
	// already claimed. It returns the delivery that won and whether it was d.
	ClaimDelivery(ctx context.Context, id string, d models.Delivery, ttl time.Duration) (models.Delivery, bool, error)

	// SaveInbound stores a received webhook payload. Messages are write-only
	// here and left for downstream processing.
	SaveInbound(ctx context.Context, m *models.InboundMessage, ttl time.Duration) error
}
