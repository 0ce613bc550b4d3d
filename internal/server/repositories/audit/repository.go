// Package audit declares the repository for the append-only Audit namespace.
package audit

import (
	"context"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/server/models"
)

type Repository interface {
	// Append stores e under its ID. Entries are never updated.
	Append(ctx context.Context, e *models.AuditEntry, ttl time.Duration) error

	// List returns the limit entries with the latest timestamps, newest
	// first. A limit of zero or less returns everything.
	List(ctx context.Context, limit int) ([]models.AuditEntry, error)
}
