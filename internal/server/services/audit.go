package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
)

type AuditService struct {
	repomanager repomanager.RepositoryManager
	admin       string
	ttl         time.Duration
	limit       int
	metrics     *metrics.Collectors
	logger      logging.Logger
}

func NewAuditService(m repomanager.RepositoryManager, cfg *config.Config, mc *metrics.Collectors, logger logging.Logger) *AuditService {
	return &AuditService{
		repomanager: m,
		admin:       cfg.AdminIdentity,
		ttl:         cfg.AuditTTL,
		limit:       cfg.AuditListLimit,
		metrics:     mc,
		logger:      logger.With("module", "audit"),
	}
}

// Record appends e. The admin field is always replaced with the configured
// identity; a zero timestamp is set to now and a blank action is stored as
// "unspecified".
func (s *AuditService) Record(ctx context.Context, e models.AuditEntry) (*models.AuditEntry, error) {
	e.Action = strings.TrimSpace(e.Action)
	if e.Action == "" {
		e.Action = models.ActionUnspecified
	}

	id, err := newAuditID()
	if err != nil {
		return nil, fmt.Errorf("generate audit id: %w", err)
	}
	e.ID = id
	e.Admin = s.admin
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}

	if err := s.repomanager.Audit().Append(ctx, &e, s.ttl); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	s.metrics.AuditEntry(e.Action)

	return &e, nil
}

// List returns the newest entries first, capped at the configured limit.
func (s *AuditService) List(ctx context.Context) ([]models.AuditEntry, error) {
	entries, err := s.repomanager.Audit().List(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// record is used by the other services. Failures are logged and swallowed:
// the action itself already happened.
func (s *AuditService) record(ctx context.Context, action string, details map[string]any) {
	if _, err := s.Record(ctx, models.AuditEntry{Action: action, Details: details}); err != nil {
		s.logger.Error(ctx, "audit write failed", "action", action, "error", err)
	}
}
