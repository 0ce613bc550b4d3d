package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
)

// MaxInboundBytes caps an inbound webhook body.
const MaxInboundBytes = 1 << 20

type InboundService struct {
	repomanager repomanager.RepositoryManager
	config      *config.Config
	audit       *AuditService
	metrics     *metrics.Collectors
	logger      logging.Logger
}

func NewInboundService(m repomanager.RepositoryManager, cfg *config.Config, audit *AuditService, mc *metrics.Collectors, logger logging.Logger) *InboundService {
	return &InboundService{
		repomanager: m,
		config:      cfg,
		audit:       audit,
		metrics:     mc,
		logger:      logger.With("module", "inbound"),
	}
}

// Receive stores any JSON object or array verbatim and returns its id.
// Authenticity is not checked.
func (s *InboundService) Receive(ctx context.Context, raw json.RawMessage) (string, error) {
	if len(raw) > MaxInboundBytes {
		return "", common.ErrPayloadTooLarge
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", fmt.Errorf("%w: body is not valid JSON", common.ErrBadRequest)
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return "", fmt.Errorf("%w: body must be a JSON object or array", common.ErrBadRequest)
	}

	msg := &models.InboundMessage{
		ID:         newMessageID(),
		ReceivedAt: now(),
		Payload:    json.RawMessage(trimmed),
	}
	if err := s.repomanager.Sessions().SaveInbound(ctx, msg, s.config.InboundTTL); err != nil {
		return "", fmt.Errorf("save inbound message: %w", err)
	}

	s.metrics.InboundMessage()
	s.audit.record(ctx, models.ActionInboundEmail, map[string]any{"id": msg.ID})
	s.logger.Debug(ctx, "inbound message stored", "id", msg.ID, "bytes", len(trimmed))

	return msg.ID, nil
}
