package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/auth"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
)

// CheckoutInput is the data needed to open a checkout session.
type CheckoutInput struct {
	ItemRef  string
	BuyerRef string
	Manifest json.RawMessage
	Presold  bool
}

// CheckoutService creates checkout sessions and resolves their delivery
// artifacts. A session gets at most one artifact.
type CheckoutService struct {
	repomanager repomanager.RepositoryManager
	config      *config.Config
	signer      *auth.DeliverySigner
	presigner   Presigner
	audit       *AuditService
	metrics     *metrics.Collectors
	logger      logging.Logger
}

func NewCheckoutService(m repomanager.RepositoryManager, cfg *config.Config, signer *auth.DeliverySigner, presigner Presigner, audit *AuditService, mc *metrics.Collectors, logger logging.Logger) *CheckoutService {
	return &CheckoutService{
		repomanager: m,
		config:      cfg,
		signer:      signer,
		presigner:   presigner,
		audit:       audit,
		metrics:     mc,
		logger:      logger.With("module", "checkout"),
	}
}

// Create persists a pending session. Presold sessions are delivered before
// returning.
func (s *CheckoutService) Create(ctx context.Context, in CheckoutInput) (*models.Session, error) {
	itemRef := strings.TrimSpace(in.ItemRef)
	if itemRef == "" {
		return nil, fmt.Errorf("%w: itemRef is required", common.ErrBadRequest)
	}

	sess := &models.Session{
		SessionID: newSessionID(),
		ItemRef:   itemRef,
		BuyerRef:  strings.TrimSpace(in.BuyerRef),
		Manifest:  in.Manifest,
		Presold:   in.Presold,
		Status:    models.SessionPending,
		CreatedAt: now(),
	}

	if err := s.repomanager.Sessions().SaveSession(ctx, sess, s.config.SessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.audit.record(ctx, models.ActionCheckoutCreated, map[string]any{
		"sessionId": sess.SessionID,
		"itemRef":   sess.ItemRef,
		"presold":   sess.Presold,
	})

	if !sess.Presold {
		return sess, nil
	}
	return s.deliver(ctx, sess)
}

// Resolve returns the session with its delivery, generating the delivery on
// first use.
func (s *CheckoutService) Resolve(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", common.ErrBadRequest)
	}

	sess, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Delivered() {
		return sess, nil
	}
	return s.deliver(ctx, sess)
}

// Download checks a delivery token and returns a short-lived object storage
// URL for the delivered item.
func (s *CheckoutService) Download(ctx context.Context, sessionID, token string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", common.ErrBadRequest)
	}
	if token == "" {
		return "", common.ErrInvalidToken
	}

	itemRef, err := s.signer.Verify(token, sessionID)
	if err != nil {
		return "", err
	}

	sess, err := s.find(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !sess.Delivered() {
		return "", fmt.Errorf("%w: session %s has no delivery", common.ErrNotFound, sessionID)
	}
	if sess.ItemRef != itemRef {
		return "", common.ErrInvalidToken
	}

	u, err := s.presigner.PresignGet(ctx, s.config.S3ItemPrefix+itemRef, s.config.DownloadURLValidity)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u, nil
}

func (s *CheckoutService) find(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.repomanager.Sessions().FindSession(ctx, sessionID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// DeliveryURL is derived only from the session and item, so it is the same
// every time it is computed.
func (s *CheckoutService) DeliveryURL(sessionID, itemRef string) (string, error) {
	token, err := s.signer.Sign(sessionID, itemRef)
	if err != nil {
		return "", fmt.Errorf("sign delivery: %w", err)
	}
	base := strings.TrimRight(s.config.PublicBaseURL, "/")
	return fmt.Sprintf("%s/api/download/%s?token=%s", base, url.PathEscape(sessionID), url.QueryEscape(token)), nil
}

// deliver claims the delivery slot for sess. When another request claimed it
// first, its artifact is adopted instead.
func (s *CheckoutService) deliver(ctx context.Context, sess *models.Session) (*models.Session, error) {
	u, err := s.DeliveryURL(sess.SessionID, sess.ItemRef)
	if err != nil {
		return nil, err
	}

	candidate := models.Delivery{URL: u, ItemRef: sess.ItemRef, IssuedAt: now()}

	repo := s.repomanager.Sessions()
	d, won, err := repo.ClaimDelivery(ctx, sess.SessionID, candidate, s.config.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("claim delivery: %w", err)
	}

	issued := d.IssuedAt
	sess.Delivery = &d
	sess.DeliveredAt = &issued
	sess.Status = models.SessionDelivered

	if err := repo.SaveSession(ctx, sess, s.config.SessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if won {
		s.metrics.DeliveryIssued()
		s.audit.record(ctx, models.ActionDeliveryIssued, map[string]any{
			"sessionId": sess.SessionID,
			"itemRef":   sess.ItemRef,
		})
	}

	return sess, nil
}
