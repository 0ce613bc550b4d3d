package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/auth"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
)

type SetupService struct {
	repomanager repomanager.RepositoryManager
	setupToken  string
	audit       *AuditService
	metrics     *metrics.Collectors
	logger      logging.Logger
}

func NewSetupService(m repomanager.RepositoryManager, cfg *config.Config, audit *AuditService, mc *metrics.Collectors, logger logging.Logger) *SetupService {
	return &SetupService{
		repomanager: m,
		setupToken:  cfg.SetupToken,
		audit:       audit,
		metrics:     mc,
		logger:      logger.With("module", "setup"),
	}
}

// ValidateSecrets rejects empty maps, blank names and reserved prefixes.
func ValidateSecrets(secrets map[string]string) error {
	if len(secrets) == 0 {
		return fmt.Errorf("%w: no secrets provided", common.ErrBadRequest)
	}
	for k := range secrets {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: secret name must not be empty", common.ErrBadRequest)
		}
		for _, p := range common.ReservedSecretPrefixes {
			if strings.HasPrefix(k, p) {
				return fmt.Errorf("%w: secret name %q uses reserved prefix %q", common.ErrBadRequest, k, p)
			}
		}
	}
	return nil
}

// Initialize stores secrets exactly once over the lifetime of the store.
// Every secret is written before the initialization flag, so a failed write
// leaves setup retryable. Returns the stored key names, sorted.
func (s *SetupService) Initialize(ctx context.Context, token string, secrets map[string]string) ([]string, error) {
	keys, err := s.initialize(ctx, token, secrets)
	s.metrics.SetupAttempt(setupOutcome(err))
	return keys, err
}

// Authorize runs the checks that do not depend on the payload: credential
// presence, the one-time flag, then the credential itself. Callers run it
// before decoding the request so an initialized store answers "already
// initialized" whatever the body holds.
func (s *SetupService) Authorize(ctx context.Context, token string) error {
	err := s.authorize(ctx, token)
	if err != nil {
		s.metrics.SetupAttempt(setupOutcome(err))
	}
	return err
}

func (s *SetupService) authorize(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrUnauthorized
	}

	initialized, err := s.repomanager.Secrets().Initialized(ctx)
	if err != nil {
		return fmt.Errorf("read initialization flag: %w", err)
	}
	if initialized {
		return common.ErrAlreadyInitialized
	}

	if err := auth.CheckSetupToken(token, s.setupToken); err != nil {
		if errors.Is(err, common.ErrInternalConfig) {
			s.logger.Error(ctx, "setup token is not configured")
			return fmt.Errorf("%w: setup token is not configured", err)
		}
		return fmt.Errorf("%w: invalid setup token", err)
	}
	return nil
}

func (s *SetupService) initialize(ctx context.Context, token string, secrets map[string]string) ([]string, error) {
	if err := s.authorize(ctx, token); err != nil {
		return nil, err
	}

	repo := s.repomanager.Secrets()

	if err := ValidateSecrets(secrets); err != nil {
		return nil, err
	}

	if err := repo.PutMany(ctx, secrets); err != nil {
		return nil, fmt.Errorf("store secrets: %w", err)
	}

	won, err := repo.MarkInitialized(ctx)
	if err != nil {
		return nil, fmt.Errorf("set initialization flag: %w", err)
	}
	if !won {
		s.logger.Warn(ctx, "setup lost initialization race")
		return nil, common.ErrAlreadyInitialized
	}

	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.audit.record(ctx, models.ActionSecretsStored, map[string]any{"keys": keys, "count": len(keys)})
	s.logger.Info(ctx, "secrets initialized", "count", len(keys))

	return keys, nil
}

// Status reports whether setup has completed.
func (s *SetupService) Status(ctx context.Context) (bool, error) {
	ok, err := s.repomanager.Secrets().Initialized(ctx)
	if err != nil {
		return false, fmt.Errorf("read initialization flag: %w", err)
	}
	return ok, nil
}

func setupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, common.ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}
