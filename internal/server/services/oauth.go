package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
	"golang.org/x/oauth2"
)

// OAuthService brokers the authorization-code handshake with configured
// providers and stores the resulting tokens.
type OAuthService struct {
	repomanager repomanager.RepositoryManager
	config      *config.Config
	client      *http.Client
	audit       *AuditService
	metrics     *metrics.Collectors
	logger      logging.Logger
}

// NewOAuthService builds the broker. client is used for token exchanges; nil
// means http.DefaultClient.
func NewOAuthService(m repomanager.RepositoryManager, cfg *config.Config, client *http.Client, audit *AuditService, mc *metrics.Collectors, logger logging.Logger) *OAuthService {
	return &OAuthService{
		repomanager: m,
		config:      cfg,
		client:      client,
		audit:       audit,
		metrics:     mc,
		logger:      logger.With("module", "oauth"),
	}
}

func (s *OAuthService) oauthConfig(p config.OAuthProvider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL,
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: s.config.OAuthRedirectURL,
		Scopes:      strings.Fields(p.Scope),
	}
}

// Initiate stores a fresh state token and returns the provider's
// authorization URL carrying it.
func (s *OAuthService) Initiate(ctx context.Context, provider string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		return "", fmt.Errorf("%w: provider is required", common.ErrBadRequest)
	}

	p, ok := s.config.Provider(name)
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", common.ErrBadRequest, name)
	}
	if !p.CanInitiate(s.config.OAuthRedirectURL) {
		return "", fmt.Errorf("%w: provider %q is not fully configured", common.ErrBadRequest, name)
	}

	state, err := newStateToken()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	st := models.OAuthState{Provider: name, CreatedAt: now()}
	if err := s.repomanager.Sessions().SaveState(ctx, state, st, s.config.OAuthStateTTL); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}

	return s.oauthConfig(p).AuthCodeURL(state), nil
}

// Complete exchanges code for a token using the provider bound to state and
// returns the provider name.
func (s *OAuthService) Complete(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		return "", fmt.Errorf("%w: code and state are required", common.ErrBadRequest)
	}

	sessions := s.repomanager.Sessions()

	st, err := sessions.FindState(ctx, state)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}

	p, ok := s.config.Provider(st.Provider)
	if !ok || !p.CanExchange(s.config.OAuthRedirectURL) {
		return "", fmt.Errorf("%w: token endpoint for %q is not configured", common.ErrInternalConfig, st.Provider)
	}

	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}

	tok, err := s.oauthConfig(p).Exchange(ctx, code)
	if err != nil {
		s.metrics.OAuthExchange(st.Provider, "error")
		s.logger.Warn(ctx, "token exchange failed", "provider", st.Provider, "error", upstreamMessage(err))
		return "", fmt.Errorf("%w: %s", common.ErrUpstream, upstreamMessage(err))
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	if err := s.repomanager.Secrets().SaveOAuthToken(ctx, st.Provider, string(raw)); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	if err := sessions.DeleteState(ctx, state); err != nil {
		s.logger.Warn(ctx, "state cleanup failed", "provider", st.Provider, "error", err)
	}

	s.metrics.OAuthExchange(st.Provider, "ok")
	s.audit.record(ctx, models.ActionOAuthConnected, map[string]any{"provider": st.Provider})
	s.logger.Info(ctx, "oauth provider connected", "provider", st.Provider)

	return st.Provider, nil
}

// Connection describes the stored token for a provider without exposing it.
type Connection struct {
	Provider  string
	Connected bool
	Expiry    *time.Time
}

// Connection reports whether provider has completed the handshake and, when
// the token carries one, its expiry.
func (s *OAuthService) Connection(ctx context.Context, provider string) (*Connection, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		return nil, fmt.Errorf("%w: provider is required", common.ErrBadRequest)
	}
	if _, ok := s.config.Provider(name); !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", common.ErrBadRequest, name)
	}

	raw, err := s.repomanager.Secrets().OAuthToken(ctx, name)
	if errors.Is(err, common.ErrNotFound) {
		return &Connection{Provider: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	c := &Connection{Provider: name, Connected: true}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		c.Expiry = &exp
	}
	return c, nil
}

// upstreamMessage keeps only the OAuth error code and description from a
// failed exchange. The raw response body is never surfaced.
func upstreamMessage(err error) string {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return "token exchange failed"
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	switch {
	case re.ErrorCode != "" && re.ErrorDescription != "":
		return fmt.Sprintf("%s: %s", re.ErrorCode, re.ErrorDescription)
	case re.ErrorCode != "":
		return re.ErrorCode
	default:
		return fmt.Sprintf("token endpoint returned status %d", status)
	}
}
