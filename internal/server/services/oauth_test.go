package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/kv"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenEndpoint struct {
	status int
	body   string
	form   url.Values
}

func (e *tokenEndpoint) serve(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		e.form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(e.status)
		_, _ = w.Write([]byte(e.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newOAuthEnv(t *testing.T, tokenURL string) (*testEnv, *OAuthService) {
	t.Helper()
	env := newTestEnv(t)
	env.cfg.OAuthRedirectURL = "https://shop.example/api/oauth/callback"
	env.cfg.OAuthProviders = map[string]config.OAuthProvider{
		"github": {
			ClientID:     "client-1",
			ClientSecret: "very-secret",
			AuthURL:      "https://provider.example/authorize",
			TokenURL:     tokenURL,
			Scope:        "repo read:user",
		},
		"noauth":  {ClientID: "c", TokenURL: tokenURL},
		"notoken": {ClientID: "c", AuthURL: "https://provider.example/authorize"},
	}
	svc := NewOAuthService(env.rm, env.cfg, http.DefaultClient, env.audit, env.metrics, logging.Discard())
	return env, svc
}

func stateFrom(t *testing.T, redirect string) string {
	t.Helper()
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestOAuthService_Initiate(t *testing.T) {
	env, svc := newOAuthEnv(t, "https://provider.example/token")
	ctx := context.Background()

	redirect, err := svc.Initiate(ctx, "GitHub")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "provider.example", u.Host)
	assert.Equal(t, "/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://shop.example/api/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "repo read:user", q.Get("scope"))
	assert.Len(t, q.Get("state"), 64)
	assert.Empty(t, q.Get("client_secret"))

	st, err := env.rm.Sessions().FindState(ctx, q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "github", st.Provider)

	other, err := svc.Initiate(ctx, "github")
	require.NoError(t, err)
	assert.NotEqual(t, q.Get("state"), stateFrom(t, other))
}

func TestOAuthService_InitiateRejects(t *testing.T) {
	_, svc := newOAuthEnv(t, "https://provider.example/token")

	for _, provider := range []string{"", "  ", "unknown", "noauth"} {
		t.Run(provider, func(t *testing.T) {
			_, err := svc.Initiate(context.Background(), provider)
			require.ErrorIs(t, err, common.ErrBadRequest)
		})
	}
}

func TestOAuthService_InitiateWithoutRedirect(t *testing.T) {
	env, svc := newOAuthEnv(t, "https://provider.example/token")
	env.cfg.OAuthRedirectURL = ""

	_, err := svc.Initiate(context.Background(), "github")
	require.ErrorIs(t, err, common.ErrBadRequest)
}

func TestOAuthService_Complete(t *testing.T) {
	ep := &tokenEndpoint{status: http.StatusOK, body: `{"access_token":"gho_abc","token_type":"bearer","refresh_token":"r1"}`}
	srv := ep.serve(t)
	env, svc := newOAuthEnv(t, srv.URL+"/token")
	ctx := context.Background()

	redirect, err := svc.Initiate(ctx, "github")
	require.NoError(t, err)
	state := stateFrom(t, redirect)

	provider, err := svc.Complete(ctx, "the-code", state)
	require.NoError(t, err)
	assert.Equal(t, "github", provider)

	assert.Equal(t, "authorization_code", ep.form.Get("grant_type"))
	assert.Equal(t, "the-code", ep.form.Get("code"))
	assert.Equal(t, "https://shop.example/api/oauth/callback", ep.form.Get("redirect_uri"))
	assert.Equal(t, "client-1", ep.form.Get("client_id"))
	assert.Equal(t, "very-secret", ep.form.Get("client_secret"))

	raw, err := env.rm.Secrets().OAuthToken(ctx, "github")
	require.NoError(t, err)
	var tok map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &tok))
	assert.Equal(t, "gho_abc", tok["access_token"])

	_, err = env.rm.Sessions().FindState(ctx, state)
	require.ErrorIs(t, err, common.ErrNotFound)

	log := env.auditLog(t)
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionOAuthConnected, log[0].Action)
	assert.Equal(t, "github", log[0].Details["provider"])
	assert.NotContains(t, raw, "very-secret")

	// the state was consumed
	_, err = svc.Complete(ctx, "the-code", state)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestOAuthService_CompleteRefreshOverwrites(t *testing.T) {
	ep := &tokenEndpoint{status: http.StatusOK, body: `{"access_token":"first","token_type":"bearer"}`}
	srv := ep.serve(t)
	env, svc := newOAuthEnv(t, srv.URL)
	ctx := context.Background()

	r1, err := svc.Initiate(ctx, "github")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "c1", stateFrom(t, r1))
	require.NoError(t, err)

	ep.body = `{"access_token":"second","token_type":"bearer"}`
	r2, err := svc.Initiate(ctx, "github")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "c2", stateFrom(t, r2))
	require.NoError(t, err)

	raw, err := env.rm.Secrets().OAuthToken(ctx, "github")
	require.NoError(t, err)
	assert.Contains(t, raw, "second")
}

func TestOAuthService_CompleteInvalidState(t *testing.T) {
	ep := &tokenEndpoint{status: http.StatusOK, body: `{"access_token":"x"}`}
	srv := ep.serve(t)
	env, svc := newOAuthEnv(t, srv.URL)
	ctx := context.Background()

	t.Run("never issued", func(t *testing.T) {
		for _, code := range []string{"valid-code", "junk"} {
			_, err := svc.Complete(ctx, code, "deadbeef")
			require.ErrorIs(t, err, common.ErrInvalidState)
		}
		assert.Nil(t, ep.form, "token endpoint must not be called")
	})

	t.Run("expired", func(t *testing.T) {
		store := env.ns.Sessions.(*kv.MemoryStore)
		clock := time.Now()
		store.SetClock(func() time.Time { return clock })

		redirect, err := svc.Initiate(ctx, "github")
		require.NoError(t, err)

		clock = clock.Add(env.cfg.OAuthStateTTL + time.Second)
		_, err = svc.Complete(ctx, "valid-code", stateFrom(t, redirect))
		require.ErrorIs(t, err, common.ErrInvalidState)
		assert.Nil(t, ep.form)
	})
}

func TestOAuthService_CompleteMissingParams(t *testing.T) {
	_, svc := newOAuthEnv(t, "https://provider.example/token")

	_, err := svc.Complete(context.Background(), "", "s")
	require.ErrorIs(t, err, common.ErrBadRequest)
	_, err = svc.Complete(context.Background(), "c", "")
	require.ErrorIs(t, err, common.ErrBadRequest)
}

func TestOAuthService_CompleteTokenConfigMissing(t *testing.T) {
	env, svc := newOAuthEnv(t, "https://provider.example/token")
	ctx := context.Background()

	redirect, err := svc.Initiate(ctx, "notoken")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "code", stateFrom(t, redirect))
	require.ErrorIs(t, err, common.ErrInternalConfig)
	assert.Empty(t, env.auditLog(t))
}

func TestOAuthService_CompleteUpstreamError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "oauth error", status: http.StatusBadRequest, body: `{"error":"invalid_grant","error_description":"code expired","debug":"client_secret=very-secret"}`, wantMsg: "invalid_grant: code expired"},
		{name: "error code only", status: http.StatusUnauthorized, body: `{"error":"invalid_client"}`, wantMsg: "invalid_client"},
		{name: "opaque body", status: http.StatusInternalServerError, body: `upstream exploded very-secret`, wantMsg: "token endpoint returned status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := &tokenEndpoint{status: tt.status, body: tt.body}
			srv := ep.serve(t)
			env, svc := newOAuthEnv(t, srv.URL)
			ctx := context.Background()

			redirect, err := svc.Initiate(ctx, "github")
			require.NoError(t, err)

			_, err = svc.Complete(ctx, "code", stateFrom(t, redirect))
			require.ErrorIs(t, err, common.ErrUpstream)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NotContains(t, err.Error(), "very-secret")

			_, err = env.rm.Secrets().OAuthToken(ctx, "github")
			require.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestOAuthService_Connection(t *testing.T) {
	ep := &tokenEndpoint{status: http.StatusOK, body: `{"access_token":"gho_abc","token_type":"bearer","expires_in":3600}`}
	srv := ep.serve(t)
	env, svc := newOAuthEnv(t, srv.URL)
	ctx := context.Background()

	c, err := svc.Connection(ctx, "GitHub")
	require.NoError(t, err)
	assert.Equal(t, &Connection{Provider: "github"}, c)

	redirect, err := svc.Initiate(ctx, "github")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "code", stateFrom(t, redirect))
	require.NoError(t, err)

	c, err = svc.Connection(ctx, "github")
	require.NoError(t, err)
	assert.True(t, c.Connected)
	require.NotNil(t, c.Expiry)
	assert.Equal(t, time.UTC, c.Expiry.Location())

	for _, provider := range []string{"", "gitlab"} {
		_, err = svc.Connection(ctx, provider)
		require.ErrorIs(t, err, common.ErrBadRequest)
	}

	require.NoError(t, env.rm.Secrets().SaveOAuthToken(ctx, "github", "{"))
	_, err = svc.Connection(ctx, "github")
	require.ErrorContains(t, err, "decode token")
}
