// Package client talks to a running storekeeper server over its JSON API.
package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/netx"
	"github.com/dmitrijs2005/storekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Health returns nil when the server and its store are reachable.
func (c *Client) Health(ctx context.Context) error {
	return netx.DoJSON(ctx, c.http, http.MethodGet, c.url("/healthz", nil), nil, nil, nil)
}

// StoreSecrets performs the one-time bulk write and returns the stored names.
func (c *Client) StoreSecrets(ctx context.Context, token string, secrets map[string]string) ([]string, error) {
	h := http.Header{}
	h.Set(common.SetupTokenHeaderName, token)

	var resp httpapi.StoreSecretsResponse
	if err := netx.DoJSON(ctx, c.http, http.MethodPost, c.url("/api/store-secrets", nil), h, secrets, &resp); err != nil {
		return nil, err
	}
	return resp.StoredKeys, nil
}

func (c *Client) SetupStatus(ctx context.Context) (bool, error) {
	var resp httpapi.SetupStatusResponse
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.url("/api/setup/status", nil), nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Initialized, nil
}

func (c *Client) AuditLogs(ctx context.Context) ([]models.AuditEntry, error) {
	var resp httpapi.AuditLogsResponse
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.url("/api/audit/logs", nil), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *Client) RecordAudit(ctx context.Context, action string, details map[string]any) (*models.AuditEntry, error) {
	req := httpapi.AuditRequest{Action: action, Details: details}

	var resp httpapi.AuditResponse
	if err := netx.DoJSON(ctx, c.http, http.MethodPost, c.url("/api/audit", nil), nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

// OAuthStatus reports whether provider has a stored token.
func (c *Client) OAuthStatus(ctx context.Context, provider string) (*httpapi.OAuthStatusResponse, error) {
	var resp httpapi.OAuthStatusResponse
	q := url.Values{"provider": {provider}}
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.url("/api/oauth/status", q), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Grant creates a presold checkout, which yields a delivery link immediately.
func (c *Client) Grant(ctx context.Context, itemRef, buyerRef string) (*httpapi.CreateCheckoutResponse, error) {
	req := httpapi.CreateCheckoutRequest{ItemRef: itemRef, BuyerRef: buyerRef, Presold: true}

	var resp httpapi.CreateCheckoutResponse
	if err := netx.DoJSON(ctx, c.http, http.MethodPost, c.url("/api/create-checkout", nil), nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Deliver resolves the delivery link for a session, issuing it if needed.
func (c *Client) Deliver(ctx context.Context, sessionID string) (*httpapi.DeliverResponse, error) {
	var resp httpapi.DeliverResponse
	q := url.Values{"session_id": {sessionID}}
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.url("/api/deliver", q), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
