package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxJSONBodyBytes = 1 << 20

// decodeJSON reads at most limit bytes of r's body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body, err := readBody(w, r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", common.ErrBadRequest)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, common.ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("%w: cannot read body", common.ErrBadRequest)
	}
	return body, nil
}

// setupToken takes the credential from X-Setup-Token, falling back to an
// Authorization bearer token.
func setupToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(common.SetupTokenHeaderName)); t != "" {
		return t
	}
	if t, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

func (h *handlers) storeSecrets(w http.ResponseWriter, r *http.Request) {
	token := setupToken(r)
	if err := h.svc.Setup.Authorize(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}

	var req StoreSecretsRequest
	if err := decodeJSON(w, r, maxJSONBodyBytes, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	keys, err := h.svc.Setup.Initialize(r.Context(), token, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StoreSecretsResponse{OK: true, StoredKeys: keys})
}

func (h *handlers) setupStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Setup.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SetupStatusResponse{OK: true, Initialized: ok})
}

func (h *handlers) oauthInit(w http.ResponseWriter, r *http.Request) {
	target, err := h.svc.OAuth.Initiate(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Connected</title></head>
<body>
<h1>{{.}} connected</h1>
<p>The authorization completed. You can close this window.</p>
</body>
</html>
`))

func (h *handlers) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	provider, err := h.svc.OAuth.Complete(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := callbackPage.Execute(w, provider); err != nil {
		h.logger.Error(r.Context(), "render callback page", "error", err)
	}
}

func (h *handlers) oauthStatus(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.OAuth.Connection(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OAuthStatusResponse{OK: true, Provider: c.Provider, Connected: c.Connected, Expiry: c.Expiry})
}

func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := decodeJSON(w, r, maxJSONBodyBytes, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.svc.Checkout.Create(r.Context(), services.CheckoutInput{
		ItemRef:  req.ItemRef,
		BuyerRef: req.BuyerRef,
		Manifest: req.Manifest,
		Presold:  req.Presold,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateCheckoutResponse{
		OK:        true,
		SessionID: sess.SessionID,
		Status:    sess.Status,
		Delivery:  sess.Delivery,
	})
}

func (h *handlers) deliver(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Checkout.Resolve(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeliverResponse{OK: true, SessionID: sess.SessionID, Delivery: sess.Delivery})
}

func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	target, err := h.svc.Checkout.Download(r.Context(), chi.URLParam(r, "sessionId"), r.URL.Query().Get("token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *handlers) recordAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if err := decodeJSON(w, r, maxJSONBodyBytes, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, err := h.svc.Audit.Record(r.Context(), req.Entry())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditResponse{OK: true, Entry: entry})
}

func (h *handlers) auditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Audit.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditLogsResponse{OK: true, Count: len(logs), Logs: logs})
}

func (h *handlers) inboundEmail(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, services.MaxInboundBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.svc.Inbound.Receive(r.Context(), json.RawMessage(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InboundResponse{OK: true, ID: id})
}
