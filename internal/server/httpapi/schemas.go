package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
)

// StoreSecretsRequest is a flat object of secret name to value.
type StoreSecretsRequest map[string]string

type StoreSecretsResponse struct {
	OK         bool     `json:"ok"`
	StoredKeys []string `json:"storedKeys"`
}

type SetupStatusResponse struct {
	OK          bool `json:"ok"`
	Initialized bool `json:"initialized"`
}

type OAuthStatusResponse struct {
	OK        bool       `json:"ok"`
	Provider  string     `json:"provider"`
	Connected bool       `json:"connected"`
	Expiry    *time.Time `json:"expiry,omitempty"`
}

type CreateCheckoutRequest struct {
	ItemRef  string          `json:"itemRef"`
	BuyerRef string          `json:"buyerRef,omitempty"`
	Manifest json.RawMessage `json:"manifest,omitempty"`
	Presold  bool            `json:"presold"`
}

func (r *CreateCheckoutRequest) Validate() error {
	if strings.TrimSpace(r.ItemRef) == "" {
		return fmt.Errorf("%w: itemRef is required", common.ErrBadRequest)
	}
	return nil
}

type CreateCheckoutResponse struct {
	OK        bool             `json:"ok"`
	SessionID string           `json:"sessionId"`
	Status    string           `json:"status"`
	Delivery  *models.Delivery `json:"delivery,omitempty"`
}

type DeliverResponse struct {
	OK        bool             `json:"ok"`
	SessionID string           `json:"sessionId"`
	Delivery  *models.Delivery `json:"delivery"`
}

// AuditRequest is a caller-supplied audit entry. Any admin value is ignored.
type AuditRequest struct {
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Admin     string         `json:"admin,omitempty"`
}

func (r *AuditRequest) Entry() models.AuditEntry {
	e := models.AuditEntry{Action: r.Action, Details: r.Details}
	if r.Timestamp != nil {
		e.Timestamp = r.Timestamp.UTC()
	}
	return e
}

type AuditResponse struct {
	OK    bool               `json:"ok"`
	Entry *models.AuditEntry `json:"entry"`
}

type AuditLogsResponse struct {
	OK    bool                `json:"ok"`
	Count int                 `json:"count"`
	Logs  []models.AuditEntry `json:"logs"`
}

type InboundResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}
