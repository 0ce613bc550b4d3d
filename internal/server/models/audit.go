package models

import "time"

// Audit actions recorded by the server itself.
const (
	ActionSecretsStored   = "secrets_stored"
	ActionOAuthConnected  = "oauth_connected"
	ActionCheckoutCreated = "checkout_created"
	ActionDeliveryIssued  = "delivery_issued"
	ActionInboundEmail    = "inbound_email"

	// ActionUnspecified stands in for a caller entry without an action.
	ActionUnspecified = "unspecified"
)

// AuditEntry is an append-only record of an administrative action.
// Admin is always stamped by the server.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Admin     string         `json:"admin"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}
