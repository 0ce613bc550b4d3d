// Package models defines the records the server persists in the key-value
// namespaces. Every record is stored as JSON.
package models

import (
	"encoding/json"
	"time"
)

// Checkout session statuses.
const (
	SessionPending   = "pending"
	SessionDelivered = "delivered"
)

// Delivery is the artifact handed to a buyer. Once stored on a session it is
// never regenerated.
type Delivery struct {
	URL      string    `json:"url"`
	ItemRef  string    `json:"itemRef"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Session is a checkout record.
type Session struct {
	SessionID   string          `json:"sessionId"`
	ItemRef     string          `json:"itemRef"`
	BuyerRef    string          `json:"buyerRef,omitempty"`
	Manifest    json.RawMessage `json:"manifest,omitempty"`
	Presold     bool            `json:"presold"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	Delivery    *Delivery       `json:"delivery,omitempty"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`
}

// Delivered reports whether a delivery artifact has been stored.
func (s *Session) Delivered() bool {
	return s.Delivery != nil
}
