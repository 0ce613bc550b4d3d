package models

import (
	"encoding/json"
	"time"
)

// InboundMessage is a webhook payload stored verbatim.
type InboundMessage struct {
	ID         string          `json:"id"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}
