package models

import "time"

// OAuthState binds an authorization redirect to its callback.
type OAuthState struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}
