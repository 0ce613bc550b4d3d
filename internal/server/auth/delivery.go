// Package auth signs delivery links and checks the setup credential.
package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DeliveryClaims binds a download token to one session and item.
// There are no time claims, so the token for a session never changes.
type DeliveryClaims struct {
	jwt.RegisteredClaims
	ItemRef string `json:"item"`
}

// DeliverySigner issues and checks HS256 delivery tokens.
type DeliverySigner struct {
	key []byte
}

func NewDeliverySigner(key string) *DeliverySigner {
	return &DeliverySigner{key: []byte(key)}
}

// Sign returns the token for sessionID and itemRef. The same inputs always
// produce the same token.
func (s *DeliverySigner) Sign(sessionID, itemRef string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, DeliveryClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sessionID},
		ItemRef:          itemRef,
	})
	return token.SignedString(s.key)
}

// Verify checks the signature and that the token was issued for sessionID.
// It returns the item the token grants.
func (s *DeliverySigner) Verify(tokenString, sessionID string) (string, error) {
	claims := &DeliveryClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject != sessionID {
		return "", common.ErrInvalidToken
	}

	return claims.ItemRef, nil
}
