package auth

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/storekeeper/internal/common"
)

// CheckSetupToken compares the presented setup credential with the
// configured one in constant time.
func CheckSetupToken(provided, configured string) error {
	if provided == "" {
		return common.ErrUnauthorized
	}
	if configured == "" {
		return common.ErrInternalConfig
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) != 1 {
		return common.ErrForbidden
	}
	return nil
}
