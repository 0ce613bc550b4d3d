package services

import (
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/google/uuid"
)

// Seams for tests.
var (
	now = func() time.Time { return time.Now().UTC() }

	newAuditID = func() (string, error) {
		id, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}

	newSessionID = func() string { return uuid.NewString() }
	newMessageID = func() string { return uuid.NewString() }

	newStateToken = func() (string, error) { return common.MakeRandHexString(32) }
)
