package repomanager

import (
	"context"

	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/audit"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/secrets"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	Secrets() secrets.Repository
	Sessions() sessions.Repository
	Audit() audit.Repository
	Ping(ctx context.Context) error
}
