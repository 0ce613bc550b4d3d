// Package repomanager vends the repositories backed by the three key-value
// namespaces.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storekeeper/internal/cryptox"
	"github.com/dmitrijs2005/storekeeper/internal/server/kv"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/audit"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/secrets"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/sessions"
)

// KVRepositoryManager holds one repository per namespace.
type KVRepositoryManager struct {
	ns       *kv.Namespaces
	secrets  *secrets.KVRepository
	sessions *sessions.KVRepository
	audit    *audit.KVRepository
}

// NewKVRepositoryManager builds the repositories. When passphrase is set,
// secret values are sealed with a key derived from it.
func NewKVRepositoryManager(ctx context.Context, ns *kv.Namespaces, passphrase string) (*KVRepositoryManager, error) {
	sealer, err := secrets.NewSealer(ctx, ns.Secrets, passphrase)
	if err != nil {
		return nil, fmt.Errorf("init sealer: %w", err)
	}
	return newManager(ns, sealer), nil
}

func newManager(ns *kv.Namespaces, sealer cryptox.Sealer) *KVRepositoryManager {
	return &KVRepositoryManager{
		ns:       ns,
		secrets:  secrets.NewKVRepository(ns.Secrets, sealer),
		sessions: sessions.NewKVRepository(ns.Sessions),
		audit:    audit.NewKVRepository(ns.Audit),
	}
}

func (m *KVRepositoryManager) Secrets() secrets.Repository   { return m.secrets }
func (m *KVRepositoryManager) Sessions() sessions.Repository { return m.sessions }
func (m *KVRepositoryManager) Audit() audit.Repository       { return m.audit }

// Ping checks that every namespace is reachable.
func (m *KVRepositoryManager) Ping(ctx context.Context) error {
	return m.ns.Ping(ctx)
}
