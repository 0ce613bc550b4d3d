package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/kv"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	cfg     *config.Config
	ns      *kv.Namespaces
	rm      *repomanager.KVRepositoryManager
	metrics *metrics.Collectors
	audit   *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, kv.NewMemoryNamespaces())
}

func newTestEnvWith(t *testing.T, ns *kv.Namespaces) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SetupToken = "setup-secret"
	cfg.PublicBaseURL = "https://shop.example"

	rm, err := repomanager.NewKVRepositoryManager(context.Background(), ns, "")
	require.NoError(t, err)

	mc := metrics.New()
	return &testEnv{
		cfg:     cfg,
		ns:      ns,
		rm:      rm,
		metrics: mc,
		audit:   NewAuditService(rm, cfg, mc, logging.Discard()),
	}
}

// rebuild re-creates the audit service after cfg was changed.
func (e *testEnv) rebuild() {
	e.audit = NewAuditService(e.rm, e.cfg, e.metrics, logging.Discard())
}

func (e *testEnv) auditLog(t *testing.T) []models.AuditEntry {
	t.Helper()
	entries, err := e.audit.List(context.Background())
	require.NoError(t, err)
	return entries
}

func actions(entries []models.AuditEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

// freezeClock pins the package clock; every call advances it by a second so
// entries keep a stable order.
func freezeClock(t *testing.T) {
	t.Helper()
	orig := now
	t.Cleanup(func() { now = orig })

	cur := testNow
	now = func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}
