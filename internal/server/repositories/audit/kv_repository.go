package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/server/kv"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
)

type KVRepository struct {
	store kv.Store
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Append(ctx context.Context, e *models.AuditEntry, ttl time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	return r.store.Put(ctx, entryKey(e), string(b), ttl)
}

// keyTimeLayout is fixed width, so keys sort in timestamp order.
const keyTimeLayout = "20060102T150405.000000000Z"

// entryKey is audit:<utc timestamp>:<id>.
func entryKey(e *models.AuditEntry) string {
	return common.AuditPrefix + e.Timestamp.UTC().Format(keyTimeLayout) + ":" + e.ID
}

// List caps on key order, which is timestamp order with ties broken by ID.
func (r *KVRepository) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	keys, err := r.store.List(ctx, common.AuditPrefix, 0)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	entries := make([]models.AuditEntry, 0, len(keys))
	for _, k := range keys {
		raw, err := r.store.Get(ctx, k)
		if errors.Is(err, common.ErrNotFound) {
			// expired between List and Get
			continue
		}
		if err != nil {
			return nil, err
		}

		var e models.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})

	return entries, nil
}
