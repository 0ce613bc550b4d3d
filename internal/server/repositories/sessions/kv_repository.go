package sessions

import (
	"context"
	"encoding/json"
	"fmt"
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

func (r *KVRepository) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.store.Put(ctx, key, string(b), ttl)
}

func (r *KVRepository) get(ctx context.Context, key string, v any) error {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) SaveState(ctx context.Context, token string, state models.OAuthState, ttl time.Duration) error {
	return r.put(ctx, common.OAuthStatePrefix+token, state, ttl)
}

func (r *KVRepository) FindState(ctx context.Context, token string) (*models.OAuthState, error) {
	var st models.OAuthState
	if err := r.get(ctx, common.OAuthStatePrefix+token, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *KVRepository) DeleteState(ctx context.Context, token string) error {
	return r.store.Delete(ctx, common.OAuthStatePrefix+token)
}

func (r *KVRepository) SaveSession(ctx context.Context, s *models.Session, ttl time.Duration) error {
	return r.put(ctx, common.SessionPrefix+s.SessionID, s, ttl)
}

func (r *KVRepository) FindSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.get(ctx, common.SessionPrefix+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *KVRepository) ClaimDelivery(ctx context.Context, id string, d models.Delivery, ttl time.Duration) (models.Delivery, bool, error) {
	key := common.DeliveryPrefix + id

	b, err := json.Marshal(d)
	if err != nil {
		return models.Delivery{}, false, fmt.Errorf("encode %s: %w", key, err)
	}

	won, err := r.store.PutIfAbsent(ctx, key, string(b), ttl)
	if err != nil {
		return models.Delivery{}, false, err
	}
	if won {
		return d, true, nil
	}

	var existing models.Delivery
	if err := r.get(ctx, key, &existing); err != nil {
		return models.Delivery{}, false, err
	}
	return existing, false, nil
}

func (r *KVRepository) SaveInbound(ctx context.Context, m *models.InboundMessage, ttl time.Duration) error {
	return r.put(ctx, common.InboundPrefix+m.ID, m, ttl)
}

