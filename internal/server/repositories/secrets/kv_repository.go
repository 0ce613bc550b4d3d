package secrets

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/cryptox"
	"github.com/dmitrijs2005/storekeeper/internal/server/kv"
)

const initializedValue = "true"

type KVRepository struct {
	store  kv.Store
	sealer cryptox.Sealer
}

func NewKVRepository(store kv.Store, sealer cryptox.Sealer) *KVRepository {
	if sealer == nil {
		sealer = cryptox.PlainSealer{}
	}
	return &KVRepository{store: store, sealer: sealer}
}

func (r *KVRepository) get(ctx context.Context, name string) (string, error) {
	v, err := r.store.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return r.sealer.Open(v)
}

func (r *KVRepository) PutMany(ctx context.Context, secrets map[string]string) error {
	names := make([]string, 0, len(secrets))
	for k := range secrets {
		names = append(names, k)
	}
	sort.Strings(names)

	items := make([]kv.Item, 0, len(names))
	for _, k := range names {
		sealed, err := r.sealer.Seal(secrets[k])
		if err != nil {
			return fmt.Errorf("seal %s: %w", k, err)
		}
		items = append(items, kv.Item{Key: k, Value: sealed})
	}

	return r.store.PutMany(ctx, items, 0)
}

// Initialized treats any present value other than an explicit false as set.
func (r *KVRepository) Initialized(ctx context.Context) (bool, error) {
	v, err := r.store.Get(ctx, common.InitializedFlagKey)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0":
		return false, nil
	}
	return true, nil
}

func (r *KVRepository) MarkInitialized(ctx context.Context) (bool, error) {
	return r.store.PutIfAbsent(ctx, common.InitializedFlagKey, initializedValue, 0)
}

func (r *KVRepository) SaveOAuthToken(ctx context.Context, provider, token string) error {
	sealed, err := r.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return r.store.Put(ctx, common.OAuthTokenPrefix+provider, sealed, 0)
}

func (r *KVRepository) OAuthToken(ctx context.Context, provider string) (string, error) {
	return r.get(ctx, common.OAuthTokenPrefix+provider)
}

// NewSealer returns a sealer for the Secrets namespace. Without a passphrase
// values are stored as given. The KDF salt is created once and shared by
// every instance through a put-if-absent write.
func NewSealer(ctx context.Context, store kv.Store, passphrase string) (cryptox.Sealer, error) {
	if passphrase == "" {
		return cryptox.PlainSealer{}, nil
	}

	candidate := hex.EncodeToString(common.GenerateRandByteArray(cryptox.SaltSize))
	if _, err := store.PutIfAbsent(ctx, common.KDFSaltKey, candidate, 0); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}

	stored, err := store.Get(ctx, common.KDFSaltKey)
	if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	salt, err := hex.DecodeString(stored)
	if err != nil || len(salt) != cryptox.SaltSize {
		return nil, fmt.Errorf("corrupt salt under %s", common.KDFSaltKey)
	}

	return cryptox.NewAESSealer(passphrase, salt)
}
