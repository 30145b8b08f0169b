package sessionstore

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/drive-value/internal/domain/session"
)

// ValkeyStore persists each session as a hash that expires after ttl of
// inactivity.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "drive-value:session"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// For scopes the store to one session.
func (s *ValkeyStore) For(sessionID string) session.Storage {
	return valkeyScope{store: s, key: s.prefix + ":" + sessionID}
}

type valkeyScope struct {
	store *ValkeyStore
	key   string
}

func (v valkeyScope) Get(ctx context.Context, field string) (string, bool, error) {
	client := v.store.client
	value, err := client.Do(ctx, client.B().Hget().Key(v.key).Field(field).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (v valkeyScope) Set(ctx context.Context, field, value string) error {
	client := v.store.client
	cmds := valkey.Commands{
		client.B().Hset().Key(v.key).FieldValue().FieldValue(field, value).Build(),
	}
	if v.store.ttl > 0 {
		cmds = append(cmds, client.B().Expire().Key(v.key).Seconds(int64(v.store.ttl.Seconds())).Build())
	}
	for _, resp := range client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (v valkeyScope) Remove(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	client := v.store.client
	return client.Do(ctx, client.B().Hdel().Key(v.key).Field(fields...).Build()).Error()
}
