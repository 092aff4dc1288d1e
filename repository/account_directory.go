package repository

import (
	"context"
	"errors"
	"fmt"

	"Bpsb/model"

	"github.com/goccy/go-json"
)

// AccountDirectory maps username to account record.
type AccountDirectory map[string]*model.Account

// AccountRepository reads and writes the account directory and the
// session marker as two whole values of a KVStore.
type AccountRepository interface {
	LoadDirectory(ctx context.Context) (AccountDirectory, error)
	SaveDirectory(ctx context.Context, dir AccountDirectory) error
	LoadSession(ctx context.Context) (string, error)
	SaveSession(ctx context.Context, username string) error
	ClearSession(ctx context.Context) error
}

// kvAccountRepository implements AccountRepository on top of a KVStore.
type kvAccountRepository struct {
	kv         KVStore
	usersKey   string
	sessionKey string
}

// NewKVAccountRepository creates an AccountRepository persisting under the given keys.
func NewKVAccountRepository(kv KVStore, usersKey, sessionKey string) AccountRepository {
	return &kvAccountRepository{kv: kv, usersKey: usersKey, sessionKey: sessionKey}
}

// LoadDirectory returns the stored directory, or an empty one when nothing was persisted yet.
func (r *kvAccountRepository) LoadDirectory(ctx context.Context) (AccountDirectory, error) {
	raw, err := r.kv.Get(ctx, r.usersKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return AccountDirectory{}, nil
		}
		return nil, fmt.Errorf("failed to read account directory: %w", err)
	}
	if raw == "" {
		return AccountDirectory{}, nil
	}

	dir := AccountDirectory{}
	if err := json.Unmarshal([]byte(raw), &dir); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account directory: %w", err)
	}
	for name, acc := range dir {
		if acc == nil {
			delete(dir, name)
		}
	}
	return dir, nil
}

// SaveDirectory rewrites the whole directory value.
func (r *kvAccountRepository) SaveDirectory(ctx context.Context, dir AccountDirectory) error {
	data, err := json.Marshal(dir)
	if err != nil {
		return fmt.Errorf("failed to marshal account directory: %w", err)
	}
	if err := r.kv.Set(ctx, r.usersKey, string(data)); err != nil {
		return fmt.Errorf("failed to write account directory: %w", err)
	}
	return nil
}

// LoadSession returns the active username, or "" when logged out.
func (r *kvAccountRepository) LoadSession(ctx context.Context) (string, error) {
	v, err := r.kv.Get(ctx, r.sessionKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session marker: %w", err)
	}
	return v, nil
}

func (r *kvAccountRepository) SaveSession(ctx context.Context, username string) error {
	if err := r.kv.Set(ctx, r.sessionKey, username); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}
	return nil
}

func (r *kvAccountRepository) ClearSession(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.sessionKey); err != nil {
		return fmt.Errorf("failed to clear session marker: %w", err)
	}
	return nil
}
