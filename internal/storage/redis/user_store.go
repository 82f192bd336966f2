package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/logtime/internal/storage"
	"github.com/redis/go-redis/v9"
)

type userStore struct {
	client   *redis.Client
	upsert   *redis.Script
	setState *redis.Script
	bindCred *redis.Script
}

func newUserStore(client *redis.Client) *userStore {
	return &userStore{
		client:   client,
		upsert:   redis.NewScript(upsertUserScript),
		setState: redis.NewScript(setStateScript),
		bindCred: redis.NewScript(bindCredentialScript),
	}
}

// Upsert creates or updates a user, keeping any stored presence state
func (s *userStore) Upsert(ctx context.Context, user storage.User) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	id := strconv.FormatInt(user.ID, 10)

	keys := []string{userKey(user.ID), loginKey(user.Login), usersSet()}
	args := []interface{}{
		id,
		user.Login,
		user.Location,
		now,
		now,
		loginPrefix(),
	}

	if err := s.upsert.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	return nil
}

// Get retrieves a user by numeric id
func (s *userStore) Get(ctx context.Context, id int64) (*storage.User, error) {
	data, err := s.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseUser(data)
}

// GetByLogin retrieves a user by login using the secondary index
func (s *userStore) GetByLogin(ctx context.Context, login string) (*storage.User, error) {
	id, err := s.lookup(ctx, loginKey(login))
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Count returns the number of registered users
func (s *userStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, usersSet()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// BindCredential maps a credential to a user until ttl elapses
func (s *userStore) BindCredential(ctx context.Context, credential string, id int64, ttl time.Duration) error {
	keys := []string{credentialKey(credential), userKey(id)}
	args := []interface{}{
		strconv.FormatInt(id, 10),
		int64(ttl / time.Second),
	}

	bound, err := s.bindCred.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to bind credential: %w", err)
	}
	if bound == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByCredential retrieves the user a credential is bound to
func (s *userStore) GetByCredential(ctx context.Context, credential string) (*storage.User, error) {
	id, err := s.lookup(ctx, credentialKey(credential))
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UnbindCredential forgets a credential
func (s *userStore) UnbindCredential(ctx context.Context, credential string) error {
	return s.client.Del(ctx, credentialKey(credential)).Err()
}

// SetPresenceState replaces the presence state of the user with login
func (s *userStore) SetPresenceState(ctx context.Context, login string, state storage.PresenceState) error {
	id, err := s.lookup(ctx, loginKey(login))
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	updated, err := s.setState.Run(ctx, s.client, []string{userKey(id)}, string(encoded)).Int()
	if err != nil {
		return fmt.Errorf("failed to set state for %s: %w", login, err)
	}
	if updated == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// lookup resolves an index key to a user id
func (s *userStore) lookup(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt index %s: %w", key, err)
	}
	return id, nil
}
