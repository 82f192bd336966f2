package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/logtime/internal/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMaxCredentials bounds the credential index.
	DefaultMaxCredentials = 10000

	// DefaultCredentialTTL is the longest any credential stays bound.
	DefaultCredentialTTL = time.Hour
)

// Config holds in-memory registry configuration
type Config struct {
	MaxCredentials int
	CredentialTTL  time.Duration
}

// Store is a process-lifetime registry.
type Store struct {
	users *userStore
}

// Open creates an empty in-memory registry.
func Open(cfg Config) *Store {
	if cfg.MaxCredentials <= 0 {
		cfg.MaxCredentials = DefaultMaxCredentials
	}
	if cfg.CredentialTTL <= 0 {
		cfg.CredentialTTL = DefaultCredentialTTL
	}

	return &Store{
		users: &userStore{
			byID:        make(map[int64]*storage.User),
			byLogin:     make(map[string]int64),
			credentials: expirable.NewLRU[string, credential](cfg.MaxCredentials, nil, cfg.CredentialTTL),
			now:         time.Now,
		},
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Users returns the UserStore implementation
func (s *Store) Users() storage.UserStore {
	return s.users
}

type credential struct {
	userID  int64
	expires time.Time
}

type userStore struct {
	mu      sync.RWMutex
	byID    map[int64]*storage.User
	byLogin map[string]int64

	// The cache TTL is a ceiling; each entry also carries its own expiry.
	credentials *expirable.LRU[string, credential]
	now         func() time.Time
}

func (s *userStore) Upsert(ctx context.Context, user storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.byID[user.ID]
	if ok {
		if existing.Login != user.Login && s.byLogin[existing.Login] == existing.ID {
			delete(s.byLogin, existing.Login)
		}
		existing.Login = user.Login
		existing.Location = user.Location
		existing.UpdatedAt = now
	} else {
		record := &storage.User{
			ID:        user.ID,
			Login:     user.Login,
			Location:  user.Location,
			State:     user.State.Clone(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.byID[user.ID] = record
	}
	s.byLogin[user.Login] = user.ID

	return nil
}

func (s *userStore) Get(ctx context.Context, id int64) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user.Clone(), nil
}

func (s *userStore) GetByLogin(ctx context.Context, login string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byLogin[login]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user.Clone(), nil
}

func (s *userStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *userStore) BindCredential(ctx context.Context, cred string, id int64, ttl time.Duration) error {
	s.mu.RLock()
	_, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}

	s.credentials.Add(cred, credential{userID: id, expires: s.now().Add(ttl)})
	return nil
}

func (s *userStore) GetByCredential(ctx context.Context, cred string) (*storage.User, error) {
	entry, ok := s.credentials.Get(cred)
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !s.now().Before(entry.expires) {
		s.credentials.Remove(cred)
		return nil, storage.ErrNotFound
	}
	return s.Get(ctx, entry.userID)
}

func (s *userStore) UnbindCredential(ctx context.Context, cred string) error {
	s.credentials.Remove(cred)
	return nil
}

func (s *userStore) SetPresenceState(ctx context.Context, login string, state storage.PresenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byLogin[login]
	if !ok {
		return storage.ErrNotFound
	}
	user, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}

	user.State = state.Clone()
	return nil
}
