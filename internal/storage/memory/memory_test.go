package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/logtime/internal/storage"
)

func setupTestStore(t *testing.T) storage.UserStore {
	t.Helper()
	return Open(Config{}).Users()
}

func TestUserStore_UpsertAndGet(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()

	if err := users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe", Location: "c1r1s1"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	byID, err := users.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	byLogin, err := users.GetByLogin(ctx, "jdoe")
	if err != nil {
		t.Fatalf("GetByLogin failed: %v", err)
	}

	if byID.Login != "jdoe" || byLogin.ID != 1 || byLogin.Location != "c1r1s1" {
		t.Errorf("unexpected records %+v / %+v", byID, byLogin)
	}
	if byID.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	if _, err := users.Get(ctx, 2); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := users.GetByLogin(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_UpsertPreservesState(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()

	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe"})
	state := storage.PresenceState{MonitorState: json.RawMessage(`"on"`), UpdatedAt: "2026-02-02T10:00:00+09:00"}
	if err := users.SetPresenceState(ctx, "jdoe", state); err != nil {
		t.Fatalf("SetPresenceState failed: %v", err)
	}

	if err := users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe", Location: "c9r9s9"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	user, _ := users.Get(ctx, 1)
	if user.State == nil || string(user.State.MonitorState) != `"on"` {
		t.Errorf("state was not preserved: %+v", user.State)
	}
	if user.Location != "c9r9s9" {
		t.Errorf("location = %q, want c9r9s9", user.Location)
	}
}

func TestUserStore_LoginRename(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()

	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "old"})
	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "new"})

	if _, err := users.GetByLogin(ctx, "old"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old login should be gone, got %v", err)
	}
	if _, err := users.GetByLogin(ctx, "new"); err != nil {
		t.Errorf("GetByLogin(new) failed: %v", err)
	}
	if n, _ := users.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestUserStore_RenameKeepsLoginClaimedByAnotherUser(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()

	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "alice"})
	_ = users.Upsert(ctx, storage.User{ID: 2, Login: "alice"})
	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "alice2"})

	user, err := users.GetByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByLogin(alice) failed: %v", err)
	}
	if user.ID != 2 {
		t.Errorf("alice resolves to id %d, want 2", user.ID)
	}
	if err := users.SetPresenceState(ctx, "alice", storage.PresenceState{MonitorState: json.RawMessage(`"on"`)}); err != nil {
		t.Errorf("SetPresenceState(alice) failed: %v", err)
	}

	renamed, err := users.GetByLogin(ctx, "alice2")
	if err != nil {
		t.Fatalf("GetByLogin(alice2) failed: %v", err)
	}
	if renamed.ID != 1 {
		t.Errorf("alice2 resolves to id %d, want 1", renamed.ID)
	}
}

func TestUserStore_AliasesShareOneRecord(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()

	_ = users.Upsert(ctx, storage.User{ID: 7, Login: "alias"})
	_ = users.BindCredential(ctx, "cred-7", 7, time.Hour)

	state := storage.PresenceState{IsLockedScreen: json.RawMessage(`true`)}
	if err := users.SetPresenceState(ctx, "alias", state); err != nil {
		t.Fatalf("SetPresenceState failed: %v", err)
	}

	viaCred, err := users.GetByCredential(ctx, "cred-7")
	if err != nil {
		t.Fatalf("GetByCredential failed: %v", err)
	}
	viaID, _ := users.Get(ctx, 7)

	for name, u := range map[string]*storage.User{"credential": viaCred, "id": viaID} {
		if u.State == nil || string(u.State.IsLockedScreen) != "true" {
			t.Errorf("state via %s = %+v, want is_locked_screen true", name, u.State)
		}
	}

	// Returned records are copies.
	viaID.State.IsLockedScreen = json.RawMessage(`false`)
	again, _ := users.Get(ctx, 7)
	if string(again.State.IsLockedScreen) != "true" {
		t.Error("mutating a returned record changed the registry")
	}
}

func TestUserStore_SetPresenceStateOverwrites(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()

	if err := users.SetPresenceState(ctx, "ghost", storage.PresenceState{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown login, got %v", err)
	}

	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe"})
	_ = users.SetPresenceState(ctx, "jdoe", storage.PresenceState{
		MonitorState:       json.RawMessage(`"off"`),
		LastMonitorOffTime: json.RawMessage(`1700000000`),
	})
	_ = users.SetPresenceState(ctx, "jdoe", storage.PresenceState{
		MonitorState: json.RawMessage(`"on"`),
	})

	user, _ := users.Get(ctx, 1)
	if string(user.State.MonitorState) != `"on"` {
		t.Errorf("monitor_state = %s, want \"on\"", user.State.MonitorState)
	}
	if user.State.LastMonitorOffTime != nil {
		t.Errorf("previous fields must not be merged, got %s", user.State.LastMonitorOffTime)
	}
}

func TestUserStore_Credentials(t *testing.T) {
	store := Open(Config{})
	users := store.users
	ctx := context.Background()

	clock := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	users.now = func() time.Time { return clock }

	if err := users.BindCredential(ctx, "cred", 1, time.Hour); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("binding to an unknown user should fail, got %v", err)
	}

	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe"})
	if err := users.BindCredential(ctx, "cred", 1, time.Minute); err != nil {
		t.Fatalf("BindCredential failed: %v", err)
	}

	user, err := users.GetByCredential(ctx, "cred")
	if err != nil || user.ID != 1 {
		t.Fatalf("GetByCredential = %+v, %v", user, err)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := users.GetByCredential(ctx, "cred"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expired credential should not resolve, got %v", err)
	}

	clock = clock.Add(-2 * time.Minute)
	_ = users.BindCredential(ctx, "cred2", 1, time.Hour)
	if err := users.UnbindCredential(ctx, "cred2"); err != nil {
		t.Fatalf("UnbindCredential failed: %v", err)
	}
	if _, err := users.GetByCredential(ctx, "cred2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unbound credential should not resolve, got %v", err)
	}
}

func TestUserStore_Concurrent(t *testing.T) {
	users := setupTestStore(t)
	ctx := context.Background()
	_ = users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = users.SetPresenceState(ctx, "jdoe", storage.PresenceState{MonitorState: json.RawMessage(`"on"`)})
		}()
		go func() {
			defer wg.Done()
			_ = users.Upsert(ctx, storage.User{ID: 1, Login: "jdoe", Location: "c1"})
			_, _ = users.GetByLogin(ctx, "jdoe")
		}()
	}
	wg.Wait()

	user, err := users.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if user.State == nil {
		t.Error("expected state after concurrent updates")
	}
}
