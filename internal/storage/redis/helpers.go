package redis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/logtime/internal/storage"
)

const keyPrefix = "logtime:"

func userKey(id int64) string {
	return fmt.Sprintf("%suser:%d", keyPrefix, id)
}

func loginKey(login string) string {
	return loginPrefix() + login
}

func loginPrefix() string {
	return keyPrefix + "user:login:"
}

func usersSet() string {
	return keyPrefix + "users"
}

// credentialKey stores credentials by digest so raw tokens never reach Redis.
func credentialKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return keyPrefix + "credential:" + hex.EncodeToString(sum[:])
}

// parseUser converts a Redis hash to User
func parseUser(data map[string]string) (*storage.User, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	id, err := strconv.ParseInt(data["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	user := &storage.User{
		ID:        id,
		Login:     data["login"],
		Location:  data["location"],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	if raw, ok := data["state"]; ok && raw != "" {
		var state storage.PresenceState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, fmt.Errorf("failed to parse state: %w", err)
		}
		user.State = &state
	}

	return user, nil
}
