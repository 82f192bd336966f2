package storage

import (
	"encoding/json"
	"time"
)

// User is a registry record for a person who has logged in.
type User struct {
	ID        int64          `json:"id"`
	Login     string         `json:"login"`
	Location  string         `json:"location"`
	State     *PresenceState `json:"state,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PresenceState is the out-of-band device status reported by a workstation
// agent. Field values are kept exactly as received.
type PresenceState struct {
	MonitorState         json.RawMessage `json:"monitor_state"`
	LastMonitorOffTime   json.RawMessage `json:"last_monitor_off_time"`
	LastMonitorOnTime    json.RawMessage `json:"last_monitor_on_time"`
	IsLockedScreen       json.RawMessage `json:"is_locked_screen"`
	LastScreenlockTime   json.RawMessage `json:"last_screenlock_time"`
	LastScreenunlockTime json.RawMessage `json:"last_screenunlock_time"`
	UpdatedAt            string          `json:"updated_at"`
}

// Clone returns a deep copy of the state.
func (s *PresenceState) Clone() *PresenceState {
	if s == nil {
		return nil
	}
	return &PresenceState{
		MonitorState:         cloneRaw(s.MonitorState),
		LastMonitorOffTime:   cloneRaw(s.LastMonitorOffTime),
		LastMonitorOnTime:    cloneRaw(s.LastMonitorOnTime),
		IsLockedScreen:       cloneRaw(s.IsLockedScreen),
		LastScreenlockTime:   cloneRaw(s.LastScreenlockTime),
		LastScreenunlockTime: cloneRaw(s.LastScreenunlockTime),
		UpdatedAt:            s.UpdatedAt,
	}
}

// Clone returns a copy of the user that shares no memory with u.
func (u *User) Clone() *User {
	c := *u
	c.State = u.State.Clone()
	return &c
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}
