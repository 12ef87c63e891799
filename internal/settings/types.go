package settings

import (
	"context"
	"time"
)

// VoicePrefs stores a user's persisted speech preferences. Transcripts and
// audio are deliberately never stored.
type VoicePrefs struct {
	UserID           string    `json:"user_id"`
	VoiceModeEnabled bool      `json:"voice_mode_enabled"`
	PreferredVoice   string    `json:"preferred_voice"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultPrefs returns the preferences applied to users who never saved any.
func DefaultPrefs(userID string) VoicePrefs {
	return VoicePrefs{UserID: userID, VoiceModeEnabled: true}
}

// Store persists and retrieves per-user voice preferences.
type Store interface {
	Get(ctx context.Context, userID string) (VoicePrefs, error)
	Save(ctx context.Context, prefs VoicePrefs) error
	Close() error
}
