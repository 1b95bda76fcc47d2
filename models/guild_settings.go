package models

import (
	"time"
)

// Default values applied when a guild is first seen
const (
	DefaultSpamMaxMsgs  = 10
	DefaultSpamMuteSecs = 60
	DefaultScanLimit    = 1000
	DefaultNukeDays     = 60
	DefaultAIModel      = "google/gemini-2.5-flash"
)

// GuildSettings represents per-guild configuration, created on first contact
// with a guild and mutated in place thereafter
type GuildSettings struct {
	GuildID       int64     `db:"guild_id"`
	SpamMaxMsgs   int       `db:"spam_max_msgs"`
	SpamMuteSecs  int       `db:"spam_mute_secs"`
	ScanLimit     int       `db:"scan_limit"`
	NukeDays      int       `db:"nuke_days"`
	AIModel       string    `db:"ai_model"`
	SetupComplete bool      `db:"setup_complete"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SpamMuteDuration returns the configured mute duration
func (s *GuildSettings) SpamMuteDuration() time.Duration {
	return time.Duration(s.SpamMuteSecs) * time.Second
}
