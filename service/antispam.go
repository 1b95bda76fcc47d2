package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"sattbot/events"
	"sattbot/models"
)

// AntiSpamTracker keeps a per-guild, per-member sliding window of message
// timestamps and mutes members whose rate exceeds the guild's threshold.
// Windows are held in memory only; a restart forgives in-flight counts.
type AntiSpamTracker struct {
	mu      sync.Mutex
	windows map[int64]map[int64][]time.Time

	uowFactory UnitOfWorkFactory
	messenger  Messenger
	bus        *events.Bus

	// now is replaceable in tests
	now func() time.Time
}

// NewAntiSpamTracker creates a new anti-spam tracker
func NewAntiSpamTracker(uowFactory UnitOfWorkFactory, messenger Messenger, bus *events.Bus) *AntiSpamTracker {
	return &AntiSpamTracker{
		windows:    make(map[int64]map[int64][]time.Time),
		uowFactory: uowFactory,
		messenger:  messenger,
		bus:        bus,
		now:        time.Now,
	}
}

// HandleMessage records one inbound message and applies the mute action
// when the member's rate exceeds the guild threshold. Returns true when a
// mute was triggered. A failed mute is logged, never propagated: message
// processing must not stall on gateway errors.
func (t *AntiSpamTracker) HandleMessage(ctx context.Context, guildID, memberID, channelID int64, isAdmin bool) bool {
	settings, err := t.settings(ctx, guildID)
	if err != nil {
		log.WithError(err).WithField("guildID", guildID).Warn("Anti-spam: failed to load guild settings, skipping message")
		return false
	}

	now := t.now()
	// The guild's mute duration doubles as the rolling window length
	windowLen := settings.SpamMuteDuration()

	t.mu.Lock()
	members := t.windows[guildID]
	if members == nil {
		members = make(map[int64][]time.Time)
		t.windows[guildID] = members
	}

	window := members[memberID]
	pruned := window[:0]
	for _, ts := range window {
		if now.Sub(ts) < windowLen {
			pruned = append(pruned, ts)
		}
	}
	pruned = append(pruned, now)
	members[memberID] = pruned

	exceeded := len(pruned) > settings.SpamMaxMsgs
	count := len(pruned)
	if exceeded && !isAdmin {
		// Reset so the member starts a fresh window after the mute
		members[memberID] = nil
	}
	t.mu.Unlock()

	if !exceeded {
		return false
	}
	if isAdmin {
		// Administrators are never muted
		return false
	}

	duration := settings.SpamMuteDuration()
	if err := t.messenger.MuteMember(ctx, guildID, memberID, duration, "Anti-spam: message rate exceeded"); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guildID":  guildID,
			"memberID": memberID,
		}).Warn("Anti-spam: failed to mute member")
		return false
	}

	log.WithFields(log.Fields{
		"guildID":  guildID,
		"memberID": memberID,
		"count":    count,
		"duration": duration,
	}).Info("Anti-spam: muted member")

	if t.bus != nil {
		t.bus.Emit(ctx, events.MemberMutedEvent{
			GuildID:      guildID,
			MemberID:     memberID,
			ChannelID:    channelID,
			DurationSecs: settings.SpamMuteSecs,
			MessageCount: count,
		})
	}
	return true
}

// ForgetGuild drops all in-memory windows for a guild. Called when the
// guild is removed.
func (t *AntiSpamTracker) ForgetGuild(guildID int64) {
	t.mu.Lock()
	delete(t.windows, guildID)
	t.mu.Unlock()
}

func (t *AntiSpamTracker) settings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	uow := t.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	s, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}
