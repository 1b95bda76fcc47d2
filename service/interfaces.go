package service

import (
	"context"
	"time"

	"sattbot/events"
	"sattbot/models"
)

// GuildSettingsRepository defines the interface for guild settings data access
type GuildSettingsRepository interface {
	// GetOrCreateGuildSettings retrieves guild settings or creates default ones if not found
	GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// UpdateGuildSettings updates an existing settings row
	UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error

	// DeleteGuild removes a guild's settings row; dependent rows cascade
	DeleteGuild(ctx context.Context, guildID int64) error
}

// CommandPolicyRepository defines the interface for command access policies
// and role grants
type CommandPolicyRepository interface {
	// GetAccess returns the configured access for a command, or found=false
	// when no policy row exists for the guild
	GetAccess(ctx context.Context, guildID int64, command string) (access models.AccessLevel, found bool, err error)

	// SetAccess upserts the access tier for a command
	SetAccess(ctx context.Context, guildID int64, command string, access models.AccessLevel) error

	// SeedDefaults inserts missing policy rows for the given defaults
	SeedDefaults(ctx context.Context, guildID int64, defaults map[string]models.AccessLevel) error

	// GetRoles returns the role IDs granted access to a restricted command
	GetRoles(ctx context.Context, guildID int64, command string) ([]int64, error)

	// AddRole grants a role access to a command
	AddRole(ctx context.Context, guildID int64, command string, roleID int64) error

	// RemoveRole revokes a role's access to a command
	RemoveRole(ctx context.Context, guildID int64, command string, roleID int64) error

	// GetAllAccess returns every configured policy for a guild
	GetAllAccess(ctx context.Context, guildID int64) (map[string]models.AccessLevel, error)

	// GetAllRoleGrants returns every role grant for a guild, keyed by command
	GetAllRoleGrants(ctx context.Context, guildID int64) (map[string][]int64, error)
}

// FeedRepository defines the interface for news feed configuration and items
type FeedRepository interface {
	// GetChannel returns the guild's configured news channel, nil if unset
	GetChannel(ctx context.Context, guildID int64) (*int64, error)

	// SetChannel upserts the guild's news channel
	SetChannel(ctx context.Context, guildID int64, channelID *int64) error

	// ListConfiguredGuilds returns all guilds with a news channel set
	ListConfiguredGuilds(ctx context.Context) ([]models.FeedChannelConfig, error)

	// InsertNewItems inserts items not already present for the guild,
	// preserving input order. Returns the number inserted.
	InsertNewItems(ctx context.Context, guildID int64, items []models.FeedItem) (int, error)

	// GetRecentItems returns items fetched for a guild since the given time
	GetRecentItems(ctx context.Context, guildID int64, since time.Time) ([]*models.FeedItem, error)

	// DeleteItemsBefore removes items fetched before the cutoff. Returns the
	// number deleted.
	DeleteItemsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PollRepository defines the interface for question-of-the-day configuration
// and active polls
type PollRepository interface {
	// GetChannel returns the guild's configured QOTD channel, nil if unset
	GetChannel(ctx context.Context, guildID int64) (*int64, error)

	// SetChannel upserts the guild's QOTD channel
	SetChannel(ctx context.Context, guildID int64, channelID *int64) error

	// ListConfiguredGuilds returns all guilds with a QOTD channel set
	ListConfiguredGuilds(ctx context.Context) ([]models.QOTDChannelConfig, error)

	// CreatePoll inserts a new active poll and fills its ID and CreatedAt
	CreatePoll(ctx context.Context, poll *models.ActivePoll) error

	// GetDuePolls returns unrevealed polls whose reveal time has passed
	GetDuePolls(ctx context.Context, now time.Time) ([]*models.ActivePoll, error)

	// MarkRevealed flips revealed to true only if it is currently false.
	// Returns true when this call performed the transition.
	MarkRevealed(ctx context.Context, pollID int64) (bool, error)

	// DeletePollsBefore removes polls created before the cutoff regardless
	// of revealed state. Returns the number deleted.
	DeletePollsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobStateRepository defines the interface for scheduler job bookkeeping
type JobStateRepository interface {
	// Get returns the stored state for a job, nil if the job never fired
	Get(ctx context.Context, jobName string) (*models.JobState, error)

	// Upsert records the job's latest fire time
	Upsert(ctx context.Context, jobName string, firedAt time.Time) error
}

// EventPublisher defines the interface for publishing events within a
// unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork provides transactional access to all repositories
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	GuildSettingsRepository() GuildSettingsRepository
	CommandPolicyRepository() CommandPolicyRepository
	FeedRepository() FeedRepository
	PollRepository() PollRepository
	JobStateRepository() JobStateRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Actor describes a command invoker as seen by the chat gateway
type Actor struct {
	UserID  int64
	IsAdmin bool
	RoleIDs []int64
}

// Messenger abstracts the chat gateway operations the core invokes.
// Formatting is owned by the implementation.
type Messenger interface {
	// PostNews sends the daily news items to a channel
	PostNews(ctx context.Context, channelID int64, items []*models.FeedItem) error

	// PostPoll sends a question as a poll and returns the message ID
	PostPoll(ctx context.Context, channelID int64, question string, openFor time.Duration) (int64, error)

	// PostReveal sends the answer reveal, replying to the original poll
	// message when it still exists
	PostReveal(ctx context.Context, channelID, pollMessageID int64, question string, item *models.FeedItem) error

	// Announce sends a short plain notice to a channel
	Announce(ctx context.Context, channelID int64, content string) error

	// MuteMember times out a member for the given duration
	MuteMember(ctx context.Context, guildID, memberID int64, duration time.Duration, reason string) error
}

// FeedFetcher abstracts the external feed client. Each call returns a
// finite ordered list of items.
type FeedFetcher interface {
	FetchNews(ctx context.Context) ([]models.FeedItem, error)
	FetchQOTD(ctx context.Context) ([]models.FeedItem, error)
}

// PermissionService resolves command access and manages per-guild policy
type PermissionService interface {
	// Resolve returns nil when the actor may invoke the command,
	// ErrPermissionDenied or ErrUnknownCommand otherwise
	Resolve(ctx context.Context, guildID int64, actor Actor, command string) error

	// Grant marks the command restricted and authorizes the role
	Grant(ctx context.Context, guildID int64, command string, roleID int64) error

	// Revoke removes a role's grant. When the last grant is removed the
	// command reverts to its built-in default access.
	Revoke(ctx context.Context, guildID int64, command string, roleID int64) (remaining int, reverted models.AccessLevel, err error)

	// SetAccess explicitly sets a command's access tier
	SetAccess(ctx context.Context, guildID int64, command string, access models.AccessLevel) error

	// Overview returns the effective access map and role grants for a guild
	Overview(ctx context.Context, guildID int64) (map[string]models.AccessLevel, map[string][]int64, error)
}

// GuildSettingsService manages guild settings and lifecycle
type GuildSettingsService interface {
	// GetOrCreateSettings retrieves settings, creating defaults if missing
	GetOrCreateSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// UpdateSetting changes a single named setting with validation
	UpdateSetting(ctx context.Context, guildID int64, key, value string) error

	// EnsureGuild creates settings and seeds command policy defaults for a
	// newly joined guild. Idempotent.
	EnsureGuild(ctx context.Context, guildID int64) error

	// RemoveGuild deletes the guild and all dependent rows
	RemoveGuild(ctx context.Context, guildID int64) error
}

// FeedService drives news ingestion and posting
type FeedService interface {
	// RunDailyNews fetches the feed once and ingests + posts per guild
	RunDailyNews(ctx context.Context) error

	// FetchAndPostNews runs the fetch+ingest+post path for a single guild.
	// Returns the number of items fetched and newly stored.
	FetchAndPostNews(ctx context.Context, guildID, channelID int64) (fetched, stored int, err error)

	// NewsChannel returns the configured channel for a guild, nil if unset
	NewsChannel(ctx context.Context, guildID int64) (*int64, error)

	// SetNewsChannel configures the channel for a guild
	SetNewsChannel(ctx context.Context, guildID int64, channelID *int64) error
}

// QOTDService drives the question-of-the-day poll workflow
type QOTDService interface {
	// RunDailyPoll fetches today's question and posts a poll to every
	// configured guild
	RunDailyPoll(ctx context.Context) error

	// PostPollForGuild posts a poll for the given item and registers the
	// pending reveal
	PostPollForGuild(ctx context.Context, guildID, channelID int64, item models.FeedItem) (*models.ActivePoll, error)

	// RevealDuePolls transitions due polls to revealed and posts answers.
	// Safe to invoke concurrently; each poll reveals at most once.
	RevealDuePolls(ctx context.Context) error

	// QOTDChannel returns the configured channel for a guild, nil if unset
	QOTDChannel(ctx context.Context, guildID int64) (*int64, error)

	// SetQOTDChannel configures the channel for a guild
	SetQOTDChannel(ctx context.Context, guildID int64, channelID *int64) error
}

// RetentionService deletes expired feed items and stale polls
type RetentionService interface {
	Sweep(ctx context.Context) error
}
