package service

import (
	"context"
	"fmt"
	"strconv"

	"sattbot/events"
	"sattbot/models"
)

// guildSettingsService implements the GuildSettingsService interface
type guildSettingsService struct {
	uowFactory UnitOfWorkFactory
	defaults   map[string]models.AccessLevel
}

// NewGuildSettingsService creates a new guild settings service
func NewGuildSettingsService(uowFactory UnitOfWorkFactory, defaults map[string]models.AccessLevel) GuildSettingsService {
	return &guildSettingsService{
		uowFactory: uowFactory,
		defaults:   defaults,
	}
}

// GetOrCreateSettings retrieves guild settings or creates default ones if not found
func (s *guildSettingsService) GetOrCreateSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	settings, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create guild settings: %w", err)
	}

	// Commit the transaction (in case new settings were created)
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return settings, nil
}

// UpdateSetting changes a single named setting. Numeric settings must be
// positive integers; unknown keys are rejected.
func (s *guildSettingsService) UpdateSetting(ctx context.Context, guildID int64, key, value string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	switch key {
	case "ai_model":
		settings.AIModel = value
	case "setup_complete":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("setup_complete must be a boolean, got %q", value)
		}
		settings.SetupComplete = parsed
	case "spam_max_msgs", "spam_mute_secs", "scan_limit", "nuke_days":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		switch key {
		case "spam_max_msgs":
			settings.SpamMaxMsgs = parsed
		case "spam_mute_secs":
			settings.SpamMuteSecs = parsed
		case "scan_limit":
			settings.ScanLimit = parsed
		case "nuke_days":
			settings.NukeDays = parsed
		}
	default:
		return fmt.Errorf("invalid setting: %s", key)
	}

	if err := uow.GuildSettingsRepository().UpdateGuildSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureGuild creates the settings row and seeds per-command policy rows
// with built-in defaults. Called on first contact with a guild; idempotent.
func (s *guildSettingsService) EnsureGuild(ctx context.Context, guildID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, guildID); err != nil {
		return fmt.Errorf("failed to ensure guild settings: %w", err)
	}
	if err := uow.CommandPolicyRepository().SeedDefaults(ctx, guildID, s.defaults); err != nil {
		return fmt.Errorf("failed to seed command defaults: %w", err)
	}

	uow.EventBus().Publish(events.GuildRegisteredEvent{GuildID: guildID})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveGuild deletes the guild's settings row; command policies, grants,
// feed data, and polls cascade at the storage layer
func (s *guildSettingsService) RemoveGuild(ctx context.Context, guildID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.GuildSettingsRepository().DeleteGuild(ctx, guildID); err != nil {
		return fmt.Errorf("failed to delete guild: %w", err)
	}

	uow.EventBus().Publish(events.GuildRemovedEvent{GuildID: guildID})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
