package repository

import (
	"context"
	"fmt"

	"sattbot/database"
	"sattbot/models"
)

// GuildSettingsRepository implements the GuildSettingsRepository interface
type GuildSettingsRepository struct {
	q queryable
}

// NewGuildSettingsRepository creates a new guild settings repository
func NewGuildSettingsRepository(db *database.DB) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: db.Pool}
}

// newGuildSettingsRepositoryWithTx creates a new guild settings repository with a transaction
func newGuildSettingsRepositoryWithTx(tx queryable) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: tx}
}

// GetOrCreateGuildSettings retrieves guild settings, inserting the default
// row on first contact. The upsert keeps concurrent first-contact calls from
// racing each other.
func (r *GuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	query := `
		INSERT INTO guild_settings (guild_id)
		VALUES ($1)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = EXCLUDED.guild_id
		RETURNING guild_id, spam_max_msgs, spam_mute_secs, scan_limit, nuke_days,
		          ai_model, setup_complete, created_at, updated_at
	`

	var settings models.GuildSettings
	err := r.q.QueryRow(ctx, query, guildID).Scan(
		&settings.GuildID,
		&settings.SpamMaxMsgs,
		&settings.SpamMuteSecs,
		&settings.ScanLimit,
		&settings.NukeDays,
		&settings.AIModel,
		&settings.SetupComplete,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create settings for guild %d: %w", guildID, err)
	}

	return &settings, nil
}

// UpdateGuildSettings updates an existing settings row
func (r *GuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	query := `
		UPDATE guild_settings
		SET spam_max_msgs = $1,
		    spam_mute_secs = $2,
		    scan_limit = $3,
		    nuke_days = $4,
		    ai_model = $5,
		    setup_complete = $6,
		    updated_at = NOW()
		WHERE guild_id = $7
	`

	result, err := r.q.Exec(ctx, query,
		settings.SpamMaxMsgs,
		settings.SpamMuteSecs,
		settings.ScanLimit,
		settings.NukeDays,
		settings.AIModel,
		settings.SetupComplete,
		settings.GuildID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings for guild %d: %w", settings.GuildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("settings for guild %d not found", settings.GuildID)
	}

	return nil
}

// DeleteGuild removes the guild's settings row. Command policies, role
// grants, feed data, and polls cascade at the schema level.
func (r *GuildSettingsRepository) DeleteGuild(ctx context.Context, guildID int64) error {
	query := `DELETE FROM guild_settings WHERE guild_id = $1`

	if _, err := r.q.Exec(ctx, query, guildID); err != nil {
		return fmt.Errorf("failed to delete guild %d: %w", guildID, err)
	}

	return nil
}
