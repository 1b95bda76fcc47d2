package repository

import (
	"context"
	"fmt"
	"time"

	"sattbot/database"
	"sattbot/models"

	"github.com/jackc/pgx/v5"
)

// PollRepository implements the PollRepository interface
type PollRepository struct {
	q queryable
}

// NewPollRepository creates a new poll repository
func NewPollRepository(db *database.DB) *PollRepository {
	return &PollRepository{q: db.Pool}
}

// newPollRepositoryWithTx creates a new poll repository with a transaction
func newPollRepositoryWithTx(tx queryable) *PollRepository {
	return &PollRepository{q: tx}
}

// GetChannel returns the guild's configured QOTD channel, nil if unset
func (r *PollRepository) GetChannel(ctx context.Context, guildID int64) (*int64, error) {
	query := `SELECT channel_id FROM qotd_guild_config WHERE guild_id = $1`

	var channelID *int64
	err := r.q.QueryRow(ctx, query, guildID).Scan(&channelID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get QOTD channel for guild %d: %w", guildID, err)
	}

	return channelID, nil
}

// SetChannel upserts the guild's QOTD channel
func (r *PollRepository) SetChannel(ctx context.Context, guildID int64, channelID *int64) error {
	query := `
		INSERT INTO qotd_guild_config (guild_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id
	`

	if _, err := r.q.Exec(ctx, query, guildID, channelID); err != nil {
		return fmt.Errorf("failed to set QOTD channel for guild %d: %w", guildID, err)
	}

	return nil
}

// ListConfiguredGuilds returns all guilds with a QOTD channel set
func (r *PollRepository) ListConfiguredGuilds(ctx context.Context) ([]models.QOTDChannelConfig, error) {
	query := `
		SELECT guild_id, channel_id
		FROM qotd_guild_config
		WHERE channel_id IS NOT NULL
		ORDER BY guild_id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list configured QOTD guilds: %w", err)
	}
	defer rows.Close()

	var configs []models.QOTDChannelConfig
	for rows.Next() {
		var cfg models.QOTDChannelConfig
		if err := rows.Scan(&cfg.GuildID, &cfg.ChannelID); err != nil {
			return nil, fmt.Errorf("failed to scan QOTD config: %w", err)
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// CreatePoll inserts a new active poll and fills its ID and CreatedAt
func (r *PollRepository) CreatePoll(ctx context.Context, poll *models.ActivePoll) error {
	query := `
		INSERT INTO qotd_active_polls (guild_id, channel_id, message_id, question, answer_data, reveal_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		poll.GuildID,
		poll.ChannelID,
		poll.MessageID,
		poll.Question,
		poll.AnswerData,
		poll.RevealAt,
	).Scan(&poll.ID, &poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create poll for guild %d: %w", poll.GuildID, err)
	}

	return nil
}

// GetDuePolls returns unrevealed polls whose reveal time has passed,
// oldest first
func (r *PollRepository) GetDuePolls(ctx context.Context, now time.Time) ([]*models.ActivePoll, error) {
	query := `
		SELECT id, guild_id, channel_id, message_id, question, answer_data, reveal_at, revealed, created_at
		FROM qotd_active_polls
		WHERE NOT revealed AND reveal_at <= $1
		ORDER BY reveal_at
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due polls: %w", err)
	}
	defer rows.Close()

	var polls []*models.ActivePoll
	for rows.Next() {
		var poll models.ActivePoll
		if err := rows.Scan(
			&poll.ID,
			&poll.GuildID,
			&poll.ChannelID,
			&poll.MessageID,
			&poll.Question,
			&poll.AnswerData,
			&poll.RevealAt,
			&poll.Revealed,
			&poll.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}

	return polls, rows.Err()
}

// MarkRevealed flips revealed to true only if it is currently false. The
// rows-affected count decides the winner when sweeps race.
func (r *PollRepository) MarkRevealed(ctx context.Context, pollID int64) (bool, error) {
	query := `
		UPDATE qotd_active_polls
		SET revealed = TRUE
		WHERE id = $1 AND NOT revealed
	`

	result, err := r.q.Exec(ctx, query, pollID)
	if err != nil {
		return false, fmt.Errorf("failed to mark poll %d revealed: %w", pollID, err)
	}

	return result.RowsAffected() > 0, nil
}

// DeletePollsBefore removes polls created before the cutoff. Returns the
// number deleted.
func (r *PollRepository) DeletePollsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM qotd_active_polls WHERE created_at < $1`

	result, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete polls before %s: %w", cutoff, err)
	}

	return result.RowsAffected(), nil
}
