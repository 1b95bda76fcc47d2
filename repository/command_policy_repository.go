package repository

import (
	"context"
	"fmt"

	"sattbot/database"
	"sattbot/models"

	"github.com/jackc/pgx/v5"
)

// CommandPolicyRepository implements the CommandPolicyRepository interface
type CommandPolicyRepository struct {
	q queryable
}

// NewCommandPolicyRepository creates a new command policy repository
func NewCommandPolicyRepository(db *database.DB) *CommandPolicyRepository {
	return &CommandPolicyRepository{q: db.Pool}
}

// newCommandPolicyRepositoryWithTx creates a new command policy repository with a transaction
func newCommandPolicyRepositoryWithTx(tx queryable) *CommandPolicyRepository {
	return &CommandPolicyRepository{q: tx}
}

// GetAccess returns the configured access for a command, or found=false when
// no policy row exists for the guild
func (r *CommandPolicyRepository) GetAccess(ctx context.Context, guildID int64, command string) (models.AccessLevel, bool, error) {
	query := `
		SELECT default_access
		FROM command_defaults
		WHERE guild_id = $1 AND command = $2
	`

	var access models.AccessLevel
	err := r.q.QueryRow(ctx, query, guildID, command).Scan(&access)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get access for command %s in guild %d: %w", command, guildID, err)
	}

	return access, true, nil
}

// SetAccess upserts the access tier for a command
func (r *CommandPolicyRepository) SetAccess(ctx context.Context, guildID int64, command string, access models.AccessLevel) error {
	query := `
		INSERT INTO command_defaults (guild_id, command, default_access)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, command) DO UPDATE SET default_access = EXCLUDED.default_access
	`

	if _, err := r.q.Exec(ctx, query, guildID, command, access); err != nil {
		return fmt.Errorf("failed to set access for command %s in guild %d: %w", command, guildID, err)
	}

	return nil
}

// SeedDefaults inserts policy rows for commands that have none yet. Existing
// rows are left alone so re-joining a guild does not clobber its config.
func (r *CommandPolicyRepository) SeedDefaults(ctx context.Context, guildID int64, defaults map[string]models.AccessLevel) error {
	query := `
		INSERT INTO command_defaults (guild_id, command, default_access)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, command) DO NOTHING
	`

	for command, access := range defaults {
		if _, err := r.q.Exec(ctx, query, guildID, command, access); err != nil {
			return fmt.Errorf("failed to seed default for command %s in guild %d: %w", command, guildID, err)
		}
	}

	return nil
}

// GetRoles returns the role IDs granted access to a command
func (r *CommandPolicyRepository) GetRoles(ctx context.Context, guildID int64, command string) ([]int64, error) {
	query := `
		SELECT role_id
		FROM command_permissions
		WHERE guild_id = $1 AND command = $2
		ORDER BY role_id
	`

	rows, err := r.q.Query(ctx, query, guildID, command)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles for command %s in guild %d: %w", command, guildID, err)
	}
	defer rows.Close()

	var roles []int64
	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, roleID)
	}

	return roles, rows.Err()
}

// AddRole grants a role access to a command. Granting twice is a no-op.
func (r *CommandPolicyRepository) AddRole(ctx context.Context, guildID int64, command string, roleID int64) error {
	query := `
		INSERT INTO command_permissions (guild_id, command, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, command, role_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, guildID, command, roleID); err != nil {
		return fmt.Errorf("failed to add role %d for command %s in guild %d: %w", roleID, command, guildID, err)
	}

	return nil
}

// RemoveRole revokes a role's access to a command. Revoking an absent grant
// is a no-op.
func (r *CommandPolicyRepository) RemoveRole(ctx context.Context, guildID int64, command string, roleID int64) error {
	query := `
		DELETE FROM command_permissions
		WHERE guild_id = $1 AND command = $2 AND role_id = $3
	`

	if _, err := r.q.Exec(ctx, query, guildID, command, roleID); err != nil {
		return fmt.Errorf("failed to remove role %d for command %s in guild %d: %w", roleID, command, guildID, err)
	}

	return nil
}

// GetAllAccess returns every configured policy for a guild
func (r *CommandPolicyRepository) GetAllAccess(ctx context.Context, guildID int64) (map[string]models.AccessLevel, error) {
	query := `
		SELECT command, default_access
		FROM command_defaults
		WHERE guild_id = $1
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get access map for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	access := make(map[string]models.AccessLevel)
	for rows.Next() {
		var command string
		var level models.AccessLevel
		if err := rows.Scan(&command, &level); err != nil {
			return nil, fmt.Errorf("failed to scan command policy: %w", err)
		}
		access[command] = level
	}

	return access, rows.Err()
}

// GetAllRoleGrants returns every role grant for a guild, keyed by command
func (r *CommandPolicyRepository) GetAllRoleGrants(ctx context.Context, guildID int64) (map[string][]int64, error) {
	query := `
		SELECT command, role_id
		FROM command_permissions
		WHERE guild_id = $1
		ORDER BY command, role_id
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role grants for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	grants := make(map[string][]int64)
	for rows.Next() {
		var command string
		var roleID int64
		if err := rows.Scan(&command, &roleID); err != nil {
			return nil, fmt.Errorf("failed to scan role grant: %w", err)
		}
		grants[command] = append(grants[command], roleID)
	}

	return grants, rows.Err()
}
