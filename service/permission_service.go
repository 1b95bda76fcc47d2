package service

import (
	"context"
	"fmt"

	"sattbot/models"
)

// permissionService implements the PermissionService interface
type permissionService struct {
	uowFactory UnitOfWorkFactory
	defaults   map[string]models.AccessLevel
}

// NewPermissionService creates a new permission service. The defaults map
// is the built-in access table commands ship with.
func NewPermissionService(uowFactory UnitOfWorkFactory, defaults map[string]models.AccessLevel) PermissionService {
	return &permissionService{
		uowFactory: uowFactory,
		defaults:   defaults,
	}
}

// Resolve decides whether the actor may invoke the command. The policy and
// its role grants are read inside a single transaction so a concurrent
// configuration write is either fully visible or not at all.
func (s *permissionService) Resolve(ctx context.Context, guildID int64, actor Actor, command string) error {
	builtin, known := s.defaults[command]
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	// Native administrators bypass all configured policy
	if actor.IsAdmin {
		return nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	access, found, err := uow.CommandPolicyRepository().GetAccess(ctx, guildID, command)
	if err != nil {
		return fmt.Errorf("failed to get command access: %w", err)
	}
	if !found {
		access = builtin
	}

	switch access {
	case models.AccessPublic:
		return nil
	case models.AccessAdminOnly:
		return ErrPermissionDenied
	case models.AccessRestricted:
		granted, err := uow.CommandPolicyRepository().GetRoles(ctx, guildID, command)
		if err != nil {
			return fmt.Errorf("failed to get command roles: %w", err)
		}
		for _, roleID := range granted {
			for _, actorRole := range actor.RoleIDs {
				if roleID == actorRole {
					return nil
				}
			}
		}
		return ErrPermissionDenied
	default:
		return fmt.Errorf("invalid access level %q for command %s", access, command)
	}
}

// Grant marks the command restricted and records the role grant
func (s *permissionService) Grant(ctx context.Context, guildID int64, command string, roleID int64) error {
	if _, known := s.defaults[command]; !known {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.CommandPolicyRepository()
	if err := repo.SetAccess(ctx, guildID, command, models.AccessRestricted); err != nil {
		return fmt.Errorf("failed to set command access: %w", err)
	}
	if err := repo.AddRole(ctx, guildID, command, roleID); err != nil {
		return fmt.Errorf("failed to add role grant: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Revoke removes a role grant; removing the last grant reverts the command
// to its built-in default so it does not stay restricted with no one allowed.
func (s *permissionService) Revoke(ctx context.Context, guildID int64, command string, roleID int64) (int, models.AccessLevel, error) {
	builtin, known := s.defaults[command]
	if !known {
		return 0, "", fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.CommandPolicyRepository()
	if err := repo.RemoveRole(ctx, guildID, command, roleID); err != nil {
		return 0, "", fmt.Errorf("failed to remove role grant: %w", err)
	}

	remaining, err := repo.GetRoles(ctx, guildID, command)
	if err != nil {
		return 0, "", fmt.Errorf("failed to get remaining grants: %w", err)
	}

	var reverted models.AccessLevel
	if len(remaining) == 0 {
		if err := repo.SetAccess(ctx, guildID, command, builtin); err != nil {
			return 0, "", fmt.Errorf("failed to revert command access: %w", err)
		}
		reverted = builtin
	}

	if err := uow.Commit(); err != nil {
		return 0, "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(remaining), reverted, nil
}

// SetAccess explicitly sets a command's access tier
func (s *permissionService) SetAccess(ctx context.Context, guildID int64, command string, access models.AccessLevel) error {
	if _, known := s.defaults[command]; !known {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	if !access.IsValid() {
		return fmt.Errorf("invalid access level: %s", access)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.CommandPolicyRepository().SetAccess(ctx, guildID, command, access); err != nil {
		return fmt.Errorf("failed to set command access: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Overview returns the effective access map (configured rows overlaid on
// built-in defaults) and the per-command role grants for a guild
func (s *permissionService) Overview(ctx context.Context, guildID int64) (map[string]models.AccessLevel, map[string][]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	configured, err := uow.CommandPolicyRepository().GetAllAccess(ctx, guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get configured access: %w", err)
	}
	grants, err := uow.CommandPolicyRepository().GetAllRoleGrants(ctx, guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get role grants: %w", err)
	}

	access := make(map[string]models.AccessLevel, len(s.defaults))
	for command, builtin := range s.defaults {
		if configured, ok := configured[command]; ok {
			access[command] = configured
		} else {
			access[command] = builtin
		}
	}

	return access, grants, nil
}
