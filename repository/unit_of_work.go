package repository

import (
	"context"
	"fmt"

	"sattbot/database"
	"sattbot/events"
	"sattbot/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                *database.DB
	tx                pgx.Tx
	ctx               context.Context
	transactionalBus  *events.TransactionalBus
	guildSettingsRepo service.GuildSettingsRepository
	commandPolicyRepo service.CommandPolicyRepository
	feedRepo          service.FeedRepository
	pollRepo          service.PollRepository
	jobStateRepo      service.JobStateRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.guildSettingsRepo = newGuildSettingsRepositoryWithTx(tx)
	u.commandPolicyRepo = newCommandPolicyRepositoryWithTx(tx)
	u.feedRepo = newFeedRepositoryWithTx(tx)
	u.pollRepo = newPollRepositoryWithTx(tx)
	u.jobStateRepo = newJobStateRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// GuildSettingsRepository returns the guild settings repository for this unit of work
func (u *unitOfWork) GuildSettingsRepository() service.GuildSettingsRepository {
	if u.guildSettingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.guildSettingsRepo
}

// CommandPolicyRepository returns the command policy repository for this unit of work
func (u *unitOfWork) CommandPolicyRepository() service.CommandPolicyRepository {
	if u.commandPolicyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.commandPolicyRepo
}

// FeedRepository returns the feed repository for this unit of work
func (u *unitOfWork) FeedRepository() service.FeedRepository {
	if u.feedRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.feedRepo
}

// PollRepository returns the poll repository for this unit of work
func (u *unitOfWork) PollRepository() service.PollRepository {
	if u.pollRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.pollRepo
}

// JobStateRepository returns the job state repository for this unit of work
func (u *unitOfWork) JobStateRepository() service.JobStateRepository {
	if u.jobStateRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.jobStateRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
