package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// feedItemRetention is how long ingested feed items are kept for
	// dedup. Feeds only surface recent entries, so anything older can
	// no longer cause a duplicate post.
	feedItemRetention = 30 * 24 * time.Hour

	// revealedPollRetention is how long revealed polls linger before
	// cleanup. They are inert once revealed; kept briefly for debugging.
	revealedPollRetention = 7 * 24 * time.Hour
)

// retentionService implements the RetentionService interface
type retentionService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewRetentionService creates a new retention service
func NewRetentionService(uowFactory UnitOfWorkFactory) RetentionService {
	return &retentionService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// Sweep deletes feed items and revealed polls past their retention windows
func (s *retentionService) Sweep(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.now()

	items, err := uow.FeedRepository().DeleteItemsBefore(ctx, now.Add(-feedItemRetention))
	if err != nil {
		return fmt.Errorf("failed to delete expired feed items: %w", err)
	}

	polls, err := uow.PollRepository().DeletePollsBefore(ctx, now.Add(-revealedPollRetention))
	if err != nil {
		return fmt.Errorf("failed to delete expired polls: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"feedItems": items,
		"polls":     polls,
	}).Info("Retention sweep complete")
	return nil
}
