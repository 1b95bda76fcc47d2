package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeGuildRegistered EventType = "guild_registered"
	EventTypeGuildRemoved    EventType = "guild_removed"
	EventTypeMemberMuted     EventType = "member_muted"
	EventTypePollPosted      EventType = "poll_posted"
	EventTypePollRevealed    EventType = "poll_revealed"
	EventTypeNewsPosted      EventType = "news_posted"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// GuildRegisteredEvent fires when a guild's settings row is created
type GuildRegisteredEvent struct {
	GuildID int64
}

func (e GuildRegisteredEvent) Type() EventType {
	return EventTypeGuildRegistered
}

// GuildRemovedEvent fires when a guild and all its dependent rows are deleted
type GuildRemovedEvent struct {
	GuildID int64
}

func (e GuildRemovedEvent) Type() EventType {
	return EventTypeGuildRemoved
}

// MemberMutedEvent fires when the anti-spam tracker mutes a member
type MemberMutedEvent struct {
	GuildID      int64
	MemberID     int64
	ChannelID    int64
	DurationSecs int
	MessageCount int
}

func (e MemberMutedEvent) Type() EventType {
	return EventTypeMemberMuted
}

// PollPostedEvent fires when a question-of-the-day poll is posted
type PollPostedEvent struct {
	PollID    int64
	GuildID   int64
	ChannelID int64
	MessageID int64
}

func (e PollPostedEvent) Type() EventType {
	return EventTypePollPosted
}

// PollRevealedEvent fires when a poll's answer reveal is marked done
type PollRevealedEvent struct {
	PollID  int64
	GuildID int64
	// Posted is false when the poll was marked revealed without a
	// delivered answer message (missing channel, revoked permission)
	Posted bool
}

func (e PollRevealedEvent) Type() EventType {
	return EventTypePollRevealed
}

// NewsPostedEvent fires after a daily news post to a guild's channel
type NewsPostedEvent struct {
	GuildID   int64
	ChannelID int64
	NewItems  int
}

func (e NewsPostedEvent) Type() EventType {
	return EventTypeNewsPosted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Use a background context for emission; events outlive the
	// transaction context that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback to drop pending events
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
