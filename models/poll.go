package models

import (
	"time"
)

// QOTDChannelConfig represents a guild's configured question-of-the-day
// channel
type QOTDChannelConfig struct {
	GuildID   int64  `db:"guild_id"`
	ChannelID *int64 `db:"channel_id"`
}

// ActivePoll represents one posted question-of-the-day poll awaiting (or
// past) its answer reveal. AnswerData carries the serialized source feed
// item needed to build the reveal message.
type ActivePoll struct {
	ID         int64     `db:"id"`
	GuildID    int64     `db:"guild_id"`
	ChannelID  int64     `db:"channel_id"`
	MessageID  int64     `db:"message_id"`
	Question   string    `db:"question"`
	AnswerData []byte    `db:"answer_data"`
	RevealAt   time.Time `db:"reveal_at"`
	Revealed   bool      `db:"revealed"`
	CreatedAt  time.Time `db:"created_at"`
}

// Due reports whether the poll's reveal time has passed
func (p *ActivePoll) Due(now time.Time) bool {
	return !p.Revealed && !now.Before(p.RevealAt)
}
