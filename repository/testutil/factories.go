package testutil

import (
	"fmt"
	"time"

	"sattbot/models"
)

// CreateTestFeedItem creates a feed item with default values
func CreateTestFeedItem(guildID int64, link string) models.FeedItem {
	return models.FeedItem{
		GuildID:     guildID,
		Title:       fmt.Sprintf("Item %s", link),
		Link:        link,
		Description: "A test feed item.",
		PublishedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// CreateTestPoll creates an active poll with default values, due at revealAt
func CreateTestPoll(guildID int64, revealAt time.Time) *models.ActivePoll {
	return &models.ActivePoll{
		GuildID:    guildID,
		ChannelID:  5000,
		MessageID:  9000,
		Question:   "Is the sky blue?",
		AnswerData: []byte(`{"title":"2026-02-27: Is the sky blue?","description":"Yes."}`),
		RevealAt:   revealAt,
	}
}
