package bot

import (
	"github.com/bwmarrin/discordgo"
)

const historyPageSize = 100

// channelHistory reads up to limit recent messages from a channel,
// paging backwards through the API's 100-message pages.
func (b *Bot) channelHistory(channelID string, limit int) ([]*discordgo.Message, error) {
	messages := make([]*discordgo.Message, 0, limit)
	beforeID := ""

	for len(messages) < limit {
		pageSize := historyPageSize
		if remaining := limit - len(messages); remaining < pageSize {
			pageSize = remaining
		}

		page, err := b.session.ChannelMessages(channelID, pageSize, beforeID, "", "")
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		messages = append(messages, page...)
		beforeID = page[len(page)-1].ID
	}

	return messages, nil
}
