package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sattbot/models"

	"github.com/bwmarrin/discordgo"
)

// Messenger implements service.Messenger on a discordgo session.
type Messenger struct {
	session *discordgo.Session
}

func NewMessenger(session *discordgo.Session) *Messenger {
	return &Messenger{session: session}
}

func (m *Messenger) PostNews(ctx context.Context, channelID int64, items []*models.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := m.session.ChannelMessageSendEmbed(formatID(channelID), newsEmbed(items))
	return err
}

func (m *Messenger) PostPoll(ctx context.Context, channelID int64, question string, openFor time.Duration) (int64, error) {
	hours := int(openFor.Hours())
	if hours < 1 {
		hours = 1
	}

	msg, err := m.session.ChannelMessageSendComplex(formatID(channelID), &discordgo.MessageSend{
		Poll: &discordgo.Poll{
			Question: discordgo.PollMedia{Text: question},
			Answers: []discordgo.PollAnswer{
				{Media: &discordgo.PollMedia{Text: "Yes"}},
				{Media: &discordgo.PollMedia{Text: "No"}},
				{Media: &discordgo.PollMedia{Text: "It's complicated"}},
			},
			Duration: hours,
		},
	})
	if err != nil {
		return 0, err
	}

	messageID, err := strconv.ParseInt(msg.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable message ID %q: %w", msg.ID, err)
	}
	return messageID, nil
}

func (m *Messenger) PostReveal(ctx context.Context, channelID, pollMessageID int64, question string, item *models.FeedItem) error {
	embed := revealEmbed(question, item)
	channel := formatID(channelID)

	_, err := m.session.ChannelMessageSendComplex(channel, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Reference: &discordgo.MessageReference{
			MessageID: formatID(pollMessageID),
			ChannelID: channel,
		},
	})
	if err != nil {
		// The poll message may have been deleted; post without the reply
		_, err = m.session.ChannelMessageSendEmbed(channel, embed)
	}
	return err
}

func (m *Messenger) Announce(ctx context.Context, channelID int64, content string) error {
	_, err := m.session.ChannelMessageSend(formatID(channelID), content)
	return err
}

func (m *Messenger) MuteMember(ctx context.Context, guildID, memberID int64, duration time.Duration, reason string) error {
	until := time.Now().Add(duration)
	return m.session.GuildMemberTimeout(formatID(guildID), formatID(memberID), &until)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
