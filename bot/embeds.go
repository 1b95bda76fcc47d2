package bot

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"sattbot/models"

	"github.com/bwmarrin/discordgo"
)

const (
	newsEmbedColor   = 0x1f8b4c
	revealEmbedColor = 0x5865f2

	maxDescriptionLen = 300
	maxNewsItems      = 10
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// stripHTML flattens feed HTML into plain text suitable for an embed
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func newsEmbed(items []*models.FeedItem) *discordgo.MessageEmbed {
	if len(items) > maxNewsItems {
		items = items[:maxNewsItems]
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(items))
	for _, item := range items {
		value := truncate(stripHTML(item.Description), maxDescriptionLen)
		if item.Link != "" {
			if value != "" {
				value += "\n"
			}
			value += fmt.Sprintf("[Read more](%s)", item.Link)
		}
		if value == "" {
			value = "​"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  truncate(stripHTML(item.Title), 256),
			Value: value,
		})
	}

	return &discordgo.MessageEmbed{
		Title:     "📰 Today's Brief",
		Color:     newsEmbedColor,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func revealEmbed(question string, item *models.FeedItem) *discordgo.MessageEmbed {
	description := truncate(stripHTML(item.Description), maxDescriptionLen)
	if item.Link != "" {
		if description != "" {
			description += "\n\n"
		}
		description += fmt.Sprintf("[Full story](%s)", item.Link)
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔍 The answer: %s", truncate(stripHTML(item.Title), 240)),
		Description: description,
		Color:       revealEmbedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: truncate(question, 2048),
		},
	}
}
