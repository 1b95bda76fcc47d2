package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sattbot/models"
)

func TestStripHTML(t *testing.T) {
	t.Run("removes tags and entities", func(t *testing.T) {
		got := stripHTML(`<p>AI labs raced to ship &amp; deploy <b>new</b> models.</p>`)
		assert.Equal(t, "AI labs raced to ship & deploy new models.", got)
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := stripHTML("one\n\n  two\tthree")
		assert.Equal(t, "one two three", got)
	})

	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "no markup here", stripHTML("no markup here"))
	})
}

func TestTruncate(t *testing.T) {
	t.Run("short strings untouched", func(t *testing.T) {
		assert.Equal(t, "hello", truncate("hello", 10))
	})

	t.Run("long strings get ellipsis within limit", func(t *testing.T) {
		got := truncate(strings.Repeat("a", 50), 20)
		assert.Equal(t, 20, len([]rune(got)))
		assert.True(t, strings.HasSuffix(got, "…"))
	})

	t.Run("multibyte text does not split runes", func(t *testing.T) {
		got := truncate(strings.Repeat("é", 50), 20)
		assert.Equal(t, 20, len([]rune(got)))
	})
}

func TestNewsEmbed(t *testing.T) {
	items := []*models.FeedItem{
		{Title: "<b>Big release</b>", Description: "<p>Details &amp; context</p>", Link: "https://example.com/a"},
		{Title: "Quiet day", Description: "", Link: ""},
	}

	embed := newsEmbed(items)

	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Big release", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "Details & context")
	assert.Contains(t, embed.Fields[0].Value, "https://example.com/a")
	assert.Equal(t, "Quiet day", embed.Fields[1].Name)
	assert.NotEmpty(t, embed.Fields[1].Value)

	t.Run("caps item count", func(t *testing.T) {
		var many []*models.FeedItem
		for i := 0; i < 25; i++ {
			many = append(many, &models.FeedItem{Title: "item", Description: "s"})
		}
		assert.Len(t, newsEmbed(many).Fields, maxNewsItems)
	})
}

func TestRevealEmbed(t *testing.T) {
	item := &models.FeedItem{
		Title:       "Will open models catch up: Yes, say researchers",
		Description: "<p>A new benchmark suggests the gap narrowed.</p>",
		Link:        "https://example.com/story",
		PublishedAt: time.Now(),
	}

	embed := revealEmbed("Will open models catch up?", item)

	assert.Contains(t, embed.Title, "Will open models catch up")
	assert.Contains(t, embed.Description, "the gap narrowed")
	assert.Contains(t, embed.Description, "https://example.com/story")
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Will open models catch up?", embed.Footer.Text)
}
