package publishers

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic dedupe key
	"encoding/hex"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/samvad-hq/news-intelligence/internal/domain"
)

const maxExcerptRunes = 280

// ArticleEvent is the payload published downstream for each loaded article.
type ArticleEvent struct {
	EventID     string    `json:"event_id"`
	ArticleKey  string    `json:"article_key"`
	Source      string    `json:"source"`
	Headline    string    `json:"headline"`
	ContentHTML string    `json:"content_html"`
	Excerpt     string    `json:"excerpt"`
	Timestamp   string    `json:"timestamp"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// NewArticleEvent builds an event for resp fetched from source.
func NewArticleEvent(source string, resp domain.ArticleResponse) ArticleEvent {
	return ArticleEvent{
		EventID:     uuid.NewString(),
		ArticleKey:  ArticleKey(resp.News),
		Source:      source,
		Headline:    strings.TrimSpace(resp.News.Headline),
		ContentHTML: resp.News.Content,
		Excerpt:     Excerpt(resp.News.Content),
		Timestamp:   resp.News.Timestamp,
		LoadedAt:    time.Now().UTC(),
	}
}

// ArticleKey identifies an article by its headline and content.
// The backend stamps every response with a fresh timestamp, so it is left out.
func ArticleKey(n domain.News) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(n.Headline) + "\x00" + strings.TrimSpace(n.Content)))
	return hex.EncodeToString(sum[:])
}

// Excerpt returns the leading plain text of an HTML fragment.
func Excerpt(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	runes := []rune(text)
	if len(runes) <= maxExcerptRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxExcerptRunes])) + "..."
}
