package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samvad-hq/news-intelligence/internal/domain"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadConfigsEnabledFilter(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: stream
    type: KAFKA
    kafka:
      brokers: [" localhost:9092 ", ""]
      topic: news-updates
`)

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 1 || cfgs[0].ID != "stream" || cfgs[0].Type != TypeKafka {
		t.Fatalf("expected only stream enabled, got %#v", cfgs)
	}
	if got := cfgs[0].Kafka.Brokers; len(got) != 1 || got[0] != "localhost:9092" {
		t.Fatalf("brokers not normalized: %#v", got)
	}
}

func TestLoadConfigsJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[{"id":"topic","type":"sns","sns":{"topic_arn":"arn:aws:sns:::t","region":"ap-south-1"}}]}`)

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 1 || cfgs[0].SNS.Region != "ap-south-1" {
		t.Fatalf("unexpected configs %#v", cfgs)
	}
}

func TestLoadConfigsRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: a
    type: http
    http: {url: https://example.com}
  - id: a
    type: http
    http: {url: https://example.com/2}
`)
	if _, err := LoadConfigs(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidateConfigRequiresSinkSettings(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "h1", Type: TypeHTTP},
		{ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		{ID: "g1", Type: TypeGCPPubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
		{ID: "", Type: TypeHTTP},
	}
	for _, cfg := range cases {
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}

func TestNormalizeConfigHTTPDefaults(t *testing.T) {
	cfg := normalizeConfig(PublisherConfig{ID: " hook ", Type: " HTTP ", HTTP: &HTTPPublisherConfig{URL: " https://x "}})
	if cfg.ID != "hook" || cfg.Type != TypeHTTP {
		t.Fatalf("unexpected id/type %q/%q", cfg.ID, cfg.Type)
	}
	if cfg.HTTP.Method != httpDefaultMethod || cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds || cfg.HTTP.URL != "https://x" {
		t.Fatalf("unexpected http defaults %#v", cfg.HTTP)
	}
}

func TestArticleKeyIgnoresTimestamp(t *testing.T) {
	a := domain.News{Headline: "Same", Content: "<p>body</p>", Timestamp: "2025-01-01T00:00:00"}
	b := a
	b.Timestamp = "2025-01-01T00:05:00"
	if ArticleKey(a) != ArticleKey(b) {
		t.Fatalf("keys should match across timestamps")
	}
	b.Content = "<p>other</p>"
	if ArticleKey(a) == ArticleKey(b) {
		t.Fatalf("keys should differ for different content")
	}
}

func TestExcerptStripsMarkupAndTruncates(t *testing.T) {
	if got := Excerpt("<p>Hello   <strong>world</strong></p>\n<p>again</p>"); got != "Hello world again" {
		t.Fatalf("Excerpt = %q", got)
	}
	long := "<p>" + strings.Repeat("word ", 100) + "</p>"
	got := Excerpt(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) > maxExcerptRunes+3 {
		t.Fatalf("expected truncated excerpt, got %d runes", len([]rune(got)))
	}
}

func TestNewArticleEventPopulatesFields(t *testing.T) {
	evt := NewArticleEvent("http://backend/api/scrape-news", domain.ArticleResponse{
		Success: true,
		News:    domain.News{Headline: " Rain ", Content: "<p>Wet</p>", Timestamp: "2025-07-01T10:00:00"},
	})
	if evt.EventID == "" || evt.ArticleKey == "" || evt.LoadedAt.IsZero() {
		t.Fatalf("missing generated fields %#v", evt)
	}
	if evt.Headline != "Rain" || evt.Excerpt != "Wet" || evt.Source != "http://backend/api/scrape-news" {
		t.Fatalf("unexpected event %#v", evt)
	}
}
