package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/samvad-hq/news-intelligence/internal/view"
)

//go:embed templates/page.html.tmpl
var templateFS embed.FS

const (
	DefaultTitle          = "News Intelligence"
	DefaultTriggerPath    = "/fetch"
	DefaultRefreshSeconds = 2

	LoadingLabel = "Fetching News..."
	IdleLabel    = "Fetch Latest News"

	// InvalidDate is shown for timestamps that cannot be parsed.
	InvalidDate = "Invalid Date"

	displayLayout = "January 2, 2006 at 03:04 PM"
)

// timestampLayouts are tried in order; Python isoformat output is the common case.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Options tunes a Renderer.
type Options struct {
	Title          string
	TriggerPath    string
	RefreshSeconds int
	// Location is used for timestamps without an offset and for display. Defaults to time.Local.
	Location *time.Location
}

// Renderer maps view snapshots to HTML pages.
type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
	opts   Options
}

// New parses the embedded page template.
func New(opts Options) (*Renderer, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.TriggerPath == "" {
		opts.TriggerPath = DefaultTriggerPath
	}
	if opts.RefreshSeconds <= 0 {
		opts.RefreshSeconds = DefaultRefreshSeconds
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	tmpl, err := template.ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{
		tmpl:   tmpl,
		policy: NewContentPolicy(),
		opts:   opts,
	}, nil
}

// Page is the template model for one render.
type Page struct {
	Title          string
	TriggerPath    string
	RefreshSeconds int
	Phase          view.Phase
	Loading        bool
	ButtonLabel    string
	IdleLabel      string
	Error          string
	Article        *ArticleView
	Empty          bool
}

// ArticleView is the display form of a loaded article.
type ArticleView struct {
	Headline  string
	Content   template.HTML
	Timestamp string
	DateTime  string
}

// BuildPage resolves which panels a snapshot shows. Exactly one of the error
// panel, article panel and empty state is set unless loading, which shows none.
func (r *Renderer) BuildPage(snap view.Snapshot) Page {
	phase := snap.State.Resolve()
	p := Page{
		Title:          r.opts.Title,
		TriggerPath:    r.opts.TriggerPath,
		RefreshSeconds: r.opts.RefreshSeconds,
		Phase:          phase,
		Loading:        phase == view.PhaseLoading,
		ButtonLabel:    IdleLabel,
		IdleLabel:      IdleLabel,
	}

	switch phase {
	case view.PhaseLoading:
		p.ButtonLabel = LoadingLabel
	case view.PhaseError:
		p.Error = snap.Error
	case view.PhaseLoaded:
		news := snap.Response.News
		display, machine := r.FormatTimestamp(news.Timestamp)
		p.Article = &ArticleView{
			Headline:  news.Headline,
			Content:   r.Sanitize(news.Content),
			Timestamp: display,
			DateTime:  machine,
		}
	default:
		p.Empty = true
	}
	return p
}

// Render writes the page for snap to w.
func (r *Renderer) Render(w io.Writer, snap view.Snapshot) error {
	// Buffer so a template failure never leaves a half-written page.
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, r.BuildPage(snap)); err != nil {
		return fmt.Errorf("execute page template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Sanitize strips markup outside the content allow-list.
func (r *Renderer) Sanitize(content string) template.HTML {
	return template.HTML(r.policy.Sanitize(content)) //nolint:gosec // sanitized by bluemonday
}

// FormatTimestamp returns the display string and the RFC 3339 machine form.
// Unparseable input yields InvalidDate and an empty machine form.
func (r *Renderer) FormatTimestamp(raw string) (string, string) {
	t, ok := parseTimestamp(strings.TrimSpace(raw), r.opts.Location)
	if !ok {
		return InvalidDate, ""
	}
	local := t.In(r.opts.Location)
	return local.Format(displayLayout), local.Format(time.RFC3339)
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if layout == "2006-01-02" {
			// Date-only strings are UTC midnight.
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
