package view

import (
	"context"

	"github.com/samvad-hq/news-intelligence/internal/domain"
)

// Fetcher retrieves the latest article. (nil, nil) means no usable payload.
type Fetcher interface {
	Fetch(ctx context.Context) (*domain.ArticleResponse, error)
}

// ArticleSink is notified after each successful load.
type ArticleSink interface {
	Deliver(ctx context.Context, resp domain.ArticleResponse)
}
