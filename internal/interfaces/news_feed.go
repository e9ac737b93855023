package interfaces

import (
	"context"

	"github.com/ternarybob/prism/internal/models"
)

// NewsFeedProvider reads the entries of one feed URL.
type NewsFeedProvider interface {
	Fetch(ctx context.Context, url string) ([]models.NewsItem, error)
}
