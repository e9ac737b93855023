package news

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

const (
	// DefaultItemsPerFeed is how many headlines each feed contributes.
	DefaultItemsPerFeed = 5

	// DefaultTimeout bounds each feed fetch.
	DefaultTimeout = 20 * time.Second
)

// Service gathers headlines from the configured feeds.
type Service struct {
	provider     interfaces.NewsFeedProvider
	feeds        []common.FeedConfig
	itemsPerFeed int
	timeout      time.Duration
	logger       arbor.ILogger
}

// NewService creates a news service over feeds.
func NewService(provider interfaces.NewsFeedProvider, feeds []common.FeedConfig, logger arbor.ILogger) *Service {
	return &Service{
		provider:     provider,
		feeds:        feeds,
		itemsPerFeed: DefaultItemsPerFeed,
		timeout:      DefaultTimeout,
		logger:       logger,
	}
}

// WithItemsPerFeed sets the per-feed item cap.
func (s *Service) WithItemsPerFeed(n int) *Service {
	if n > 0 {
		s.itemsPerFeed = n
	}
	return s
}

// WithTimeout sets the per-feed timeout.
func (s *Service) WithTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// Headlines fetches all feeds in parallel. A failed feed contributes nothing and is
// reported as a degraded outcome; items keep feed order, then item order.
func (s *Service) Headlines(ctx context.Context) ([]models.NewsItem, []models.Outcome) {
	perFeed := make([][]models.NewsItem, len(s.feeds))
	outcomes := make([]models.Outcome, len(s.feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(s.feeds) + 1)

	for i, feed := range s.feeds {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			items, err := s.provider.Fetch(fetchCtx, feed.URL)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("feed", feed.Label).
					Msg("News feed unavailable")
				outcomes[i] = models.NewOutcome(models.CollaboratorNewsFeed, feed.Label, models.OutcomeDegraded, err)
				return nil
			}

			if len(items) > s.itemsPerFeed {
				items = items[:s.itemsPerFeed]
			}
			for j := range items {
				items[j].Feed = feed.Label
			}
			perFeed[i] = items
			outcomes[i] = models.NewOutcome(models.CollaboratorNewsFeed, feed.Label, models.OutcomeSuccess, nil)
			return nil
		})
	}
	_ = g.Wait()

	all := make([]models.NewsItem, 0, len(s.feeds)*s.itemsPerFeed)
	for _, items := range perFeed {
		all = append(all, items...)
	}
	return all, outcomes
}
