package podcasts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
)

type service struct {
	repo       Repository
	episodes   episodes.Service
	feedParser *gofeed.Parser
}

// NewService creates a new podcast service
func NewService(repo Repository, episodeSvc episodes.Service) Service {
	return &service{
		repo:       repo,
		episodes:   episodeSvc,
		feedParser: gofeed.NewParser(),
	}
}

// Subscribe fetches the feed, stores the podcast, and ingests its episodes.
// Subscribing to an already-known feed refreshes it instead of failing.
func (s *service) Subscribe(ctx context.Context, feedURL string) (*models.Podcast, error) {
	if existing, err := s.repo.GetByFeedURL(ctx, feedURL); err == nil {
		if _, err := s.RefreshFeed(ctx, existing.ID); err != nil {
			return nil, err
		}
		return existing, nil
	} else if !errors.Is(err, ErrPodcastNotFound) {
		return nil, err
	}

	feed, err := s.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed contains no items")
	}

	podcast := &models.Podcast{
		Title:       feed.Title,
		Description: feed.Description,
		FeedURL:     feedURL,
		Language:    feed.Language,
	}
	if feed.Image != nil {
		podcast.ImageURL = feed.Image.URL
	}
	if len(feed.Authors) > 0 && feed.Authors[0] != nil {
		podcast.Author = feed.Authors[0].Name
	}
	if len(feed.Categories) > 0 {
		podcast.Category = feed.Categories[0]
	}

	if err := s.repo.Create(ctx, podcast); err != nil {
		return nil, err
	}

	added := s.ingestItems(ctx, podcast, feed.Items)
	log.Printf("[DEBUG] Subscribed to %q, ingested %d episodes", podcast.Title, added)
	return podcast, nil
}

// RefreshFeed re-fetches the feed and ingests episodes not yet known,
// returning how many were added
func (s *service) RefreshFeed(ctx context.Context, podcastID uint) (int, error) {
	podcast, err := s.repo.GetByID(ctx, podcastID)
	if err != nil {
		return 0, err
	}

	feed, err := s.feedParser.ParseURLWithContext(podcast.FeedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	added := s.ingestItems(ctx, podcast, feed.Items)
	if added > 0 {
		log.Printf("[DEBUG] Refreshed %q, %d new episodes", podcast.Title, added)
	}
	return added, nil
}

// ingestItems upserts feed items as episodes, skipping items without audio
func (s *service) ingestItems(ctx context.Context, podcast *models.Podcast, items []*gofeed.Item) int {
	var added int
	for _, item := range items {
		if item == nil {
			continue
		}

		audioURL := enclosureAudioURL(item)
		if audioURL == "" {
			continue
		}

		episode := &models.Episode{
			PodcastID:   podcast.ID,
			Title:       item.Title,
			Description: item.Description,
			GUID:        itemGUID(item, audioURL),
			AudioURL:    audioURL,
		}
		if item.PublishedParsed != nil {
			episode.PublishedAt = *item.PublishedParsed
		} else {
			episode.PublishedAt = time.Now()
		}
		if d := itunesDuration(item); d > 0 {
			episode.Duration = &d
		}

		created, err := s.episodes.UpsertByGUID(ctx, episode)
		if err != nil {
			log.Printf("[WARN] Failed to ingest episode %q: %v", item.Title, err)
			continue
		}
		if created {
			added++
		}
	}
	return added
}

func (s *service) GetByID(ctx context.Context, id uint) (*models.Podcast, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]models.Podcast, error) {
	return s.repo.List(ctx)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// enclosureAudioURL returns the first audio enclosure URL of a feed item
func enclosureAudioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "audio/") {
			return enc.URL
		}
	}
	return ""
}

// itemGUID returns the item GUID, falling back to the audio URL which is
// stable for a given episode
func itemGUID(item *gofeed.Item, audioURL string) string {
	if item.GUID != "" {
		return item.GUID
	}
	return audioURL
}

// itunesDuration parses the itunes:duration extension, which is either
// plain seconds or HH:MM:SS
func itunesDuration(item *gofeed.Item) float64 {
	if item.ITunesExt == nil || item.ITunesExt.Duration == "" {
		return 0
	}

	raw := item.ITunesExt.Duration
	if !strings.Contains(raw, ":") {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			return secs
		}
		return 0
	}

	parts := strings.Split(raw, ":")
	var total float64
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		total = total*60 + v
	}
	return total
}
