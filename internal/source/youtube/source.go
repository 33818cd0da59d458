package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"courtlog/internal/domain"
)

const SourceName = "YouTube"

// Config holds YouTube Data API configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches video listings and channel metadata from the YouTube Data
// API. All calls are read-only and safely retryable.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new YouTube source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", "youtube"),
	}
}

// Name returns the human-readable source name.
func (s *Source) Name() string {
	return SourceName
}

// ListRecent fetches up to maxResults of the channel's most recent video
// listings, scoped to "since" when non-nil.
func (s *Source) ListRecent(ctx context.Context, channelExternalID string, since *time.Time, maxResults int) ([]domain.Listing, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelExternalID)
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("maxResults", strconv.Itoa(maxResults))
	if since != nil {
		params.Set("publishedAfter", since.UTC().Format(time.RFC3339))
	}

	var search searchResponse
	if err := s.get(ctx, "search", params, &search); err != nil {
		return nil, fmt.Errorf("search channel %s: %w", channelExternalID, err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}

	durations, err := s.fetchDurations(ctx, ids)
	if err != nil {
		// Durations are enrichment; listings without them are still usable.
		s.logger.Warn("failed to fetch durations", "channel", channelExternalID, "error", err)
		durations = map[string]int{}
	}

	return s.transform(search.Items, durations), nil
}

// ChannelInfo fetches metadata for a single channel.
func (s *Source) ChannelInfo(ctx context.Context, externalID string) (*domain.ChannelInfo, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", externalID)

	var resp channelsResponse
	if err := s.get(ctx, "channels", params, &resp); err != nil {
		return nil, fmt.Errorf("get channel %s: %w", externalID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("channel %s not found on source", externalID)
	}

	item := resp.Items[0]
	info := &domain.ChannelInfo{
		ExternalID:  item.ID,
		Name:        item.Snippet.Title,
		Description: item.Snippet.Description,
	}
	if thumb := item.Snippet.Thumbnails.pick(); thumb != "" {
		info.ThumbnailURL = &thumb
	}
	if n, err := strconv.ParseInt(item.Statistics.SubscriberCount, 10, 64); err == nil {
		info.SubscriberCount = n
	}
	return info, nil
}

func (s *Source) fetchDurations(ctx context.Context, ids []string) (map[string]int, error) {
	if len(ids) == 0 {
		return map[string]int{}, nil
	}

	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", strings.Join(ids, ","))

	var resp videosResponse
	if err := s.get(ctx, "videos", params, &resp); err != nil {
		return nil, err
	}

	durations := make(map[string]int, len(resp.Items))
	for _, item := range resp.Items {
		seconds, err := parseISODuration(item.ContentDetails.Duration)
		if err != nil {
			s.logger.Warn("failed to parse duration",
				"external_id", item.ID,
				"duration", item.ContentDetails.Duration,
			)
			continue
		}
		durations[item.ID] = seconds
	}
	return durations, nil
}

func (s *Source) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("key", s.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", s.baseURL, endpoint, params.Encode())

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.doRequest(ctx, reqURL, out)
		if err == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"endpoint", endpoint,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(items []searchItem, durations map[string]int) []domain.Listing {
	listings := make([]domain.Listing, 0, len(items))

	for _, item := range items {
		if item.ID.VideoID == "" {
			continue
		}

		uploadedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			s.logger.Warn("failed to parse publish date",
				"external_id", item.ID.VideoID,
				"published_at", item.Snippet.PublishedAt,
			)
			continue
		}

		listing := domain.Listing{
			ExternalID: item.ID.VideoID,
			URL:        "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			Title:      item.Snippet.Title,
			SourceName: item.Snippet.ChannelTitle,
			UploadedAt: uploadedAt,
			Duration:   durations[item.ID.VideoID],
		}
		if thumb := item.Snippet.Thumbnails.pick(); thumb != "" {
			listing.ThumbnailURL = &thumb
		}

		listings = append(listings, listing)
	}

	return listings
}

func (t thumbnails) pick() string {
	if t.Medium != nil && t.Medium.URL != "" {
		return t.Medium.URL
	}
	if t.Default != nil {
		return t.Default.URL
	}
	return ""
}

// parseISODuration converts an ISO-8601 duration like "PT1H2M3S" to seconds.
// Date components longer than days never appear in video durations.
func parseISODuration(raw string) (int, error) {
	rest, ok := strings.CutPrefix(raw, "P")
	if !ok {
		return 0, fmt.Errorf("malformed duration %q", raw)
	}

	var total, n int
	inTime := false
	for _, r := range rest {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			n = n*10 + int(r-'0')
		case r == 'D':
			total += n * 86400
			n = 0
		case inTime && r == 'H':
			total += n * 3600
			n = 0
		case inTime && r == 'M':
			total += n * 60
			n = 0
		case inTime && r == 'S':
			total += n
			n = 0
		default:
			return 0, fmt.Errorf("malformed duration %q", raw)
		}
	}
	if n != 0 {
		return 0, fmt.Errorf("malformed duration %q", raw)
	}
	return total, nil
}
