package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"courtlog/internal/config"
	"courtlog/internal/domain"
)

// IngestService runs scrape passes over the whitelisted channels: select the
// due ones, fetch recent listings, dedup against the catalog, and create new
// entries for moderation.
type IngestService struct {
	source    VideoSource
	channels  ChannelStore
	catalog   CatalogStore
	publisher Publisher
	logger    *slog.Logger
	config    config.IngestConfig
	now       func() time.Time
}

func NewIngestService(
	source VideoSource,
	channels ChannelStore,
	catalog CatalogStore,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.IngestConfig,
) *IngestService {
	return &IngestService{
		source:    source,
		channels:  channels,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger.With("component", "ingest"),
		config:    cfg,
		now:       time.Now,
	}
}

// Run processes all due channels strictly sequentially, bounding burst load
// on the external source. One channel's failure never aborts the others; all
// outcomes are accumulated into the report.
func (s *IngestService) Run(ctx context.Context) (*domain.RunReport, error) {
	start := s.now()
	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: start,
	}
	logger := s.logger.With("run_id", report.RunID)

	channels, err := s.channels.ListWhitelisted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	due := domain.DueChannels(channels, start)
	report.ChannelsDue = len(due)

	logger.Info("scrape run started",
		"whitelisted", len(channels),
		"due", len(due),
	)

	for _, channel := range due {
		cr := s.processChannel(ctx, logger, channel)
		report.Channels = append(report.Channels, cr)
		report.ChannelsProcessed++
		report.TotalCreated += cr.VideosCreated
	}

	report.Duration = s.now().Sub(start)

	logger.Info("scrape run completed",
		"channels_processed", report.ChannelsProcessed,
		"total_created", report.TotalCreated,
		"duration", report.Duration,
	)

	return report, nil
}

// processChannel handles one channel pass. Recovered panics and fetch errors
// are recorded in the channel report so sibling channels still run.
func (s *IngestService) processChannel(ctx context.Context, logger *slog.Logger, channel domain.Channel) (cr domain.ChannelReport) {
	cr = domain.ChannelReport{
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
	}
	defer func() {
		if r := recover(); r != nil {
			cr.Errors = append(cr.Errors, fmt.Sprintf("panic: %v", r))
			logger.Error("channel processing panicked",
				"channel", channel.Name,
				"panic", r,
			)
		}
	}()

	runTime := s.now()

	listings, err := s.source.ListRecent(ctx, channel.ExternalID, channel.LastScrapedAt, s.config.MaxPerChannel)
	if err != nil {
		fetchErr := &domain.FetchError{ChannelExternalID: channel.ExternalID, Err: err}
		cr.Errors = append(cr.Errors, fetchErr.Error())
		logger.Warn("fetch failed, channel retried on next run", "channel", channel.Name, "error", err)
		return cr
	}
	cr.VideosFound = len(listings)

	// Dedup once, up front, so concurrent creates below write disjoint keys.
	externalIDs := make([]string, len(listings))
	for i, l := range listings {
		externalIDs[i] = l.ExternalID
	}
	known, err := s.catalog.FilterKnown(ctx, externalIDs)
	if err != nil {
		cr.Errors = append(cr.Errors, fmt.Sprintf("dedup lookup: %v", err))
		return cr
	}

	var fresh []domain.Listing
	for _, l := range listings {
		if _, exists := known[l.ExternalID]; exists {
			cr.VideosSkipped++
		} else {
			fresh = append(fresh, l)
		}
	}

	created := s.createEntries(ctx, logger, fresh, &cr)

	// Monotonic progress: the marker advances even when some creations
	// failed, so one bad item cannot permanently stall the channel.
	if err := s.channels.MarkScraped(ctx, channel.ID, runTime); err != nil {
		cr.Errors = append(cr.Errors, fmt.Sprintf("mark scraped: %v", err))
	}

	for i := range created {
		if s.publisher == nil {
			break
		}
		if err := s.publisher.PublishEntry(ctx, &created[i], "discovered"); err != nil {
			logger.Warn("publish failed",
				"external_id", created[i].ExternalID,
				"error", err,
			)
		}
	}

	logger.Info("channel processed",
		"channel", channel.Name,
		"found", cr.VideosFound,
		"created", cr.VideosCreated,
		"skipped", cr.VideosSkipped,
		"errors", len(cr.Errors),
	)

	return cr
}

// createEntries fires one creation attempt per new listing concurrently.
// Attempts are independent: each failure is collected, never raised.
func (s *IngestService) createEntries(ctx context.Context, logger *slog.Logger, fresh []domain.Listing, cr *domain.ChannelReport) []domain.CatalogEntry {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []domain.CatalogEntry
	)

	for _, listing := range fresh {
		wg.Add(1)
		go func(listing domain.Listing) {
			defer wg.Done()

			entry := entryFromListing(listing)
			id, err := s.catalog.Create(ctx, &entry)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				var valErr *domain.ValidationError
				if errors.As(err, &valErr) {
					// Lost a duplicate-key race to a concurrent run or
					// submission; the entry exists, so it is a skip.
					cr.VideosSkipped++
					return
				}
				cr.Errors = append(cr.Errors, fmt.Sprintf("create %s: %v", listing.ExternalID, err))
				logger.Warn("create failed", "external_id", listing.ExternalID, "error", err)
				return
			}

			entry.ID = id
			cr.VideosCreated++
			created = append(created, entry)
		}(listing)
	}
	wg.Wait()

	return created
}

func entryFromListing(listing domain.Listing) domain.CatalogEntry {
	uploadedAt := listing.UploadedAt
	return domain.CatalogEntry{
		ExternalID:   listing.ExternalID,
		URL:          listing.URL,
		Title:        listing.Title,
		SourceName:   listing.SourceName,
		ThumbnailURL: listing.ThumbnailURL,
		UploadedAt:   &uploadedAt,
		Duration:     listing.Duration,
		Status:       domain.StatusDiscovered,
		Verification: domain.VerificationUnverified,
		Provenance:   domain.ProvenanceScraped,
	}
}
