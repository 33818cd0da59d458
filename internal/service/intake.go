package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"courtlog/internal/domain"
)

// IntakeService accepts publicly self-reported candidate videos. Submissions
// share the catalog's dedup key space with scraped entries and are rate
// limited per origin.
type IntakeService struct {
	catalog   CatalogStore
	limiter   RateLimiter
	publisher Publisher
	logger    *slog.Logger
}

func NewIntakeService(
	catalog CatalogStore,
	limiter RateLimiter,
	publisher Publisher,
	logger *slog.Logger,
) *IntakeService {
	return &IntakeService{
		catalog:   catalog,
		limiter:   limiter,
		publisher: publisher,
		logger:    logger.With("component", "intake"),
	}
}

// Submit validates, rate limits, and creates a pending catalog entry for the
// submission. originKey identifies the submitter for rate limiting.
func (s *IntakeService) Submit(ctx context.Context, originKey string, sub domain.Submission) (*domain.CatalogEntry, error) {
	allowed, retryAfter, err := s.limiter.Allow(ctx, originKey)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		return nil, &domain.RateLimitError{RetryAfter: retryAfter}
	}

	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	exists, err := s.catalog.ExternalIDExists(ctx, sub.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return nil, &domain.ValidationError{Reason: "duplicate external id " + sub.ExternalID}
	}

	entry := domain.CatalogEntry{
		ExternalID:       sub.ExternalID,
		URL:              sub.URL,
		Title:            sub.Title,
		SourceName:       sub.SourceName,
		ThumbnailURL:     sub.ThumbnailURL,
		UploadedAt:       sub.UploadedAt,
		Duration:         sub.Duration,
		Status:           domain.StatusPending,
		Verification:     domain.VerificationUnverified,
		SubmitterContact: sub.Contact,
		SubmitterNote:    sub.Note,
		Claim:            sub.Claim,
		Provenance:       domain.ProvenanceSubmitted,
	}

	// Create re-checks the unique constraint, closing the race between the
	// exists check above and the insert.
	id, err := s.catalog.Create(ctx, &entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id

	if s.publisher != nil {
		if err := s.publisher.PublishEntry(ctx, &entry, "submitted"); err != nil {
			s.logger.Warn("publish failed", "external_id", entry.ExternalID, "error", err)
		}
	}

	s.logger.Info("submission accepted",
		"external_id", entry.ExternalID,
		"entry_id", entry.ID,
	)

	return &entry, nil
}

// validateSubmission enforces the intake rules. The self-reported matchup is
// checked here against the free-text names; approval re-validates the same
// rules against resolved participant references.
func validateSubmission(sub domain.Submission) error {
	if strings.TrimSpace(sub.ExternalID) == "" {
		return &domain.ValidationError{Reason: "external id is required"}
	}
	if strings.TrimSpace(sub.URL) == "" {
		return &domain.ValidationError{Reason: "url is required"}
	}
	if strings.TrimSpace(sub.Title) == "" {
		return &domain.ValidationError{Reason: "title is required"}
	}

	if claim := sub.Claim; claim != nil {
		p1 := strings.TrimSpace(claim.Player1Name)
		p2 := strings.TrimSpace(claim.Player2Name)
		if p1 == "" || p2 == "" {
			return &domain.ValidationError{Reason: "both player names are required"}
		}
		if strings.EqualFold(p1, p2) {
			return &domain.ValidationError{Reason: "participants must differ"}
		}
		if claim.Score1 < 0 || claim.Score2 < 0 {
			return &domain.ValidationError{Reason: "scores cannot be negative"}
		}
		if claim.Score1 == claim.Score2 {
			return &domain.ValidationError{Reason: "scores cannot tie"}
		}
	}

	return nil
}
