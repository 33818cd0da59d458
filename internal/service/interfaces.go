package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"courtlog/internal/domain"
)

type ChannelStore interface {
	Create(ctx context.Context, channel *domain.Channel) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Channel, error)
	ListWhitelisted(ctx context.Context) ([]domain.Channel, error)
	MarkScraped(ctx context.Context, id int64, at time.Time) error
}

type CatalogStore interface {
	Create(ctx context.Context, entry *domain.CatalogEntry) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.CatalogEntry, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.CatalogEntry, error)
	FilterKnown(ctx context.Context, externalIDs []string) (map[string]struct{}, error)
	ExternalIDExists(ctx context.Context, externalID string) (bool, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.CatalogEntry, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
	MarkApproved(ctx context.Context, id int64, processedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

type MatchStore interface {
	Create(ctx context.Context, match *domain.Match) (int64, error)
	CreateStats(ctx context.Context, stats []domain.ParticipantStat) error
	GetByEntryID(ctx context.Context, entryID int64) (*domain.Match, error)
	Delete(ctx context.Context, matchID int64) error
}

// VideoSource is the external platform adapter. Calls must be side-effect
// free and safely retryable.
type VideoSource interface {
	Name() string
	ListRecent(ctx context.Context, channelExternalID string, since *time.Time, maxResults int) ([]domain.Listing, error)
	ChannelInfo(ctx context.Context, externalID string) (*domain.ChannelInfo, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishEntry(ctx context.Context, entry *domain.CatalogEntry, event string) error
	Close() error
}

// RateLimiter must expose check-and-record as one atomic call per key. The
// in-process sliding window satisfies this for a single instance; a shared
// counter can be swapped in behind the same interface.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}
