package domain

import "time"

// Listing is one recent video listing fetched from the source platform.
type Listing struct {
	ExternalID   string
	URL          string
	Title        string
	SourceName   string
	ThumbnailURL *string
	UploadedAt   time.Time
	Duration     int // seconds
}

// ChannelReport summarizes one channel's pass within a scrape run.
type ChannelReport struct {
	ChannelID     int64    `json:"channel_id"`
	ChannelName   string   `json:"channel_name"`
	VideosFound   int      `json:"videos_found"`
	VideosCreated int      `json:"videos_created"`
	VideosSkipped int      `json:"videos_skipped"`
	Errors        []string `json:"errors,omitempty"`
}

// RunReport is the aggregate result of a full scrape run. Per-item failures
// are accumulated here, never raised.
type RunReport struct {
	RunID             string          `json:"run_id"`
	StartedAt         time.Time       `json:"started_at"`
	ChannelsDue       int             `json:"channels_due"`
	ChannelsProcessed int             `json:"channels_processed"`
	TotalCreated      int             `json:"total_created"`
	Channels          []ChannelReport `json:"channels"`
	Errors            []string        `json:"errors,omitempty"`
	Duration          time.Duration   `json:"duration"`
}

// Submission is a publicly self-reported candidate video.
type Submission struct {
	ExternalID   string
	URL          string
	Title        string
	SourceName   string
	ThumbnailURL *string
	UploadedAt   *time.Time
	Duration     int
	Contact      *string
	Note         *string
	Claim        *MatchupClaim
}
