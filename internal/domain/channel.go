package domain

import "time"

// Cadence controls how often a channel is scraped.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
	CadenceManual Cadence = "manual"
)

// Interval returns the minimum time between scrapes for the cadence.
// Manual channels have no interval; they are never auto-selected.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceDaily:
		return 24 * time.Hour
	case CadenceWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceManual:
		return true
	}
	return false
}

// Channel is a whitelisted external source channel.
type Channel struct {
	ID            int64
	ExternalID    string // identifier on the source platform
	Name          string
	Cadence       Cadence
	Whitelisted   bool
	LastScrapedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DueAt reports whether the channel should be scraped at the given time.
func (c Channel) DueAt(now time.Time) bool {
	if !c.Whitelisted || c.Cadence == CadenceManual {
		return false
	}
	if c.LastScrapedAt == nil {
		return true
	}
	return now.Sub(*c.LastScrapedAt) >= c.Cadence.Interval()
}

// DueChannels selects the channels due for scraping. Pure function of the
// stored state and the given time; ordering of the input is preserved.
func DueChannels(channels []Channel, now time.Time) []Channel {
	var due []Channel
	for _, c := range channels {
		if c.DueAt(now) {
			due = append(due, c)
		}
	}
	return due
}

// ChannelInfo is channel metadata as reported by the source platform.
type ChannelInfo struct {
	ExternalID      string
	Name            string
	Description     string
	ThumbnailURL    *string
	SubscriberCount int64
}
