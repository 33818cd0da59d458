package domain

import "time"

// Status is the moderation state of a catalog entry.
type Status string

const (
	StatusDiscovered Status = "discovered" // auto-found, no human input yet
	StatusPending    Status = "pending"    // awaiting review
	StatusApproved   Status = "approved"   // a match exists; terminal for normal flow
	StatusRejected   Status = "rejected"   // declined; external id stays blocked
)

// transitions is the closed set of legal status transitions. Approval is
// only reachable through the game commit; there are no time-based moves.
var transitions = map[Status][]Status{
	StatusDiscovered: {StatusPending, StatusApproved, StatusRejected},
	StatusPending:    {StatusApproved, StatusRejected},
	StatusRejected:   {StatusPending},
	StatusApproved:   {},
}

// CanTransition reports whether from → to is a legal moderation transition.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Provenance records how an entry got into the catalog.
type Provenance string

const (
	ProvenanceScraped   Provenance = "scraped"
	ProvenanceSubmitted Provenance = "submitted"
)

// Verification marks whether the footage itself has been verified.
type Verification string

const (
	VerificationUnverified Verification = "unverified"
	VerificationVerified   Verification = "verified"
)

// MatchupClaim is a self-reported matchup attached to a public submission.
// Names are free text, not validated against the player directory.
type MatchupClaim struct {
	Player1Name string `json:"player1_name"`
	Player2Name string `json:"player2_name"`
	Score1      int    `json:"score1"`
	Score2      int    `json:"score2"`
}

// CatalogEntry is a candidate video tracked through the moderation pipeline.
// ExternalID is the dedup key and is unique catalog-wide regardless of
// provenance.
type CatalogEntry struct {
	ID               int64
	ExternalID       string
	URL              string
	Title            string
	SourceName       string
	ThumbnailURL     *string
	UploadedAt       *time.Time
	Duration         int // seconds
	Status           Status
	Verification     Verification
	SubmitterContact *string
	SubmitterNote    *string
	Claim            *MatchupClaim
	Provenance       Provenance
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
