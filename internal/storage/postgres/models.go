package postgres

import (
	"errors"
	"time"

	"github.com/lib/pq"

	"courtlog/internal/domain"
)

// Row types keep the sql mapping out of the domain package; catalog entries
// flatten the optional matchup claim into nullable columns.

type channelRow struct {
	ID            int64      `db:"id"`
	ExternalID    string     `db:"external_id"`
	Name          string     `db:"name"`
	Cadence       string     `db:"cadence"`
	Whitelisted   bool       `db:"whitelisted"`
	LastScrapedAt *time.Time `db:"last_scraped_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r channelRow) toDomain() domain.Channel {
	return domain.Channel{
		ID:            r.ID,
		ExternalID:    r.ExternalID,
		Name:          r.Name,
		Cadence:       domain.Cadence(r.Cadence),
		Whitelisted:   r.Whitelisted,
		LastScrapedAt: r.LastScrapedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type entryRow struct {
	ID               int64      `db:"id"`
	ExternalID       string     `db:"external_id"`
	URL              string     `db:"url"`
	Title            string     `db:"title"`
	SourceName       string     `db:"source_name"`
	ThumbnailURL     *string    `db:"thumbnail_url"`
	UploadedAt       *time.Time `db:"uploaded_at"`
	Duration         int        `db:"duration"`
	Status           string     `db:"status"`
	Verification     string     `db:"verification"`
	SubmitterContact *string    `db:"submitter_contact"`
	SubmitterNote    *string    `db:"submitter_note"`
	ClaimPlayer1     *string    `db:"claim_player1"`
	ClaimPlayer2     *string    `db:"claim_player2"`
	ClaimScore1      *int       `db:"claim_score1"`
	ClaimScore2      *int       `db:"claim_score2"`
	Provenance       string     `db:"provenance"`
	ProcessedAt      *time.Time `db:"processed_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r entryRow) toDomain() domain.CatalogEntry {
	e := domain.CatalogEntry{
		ID:               r.ID,
		ExternalID:       r.ExternalID,
		URL:              r.URL,
		Title:            r.Title,
		SourceName:       r.SourceName,
		ThumbnailURL:     r.ThumbnailURL,
		UploadedAt:       r.UploadedAt,
		Duration:         r.Duration,
		Status:           domain.Status(r.Status),
		Verification:     domain.Verification(r.Verification),
		SubmitterContact: r.SubmitterContact,
		SubmitterNote:    r.SubmitterNote,
		Provenance:       domain.Provenance(r.Provenance),
		ProcessedAt:      r.ProcessedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.ClaimPlayer1 != nil && r.ClaimPlayer2 != nil && r.ClaimScore1 != nil && r.ClaimScore2 != nil {
		e.Claim = &domain.MatchupClaim{
			Player1Name: *r.ClaimPlayer1,
			Player2Name: *r.ClaimPlayer2,
			Score1:      *r.ClaimScore1,
			Score2:      *r.ClaimScore2,
		}
	}
	return e
}

type matchRow struct {
	ID        int64     `db:"id"`
	EntryID   int64     `db:"entry_id"`
	Player1ID int64     `db:"player1_id"`
	Player2ID int64     `db:"player2_id"`
	Score1    int       `db:"score1"`
	Score2    int       `db:"score2"`
	WinnerID  int64     `db:"winner_id"`
	Official  bool      `db:"official"`
	PlayedAt  time.Time `db:"played_at"`
	Location  *string   `db:"location"`
	Notes     *string   `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
}

func (r matchRow) toDomain() domain.Match {
	return domain.Match(r)
}

type statRow struct {
	ID        int64     `db:"id"`
	MatchID   int64     `db:"match_id"`
	PlayerID  int64     `db:"player_id"`
	Points    int       `db:"points"`
	Rebounds  int       `db:"rebounds"`
	Assists   int       `db:"assists"`
	Steals    int       `db:"steals"`
	Blocks    int       `db:"blocks"`
	Turnovers int       `db:"turnovers"`
	CreatedAt time.Time `db:"created_at"`
}

func (r statRow) toDomain() domain.ParticipantStat {
	return domain.ParticipantStat{
		ID:       r.ID,
		MatchID:  r.MatchID,
		PlayerID: r.PlayerID,
		StatLine: domain.StatLine{
			Points:    r.Points,
			Rebounds:  r.Rebounds,
			Assists:   r.Assists,
			Steals:    r.Steals,
			Blocks:    r.Blocks,
			Turnovers: r.Turnovers,
		},
		CreatedAt: r.CreatedAt,
	}
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation on the named constraint (any constraint when name is empty).
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
