package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"courtlog/internal/domain"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

// Create inserts the match. The unique constraint on entry_id is the last
// line of defense against two matches for one entry; hitting it means a
// concurrent approval won the race.
func (s *MatchStore) Create(ctx context.Context, match *domain.Match) (int64, error) {
	query := `
		INSERT INTO matches (
			entry_id, player1_id, player2_id, score1, score2,
			winner_id, official, played_at, location, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		match.EntryID,
		match.Player1ID,
		match.Player2ID,
		match.Score1,
		match.Score2,
		match.WinnerID,
		match.Official,
		match.PlayedAt,
		match.Location,
		match.Notes,
	).Scan(&id)

	if isUniqueViolation(err, "matches_entry_id_key") {
		return 0, &domain.ConflictError{Reason: "entry already has a match"}
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *MatchStore) CreateStats(ctx context.Context, stats []domain.ParticipantStat) error {
	query := `
		INSERT INTO participant_stats (
			match_id, player_id, points, rebounds, assists, steals, blocks, turnovers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	exec := GetExecutor(ctx, s.db)
	for _, stat := range stats {
		_, err := exec.ExecContext(ctx, query,
			stat.MatchID,
			stat.PlayerID,
			stat.Points,
			stat.Rebounds,
			stat.Assists,
			stat.Steals,
			stat.Blocks,
			stat.Turnovers,
		)
		if isUniqueViolation(err, "participant_stats_match_id_player_id_key") {
			return &domain.ConflictError{Reason: "participant already has stats for this match"}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MatchStore) GetByEntryID(ctx context.Context, entryID int64) (*domain.Match, error) {
	query := `
		SELECT id, entry_id, player1_id, player2_id, score1, score2,
		       winner_id, official, played_at, location, notes, created_at
		FROM matches
		WHERE entry_id = $1`

	var row matchRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "match for entry", ID: entryID}
	}
	if err != nil {
		return nil, err
	}

	match := row.toDomain()
	return &match, nil
}

func (s *MatchStore) StatsByMatchID(ctx context.Context, matchID int64) ([]domain.ParticipantStat, error) {
	query := `
		SELECT id, match_id, player_id, points, rebounds, assists, steals, blocks, turnovers, created_at
		FROM participant_stats
		WHERE match_id = $1
		ORDER BY id`

	var rows []statRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, matchID); err != nil {
		return nil, err
	}

	stats := make([]domain.ParticipantStat, len(rows))
	for i, row := range rows {
		stats[i] = row.toDomain()
	}
	return stats, nil
}

// Delete removes the match and its stat rows.
func (s *MatchStore) Delete(ctx context.Context, matchID int64) error {
	exec := GetExecutor(ctx, s.db)

	if _, err := exec.ExecContext(ctx,
		"DELETE FROM participant_stats WHERE match_id = $1", matchID); err != nil {
		return err
	}

	res, err := exec.ExecContext(ctx, "DELETE FROM matches WHERE id = $1", matchID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "match", ID: matchID}
	}
	return nil
}
