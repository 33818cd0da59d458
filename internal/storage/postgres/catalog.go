package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"courtlog/internal/domain"
)

const entryColumns = `
	id, external_id, url, title, source_name, thumbnail_url, uploaded_at,
	duration, status, verification, submitter_contact, submitter_note,
	claim_player1, claim_player2, claim_score1, claim_score2,
	provenance, processed_at, created_at, updated_at`

type CatalogStore struct {
	db *sqlx.DB
}

func NewCatalogStore(db *sqlx.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Create inserts a new catalog entry. A duplicate external id anywhere in
// the catalog fails with a ValidationError; the unique constraint is the
// authoritative dedup check.
func (s *CatalogStore) Create(ctx context.Context, entry *domain.CatalogEntry) (int64, error) {
	query := `
		INSERT INTO catalog_entries (
			external_id, url, title, source_name, thumbnail_url, uploaded_at,
			duration, status, verification, submitter_contact, submitter_note,
			claim_player1, claim_player2, claim_score1, claim_score2, provenance
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING id`

	var claimP1, claimP2 *string
	var claimS1, claimS2 *int
	if entry.Claim != nil {
		claimP1 = &entry.Claim.Player1Name
		claimP2 = &entry.Claim.Player2Name
		claimS1 = &entry.Claim.Score1
		claimS2 = &entry.Claim.Score2
	}

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		entry.ExternalID,
		entry.URL,
		entry.Title,
		entry.SourceName,
		entry.ThumbnailURL,
		entry.UploadedAt,
		entry.Duration,
		entry.Status,
		entry.Verification,
		entry.SubmitterContact,
		entry.SubmitterNote,
		claimP1,
		claimP2,
		claimS1,
		claimS2,
		entry.Provenance,
	).Scan(&id)

	if isUniqueViolation(err, "catalog_entries_external_id_key") {
		return 0, &domain.ValidationError{Reason: "duplicate external id " + entry.ExternalID}
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *CatalogStore) GetByID(ctx context.Context, id int64) (*domain.CatalogEntry, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate row-locks the entry for the remainder of the enclosing
// transaction. Preconditions checked against this read cannot be invalidated
// by a concurrent writer before commit.
func (s *CatalogStore) GetForUpdate(ctx context.Context, id int64) (*domain.CatalogEntry, error) {
	return s.get(ctx, id, true)
}

func (s *CatalogStore) get(ctx context.Context, id int64, forUpdate bool) (*domain.CatalogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entries WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var row entryRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "catalog entry", ID: id}
	}
	if err != nil {
		return nil, err
	}

	entry := row.toDomain()
	return &entry, nil
}

// FilterKnown returns the subset of externalIDs already present in the
// catalog, in one batched lookup.
func (s *CatalogStore) FilterKnown(ctx context.Context, externalIDs []string) (map[string]struct{}, error) {
	if len(externalIDs) == 0 {
		return make(map[string]struct{}), nil
	}

	query := `SELECT external_id FROM catalog_entries WHERE external_id = ANY($1)`

	var known []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &known, query, pq.Array(externalIDs))
	if err != nil {
		return nil, err
	}

	result := make(map[string]struct{}, len(known))
	for _, id := range known {
		result[id] = struct{}{}
	}
	return result, nil
}

func (s *CatalogStore) ExternalIDExists(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM catalog_entries WHERE external_id = $1)`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists, query, externalID)
	return exists, err
}

func (s *CatalogStore) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.CatalogEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM catalog_entries
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []entryRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, status, limit); err != nil {
		return nil, err
	}

	entries := make([]domain.CatalogEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toDomain()
	}
	return entries, nil
}

func (s *CatalogStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	query := `
		UPDATE catalog_entries
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "catalog entry", ID: id}
	}
	return nil
}

// MarkApproved transitions the entry to approved and stamps processed-at.
func (s *CatalogStore) MarkApproved(ctx context.Context, id int64, processedAt time.Time) error {
	query := `
		UPDATE catalog_entries
		SET status = $2, processed_at = $3, updated_at = NOW()
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, domain.StatusApproved, processedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "catalog entry", ID: id}
	}
	return nil
}

// Delete removes the entry, freeing its external id for re-submission.
func (s *CatalogStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM catalog_entries WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "catalog entry", ID: id}
	}
	return nil
}
