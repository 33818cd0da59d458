package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"courtlog/internal/domain"
)

type ChannelStore struct {
	db *sqlx.DB
}

func NewChannelStore(db *sqlx.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func (s *ChannelStore) Create(ctx context.Context, channel *domain.Channel) (int64, error) {
	query := `
		INSERT INTO channels (external_id, name, cadence, whitelisted)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		channel.ExternalID,
		channel.Name,
		channel.Cadence,
		channel.Whitelisted,
	).Scan(&id)

	if isUniqueViolation(err, "channels_external_id_key") {
		return 0, &domain.ValidationError{Reason: "channel already registered"}
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	var row channelRow
	query := `
		SELECT id, external_id, name, cadence, whitelisted, last_scraped_at, created_at, updated_at
		FROM channels
		WHERE id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "channel", ID: id}
	}
	if err != nil {
		return nil, err
	}

	channel := row.toDomain()
	return &channel, nil
}

func (s *ChannelStore) ListWhitelisted(ctx context.Context) ([]domain.Channel, error) {
	var rows []channelRow
	query := `
		SELECT id, external_id, name, cadence, whitelisted, last_scraped_at, created_at, updated_at
		FROM channels
		WHERE whitelisted = TRUE
		ORDER BY id`

	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, err
	}

	channels := make([]domain.Channel, len(rows))
	for i, row := range rows {
		channels[i] = row.toDomain()
	}
	return channels, nil
}

// MarkScraped advances the channel's progress marker. Called after every
// channel pass regardless of per-item failures.
func (s *ChannelStore) MarkScraped(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE channels
		SET last_scraped_at = $2, updated_at = NOW()
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "channel", ID: id}
	}
	return nil
}
