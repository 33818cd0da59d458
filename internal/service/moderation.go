package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courtlog/internal/domain"
)

// ModerationService owns the moderation state machine and the game commit.
// Every multi-row effect runs inside exactly one transaction; preconditions
// are re-validated against a row-locked read inside that transaction.
type ModerationService struct {
	catalog   CatalogStore
	matches   MatchStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewModerationService(
	catalog CatalogStore,
	matches MatchStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		catalog:   catalog,
		matches:   matches,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "moderation"),
		now:       time.Now,
	}
}

// ApproveInput carries the resolved matchup for a game commit.
type ApproveInput struct {
	Player1ID    int64
	Player2ID    int64
	Score1       int
	Score2       int
	Official     bool
	PlayedAt     *time.Time
	Location     *string
	Notes        *string
	Player1Stats *domain.StatLine
	Player2Stats *domain.StatLine
}

func (in ApproveInput) validate() error {
	if in.Player1ID <= 0 || in.Player2ID <= 0 {
		return &domain.ValidationError{Reason: "both participants are required"}
	}
	if in.Player1ID == in.Player2ID {
		return &domain.ValidationError{Reason: "participants must differ"}
	}
	if in.Score1 < 0 || in.Score2 < 0 {
		return &domain.ValidationError{Reason: "scores cannot be negative"}
	}
	if in.Score1 == in.Score2 {
		return &domain.ValidationError{Reason: "scores cannot tie"}
	}
	return nil
}

// Approve performs the game commit: create the match, one stat row per side,
// and transition the entry to approved — atomically. A concurrent approval of
// the same entry loses with a ConflictError.
func (s *ModerationService) Approve(ctx context.Context, entryID int64, in ApproveInput) (*domain.Match, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		match *domain.Match
		entry *domain.CatalogEntry
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		entry, err = s.catalog.GetForUpdate(txCtx, entryID)
		if err != nil {
			return err
		}
		if entry.Status == domain.StatusApproved {
			return &domain.ConflictError{Reason: "entry already has a match"}
		}
		if !domain.CanTransition(entry.Status, domain.StatusApproved) {
			return &domain.ConflictError{Reason: fmt.Sprintf("cannot approve entry in status %q", entry.Status)}
		}

		playedAt := s.now()
		switch {
		case in.PlayedAt != nil:
			playedAt = *in.PlayedAt
		case entry.UploadedAt != nil:
			playedAt = *entry.UploadedAt
		}

		m := &domain.Match{
			EntryID:   entryID,
			Player1ID: in.Player1ID,
			Player2ID: in.Player2ID,
			Score1:    in.Score1,
			Score2:    in.Score2,
			WinnerID:  domain.WinnerOf(in.Player1ID, in.Player2ID, in.Score1, in.Score2),
			Official:  in.Official,
			PlayedAt:  playedAt,
			Location:  in.Location,
			Notes:     in.Notes,
		}

		id, err := s.matches.Create(txCtx, m)
		if err != nil {
			return err
		}
		m.ID = id

		stats := []domain.ParticipantStat{
			{MatchID: id, PlayerID: in.Player1ID},
			{MatchID: id, PlayerID: in.Player2ID},
		}
		if in.Player1Stats != nil {
			stats[0].StatLine = *in.Player1Stats
		}
		if in.Player2Stats != nil {
			stats[1].StatLine = *in.Player2Stats
		}
		if err := s.matches.CreateStats(txCtx, stats); err != nil {
			return err
		}

		if err := s.catalog.MarkApproved(txCtx, entryID, s.now()); err != nil {
			return err
		}

		match = m
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("approve", err)
	}

	entry.Status = domain.StatusApproved
	s.publish(ctx, entry, "approved")

	s.logger.Info("entry approved",
		"entry_id", entryID,
		"match_id", match.ID,
		"winner_id", match.WinnerID,
	)

	return match, nil
}

// Reject declines an entry. No other entity is touched.
func (s *ModerationService) Reject(ctx context.Context, entryID int64) error {
	var entry *domain.CatalogEntry

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		entry, err = s.catalog.GetForUpdate(txCtx, entryID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(entry.Status, domain.StatusRejected) {
			return &domain.ConflictError{Reason: fmt.Sprintf("cannot reject entry in status %q", entry.Status)}
		}
		return s.catalog.UpdateStatus(txCtx, entryID, domain.StatusRejected)
	})
	if err != nil {
		return wrapTxErr("reject", err)
	}

	entry.Status = domain.StatusRejected
	s.publish(ctx, entry, "rejected")

	s.logger.Info("entry rejected", "entry_id", entryID)
	return nil
}

// Reopen moves a rejected entry back to pending.
func (s *ModerationService) Reopen(ctx context.Context, entryID int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entry, err := s.catalog.GetForUpdate(txCtx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != domain.StatusRejected {
			return &domain.ConflictError{Reason: fmt.Sprintf("cannot reopen entry in status %q", entry.Status)}
		}
		return s.catalog.UpdateStatus(txCtx, entryID, domain.StatusPending)
	})
	if err != nil {
		return wrapTxErr("reopen", err)
	}

	s.logger.Info("entry reopened", "entry_id", entryID)
	return nil
}

// Delete removes the entry's match, then either deletes the entry too
// (cascade, freeing the external id for re-submission) or retains it forced
// to rejected (permanently blocking that external id). One transaction.
func (s *ModerationService) Delete(ctx context.Context, entryID int64, cascade bool) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.catalog.GetForUpdate(txCtx, entryID); err != nil {
			return err
		}

		match, err := s.matches.GetByEntryID(txCtx, entryID)
		var notFound *domain.NotFoundError
		switch {
		case err == nil:
			if err := s.matches.Delete(txCtx, match.ID); err != nil {
				return err
			}
		case errors.As(err, &notFound):
			// No match yet; the entry-level effect below still applies.
		default:
			return err
		}

		if cascade {
			return s.catalog.Delete(txCtx, entryID)
		}
		// Forced rejection is part of delete semantics, outside the normal
		// transition table: it applies even to approved entries.
		return s.catalog.UpdateStatus(txCtx, entryID, domain.StatusRejected)
	})
	if err != nil {
		return wrapTxErr("delete", err)
	}

	s.logger.Info("entry deleted", "entry_id", entryID, "cascade", cascade)
	return nil
}

func (s *ModerationService) publish(ctx context.Context, entry *domain.CatalogEntry, event string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntry(ctx, entry, event); err != nil {
		s.logger.Warn("publish failed", "entry_id", entry.ID, "event", event, "error", err)
	}
}

// wrapTxErr surfaces domain failure kinds unchanged and wraps plumbing
// failures as a single TransactionError: the unit rolled back with no
// partial effects.
func wrapTxErr(op string, err error) error {
	var (
		valErr      *domain.ValidationError
		notFoundErr *domain.NotFoundError
		conflictErr *domain.ConflictError
	)
	if errors.As(err, &valErr) || errors.As(err, &notFoundErr) || errors.As(err, &conflictErr) {
		return err
	}
	return &domain.TransactionError{Op: op, Err: err}
}
