package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"courtlog/internal/domain"
	"courtlog/internal/service/mocks"
)

type ModerationServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	catalog   *mocks.MockCatalogStore
	matches   *mocks.MockMatchStore
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher

	service *ModerationService
	logger  *slog.Logger
	now     time.Time
}

func (s *ModerationServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.catalog = mocks.NewMockCatalogStore(s.ctrl)
	s.matches = mocks.NewMockMatchStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.service = NewModerationService(
		s.catalog,
		s.matches,
		s.txManager,
		s.publisher,
		s.logger,
	)
	s.service.now = func() time.Time { return s.now }
}

func (s *ModerationServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestModerationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ModerationServiceTestSuite))
}

func (s *ModerationServiceTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func pendingEntry(id int64) *domain.CatalogEntry {
	uploadedAt := time.Date(2025, 5, 20, 18, 30, 0, 0, time.UTC)
	return &domain.CatalogEntry{
		ID:         id,
		ExternalID: "vid-123",
		Title:      "Court run, game to 21",
		Status:     domain.StatusPending,
		UploadedAt: &uploadedAt,
	}
}

func validApprove() ApproveInput {
	return ApproveInput{
		Player1ID: 10,
		Player2ID: 20,
		Score1:    21,
		Score2:    18,
		Official:  true,
	}
}

func (s *ModerationServiceTestSuite) TestApprove_Success() {
	ctx := context.Background()
	entry := pendingEntry(5)

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)

	s.matches.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, m *domain.Match) (int64, error) {
			s.Equal(int64(5), m.EntryID)
			s.Equal(int64(10), m.WinnerID)
			// No explicit played-at, so the upload time is used.
			s.Equal(*entry.UploadedAt, m.PlayedAt)
			return 7, nil
		},
	)
	s.matches.EXPECT().CreateStats(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, stats []domain.ParticipantStat) error {
			s.Require().Len(stats, 2)
			s.Equal(int64(7), stats[0].MatchID)
			s.Equal(int64(10), stats[0].PlayerID)
			s.Equal(int64(20), stats[1].PlayerID)
			return nil
		},
	)
	s.catalog.EXPECT().MarkApproved(ctx, int64(5), s.now).Return(nil)
	s.publisher.EXPECT().PublishEntry(ctx, entry, "approved").Return(nil)

	match, err := s.service.Approve(ctx, 5, validApprove())

	s.NoError(err)
	s.Equal(int64(7), match.ID)
	s.Equal(int64(10), match.WinnerID)
	s.Equal(domain.StatusApproved, entry.Status)
}

func (s *ModerationServiceTestSuite) TestApprove_ExplicitPlayedAtAndStats() {
	ctx := context.Background()
	entry := pendingEntry(5)
	playedAt := time.Date(2025, 5, 25, 9, 0, 0, 0, time.UTC)

	in := validApprove()
	in.PlayedAt = &playedAt
	in.Player1Stats = &domain.StatLine{Points: 21, Rebounds: 6, Assists: 2}

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.matches.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, m *domain.Match) (int64, error) {
			s.Equal(playedAt, m.PlayedAt)
			return 7, nil
		},
	)
	s.matches.EXPECT().CreateStats(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, stats []domain.ParticipantStat) error {
			s.Require().Len(stats, 2)
			s.Equal(21, stats[0].Points)
			s.Equal(6, stats[0].Rebounds)
			// The side without a supplied line gets a zero line.
			s.Equal(domain.StatLine{}, stats[1].StatLine)
			return nil
		},
	)
	s.catalog.EXPECT().MarkApproved(ctx, int64(5), s.now).Return(nil)
	s.publisher.EXPECT().PublishEntry(ctx, entry, "approved").Return(nil)

	_, err := s.service.Approve(ctx, 5, in)

	s.NoError(err)
}

func (s *ModerationServiceTestSuite) TestApprove_InvalidInputRejectedBeforeTransaction() {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ApproveInput)
		reason string
	}{
		{
			name:   "tied scores",
			mutate: func(in *ApproveInput) { in.Score2 = in.Score1 },
			reason: "scores cannot tie",
		},
		{
			name:   "same participants",
			mutate: func(in *ApproveInput) { in.Player2ID = in.Player1ID },
			reason: "participants must differ",
		},
		{
			name:   "negative score",
			mutate: func(in *ApproveInput) { in.Score2 = -3 },
			reason: "scores cannot be negative",
		},
		{
			name:   "missing participant",
			mutate: func(in *ApproveInput) { in.Player2ID = 0 },
			reason: "both participants are required",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := validApprove()
			tt.mutate(&in)

			match, err := s.service.Approve(ctx, 5, in)

			s.Nil(match)
			var valErr *domain.ValidationError
			s.Require().ErrorAs(err, &valErr)
			s.Equal(tt.reason, valErr.Reason)
		})
	}
}

func (s *ModerationServiceTestSuite) TestApprove_AlreadyApproved() {
	ctx := context.Background()
	entry := pendingEntry(5)
	entry.Status = domain.StatusApproved

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)

	match, err := s.service.Approve(ctx, 5, validApprove())

	s.Nil(match)
	var conflictErr *domain.ConflictError
	s.Require().ErrorAs(err, &conflictErr)
	s.Contains(conflictErr.Reason, "already has a match")
}

func (s *ModerationServiceTestSuite) TestApprove_EntryNotFound() {
	ctx := context.Background()

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(99)).
		Return(nil, &domain.NotFoundError{Kind: "entry", ID: 99})

	match, err := s.service.Approve(ctx, 99, validApprove())

	s.Nil(match)
	var notFoundErr *domain.NotFoundError
	s.ErrorAs(err, &notFoundErr)
}

func (s *ModerationServiceTestSuite) TestApprove_StoreFailureWrapsTransactionError() {
	ctx := context.Background()
	entry := pendingEntry(5)

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.matches.EXPECT().Create(ctx, gomock.Any()).Return(int64(0), errors.New("insert failed"))

	match, err := s.service.Approve(ctx, 5, validApprove())

	s.Nil(match)
	var txErr *domain.TransactionError
	s.Require().ErrorAs(err, &txErr)
	s.Equal("approve", txErr.Op)
}

func (s *ModerationServiceTestSuite) TestReject_Success() {
	ctx := context.Background()
	entry := pendingEntry(5)

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.catalog.EXPECT().UpdateStatus(ctx, int64(5), domain.StatusRejected).Return(nil)
	s.publisher.EXPECT().PublishEntry(ctx, entry, "rejected").Return(nil)

	err := s.service.Reject(ctx, 5)

	s.NoError(err)
	s.Equal(domain.StatusRejected, entry.Status)
}

func (s *ModerationServiceTestSuite) TestReject_ApprovedEntryConflicts() {
	ctx := context.Background()
	entry := pendingEntry(5)
	entry.Status = domain.StatusApproved

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)

	err := s.service.Reject(ctx, 5)

	var conflictErr *domain.ConflictError
	s.ErrorAs(err, &conflictErr)
}

func (s *ModerationServiceTestSuite) TestReopen_FromRejected() {
	ctx := context.Background()
	entry := pendingEntry(5)
	entry.Status = domain.StatusRejected

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.catalog.EXPECT().UpdateStatus(ctx, int64(5), domain.StatusPending).Return(nil)

	err := s.service.Reopen(ctx, 5)

	s.NoError(err)
}

func (s *ModerationServiceTestSuite) TestReopen_OnlyFromRejected() {
	ctx := context.Background()

	for _, status := range []domain.Status{domain.StatusDiscovered, domain.StatusPending, domain.StatusApproved} {
		entry := pendingEntry(5)
		entry.Status = status

		s.expectTransaction()
		s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)

		err := s.service.Reopen(ctx, 5)

		var conflictErr *domain.ConflictError
		s.ErrorAs(err, &conflictErr, "status %s", status)
	}
}

func (s *ModerationServiceTestSuite) TestDelete_Cascade() {
	ctx := context.Background()
	entry := pendingEntry(5)
	entry.Status = domain.StatusApproved

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.matches.EXPECT().GetByEntryID(ctx, int64(5)).Return(&domain.Match{ID: 7, EntryID: 5}, nil)
	s.matches.EXPECT().Delete(ctx, int64(7)).Return(nil)
	s.catalog.EXPECT().Delete(ctx, int64(5)).Return(nil)

	err := s.service.Delete(ctx, 5, true)

	s.NoError(err)
}

func (s *ModerationServiceTestSuite) TestDelete_RetainForcesRejected() {
	ctx := context.Background()
	entry := pendingEntry(5)
	entry.Status = domain.StatusApproved

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.matches.EXPECT().GetByEntryID(ctx, int64(5)).Return(&domain.Match{ID: 7, EntryID: 5}, nil)
	s.matches.EXPECT().Delete(ctx, int64(7)).Return(nil)
	// Retained entries are forced to rejected even from approved.
	s.catalog.EXPECT().UpdateStatus(ctx, int64(5), domain.StatusRejected).Return(nil)

	err := s.service.Delete(ctx, 5, false)

	s.NoError(err)
}

func (s *ModerationServiceTestSuite) TestDelete_WithoutMatch() {
	ctx := context.Background()
	entry := pendingEntry(5)

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.matches.EXPECT().GetByEntryID(ctx, int64(5)).
		Return(nil, &domain.NotFoundError{Kind: "match for entry", ID: 5})
	s.catalog.EXPECT().UpdateStatus(ctx, int64(5), domain.StatusRejected).Return(nil)

	err := s.service.Delete(ctx, 5, false)

	s.NoError(err)
}

func (s *ModerationServiceTestSuite) TestDelete_EntryNotFound() {
	ctx := context.Background()

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(99)).
		Return(nil, &domain.NotFoundError{Kind: "entry", ID: 99})

	err := s.service.Delete(ctx, 99, true)

	var notFoundErr *domain.NotFoundError
	s.ErrorAs(err, &notFoundErr)
}

func (s *ModerationServiceTestSuite) TestApprove_PublisherNil() {
	ctx := context.Background()
	entry := pendingEntry(5)

	service := NewModerationService(s.catalog, s.matches, s.txManager, nil, s.logger)
	service.now = s.service.now

	s.expectTransaction()
	s.catalog.EXPECT().GetForUpdate(ctx, int64(5)).Return(entry, nil)
	s.matches.EXPECT().Create(ctx, gomock.Any()).Return(int64(7), nil)
	s.matches.EXPECT().CreateStats(ctx, gomock.Any()).Return(nil)
	s.catalog.EXPECT().MarkApproved(ctx, int64(5), s.now).Return(nil)

	match, err := service.Approve(ctx, 5, ApproveInput{
		Player1ID: 10,
		Player2ID: 20,
		Score1:    11,
		Score2:    9,
	})

	s.NoError(err)
	s.Equal(int64(7), match.ID)
}
