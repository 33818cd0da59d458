package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"courtlog/internal/domain"
	"courtlog/internal/service"
)

func (s *Server) handleScrapeRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingest.Run(r.Context())
	if err != nil {
		s.writeError(w, fmt.Errorf("scrape run: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type submitRequest struct {
	ExternalID   string               `json:"external_id"`
	URL          string               `json:"url"`
	Title        string               `json:"title"`
	SourceName   string               `json:"source_name"`
	ThumbnailURL *string              `json:"thumbnail_url"`
	UploadedAt   *time.Time           `json:"uploaded_at"`
	Duration     int                  `json:"duration"`
	Contact      *string              `json:"contact"`
	Note         *string              `json:"note"`
	Claim        *domain.MatchupClaim `json:"claim"`
}

type submitResponse struct {
	EntryID    int64         `json:"entry_id"`
	ExternalID string        `json:"external_id"`
	Status     domain.Status `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &domain.ValidationError{Reason: "malformed request body"})
		return
	}

	entry, err := s.intake.Submit(r.Context(), clientIP(r), domain.Submission{
		ExternalID:   req.ExternalID,
		URL:          req.URL,
		Title:        req.Title,
		SourceName:   req.SourceName,
		ThumbnailURL: req.ThumbnailURL,
		UploadedAt:   req.UploadedAt,
		Duration:     req.Duration,
		Contact:      req.Contact,
		Note:         req.Note,
		Claim:        req.Claim,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, submitResponse{
		EntryID:    entry.ID,
		ExternalID: entry.ExternalID,
		Status:     entry.Status,
	})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.StatusPending
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			s.writeError(w, &domain.ValidationError{Reason: "limit must be between 1 and 200"})
			return
		}
		limit = n
	}

	entries, err := s.catalog.ListByStatus(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	entry, err := s.catalog.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

type approveRequest struct {
	Player1ID    int64            `json:"player1_id"`
	Player2ID    int64            `json:"player2_id"`
	Score1       int              `json:"score1"`
	Score2       int              `json:"score2"`
	Official     bool             `json:"official"`
	PlayedAt     *time.Time       `json:"played_at"`
	Location     *string          `json:"location"`
	Notes        *string          `json:"notes"`
	Player1Stats *domain.StatLine `json:"player1_stats"`
	Player2Stats *domain.StatLine `json:"player2_stats"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &domain.ValidationError{Reason: "malformed request body"})
		return
	}

	match, err := s.moderation.Approve(r.Context(), id, service.ApproveInput{
		Player1ID:    req.Player1ID,
		Player2ID:    req.Player2ID,
		Score1:       req.Score1,
		Score2:       req.Score2,
		Official:     req.Official,
		PlayedAt:     req.PlayedAt,
		Location:     req.Location,
		Notes:        req.Notes,
		Player1Stats: req.Player1Stats,
		Player2Stats: req.Player2Stats,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, match)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	if err := s.moderation.Reject(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	if err := s.moderation.Reopen(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	cascade := false
	if raw := r.URL.Query().Get("cascade"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, &domain.ValidationError{Reason: "cascade must be a boolean"})
			return
		}
		cascade = b
	}

	if err := s.moderation.Delete(r.Context(), id, cascade); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerChannelRequest struct {
	ExternalID string         `json:"external_id"`
	Cadence    domain.Cadence `json:"cadence"`
}

func (s *Server) handleRegisterChannel(w http.ResponseWriter, r *http.Request) {
	var req registerChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &domain.ValidationError{Reason: "malformed request body"})
		return
	}

	channel, err := s.channels.Register(r.Context(), req.ExternalID, req.Cadence)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, channel)
}

func (s *Server) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.writeError(w, &domain.ValidationError{Reason: "invalid id"})
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

// writeError maps the failure taxonomy onto status codes. Anything untyped
// is a 500 with the detail kept out of the response.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		valErr      *domain.ValidationError
		notFoundErr *domain.NotFoundError
		conflictErr *domain.ConflictError
		rateErr     *domain.RateLimitError
		fetchErr    *domain.FetchError
	)

	switch {
	case errors.As(err, &valErr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: valErr.Error()})
	case errors.As(err, &notFoundErr):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: conflictErr.Error()})
	case errors.As(err, &rateErr):
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:      rateErr.Error(),
			RetryAfter: seconds,
		})
	case errors.As(err, &fetchErr):
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: fetchErr.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
