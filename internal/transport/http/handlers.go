// Package httptransport is the thin HTTP layer over the engine and the
// ledger. Handlers delegate to services and keep transport concerns isolated.
package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"kindred/internal/engine"
	"kindred/internal/ledger"
	"kindred/internal/match"
	"kindred/internal/review"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/platform/httputil"
)

//go:generate mockgen -source=handlers.go -destination=mocks/handlers_mocks.go -package=mocks Runner,CandidateService,ReviewReader

// Runner executes matching runs. Incremental runs cover only records
// registered or updated since the previous run; full runs rebuild from the
// whole population.
type Runner interface {
	Run(ctx context.Context, incremental bool) (*engine.RunSummary, error)
}

// CandidateService exposes ledger reads and disposition writes.
type CandidateService interface {
	Get(ctx context.Context, id uuid.UUID) (*ledger.MatchCandidate, error)
	List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.MatchCandidate, error)
	Dispose(ctx context.Context, id uuid.UUID, to ledger.Status, actor string) (*ledger.MatchCandidate, error)
}

// ReviewReader exposes the manual-review queue.
type ReviewReader interface {
	Pending(ctx context.Context, limit int) ([]review.Flag, error)
}

// Handler wires match endpoints to their services.
type Handler struct {
	runner     Runner
	candidates CandidateService
	reviews    ReviewReader
	logger     *slog.Logger
}

// New constructs the handler with its dependencies.
func New(runner Runner, candidates CandidateService, reviews ReviewReader, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, candidates: candidates, reviews: reviews, logger: logger}
}

// Register mounts all endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/match/runs", h.HandleStartRun)
	r.Get("/candidates", h.HandleListCandidates)
	r.Get("/candidates/{id}", h.HandleGetCandidate)
	r.Post("/candidates/{id}/disposition", h.HandleDispose)
	r.Get("/review/flags", h.HandleReviewFlags)
}

// HandleStartRun handles POST /match/runs. The run executes synchronously;
// the external scheduler owns timing and concurrency of runs.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An empty body means a full run; only a present-but-malformed body is
	// rejected.
	req, err := httputil.DecodeJSON[StartRunRequest](r)
	if err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, err)
		return
	}

	start := time.Now()
	summary, err := h.runner.Run(ctx, req.Incremental)
	if err != nil {
		h.logger.ErrorContext(ctx, "matching run failed",
			"incremental", req.Incremental,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "matching run failed"))
		return
	}

	h.logger.InfoContext(ctx, "matching run finished",
		"run_id", summary.RunID,
		"incremental", req.Incremental,
		"written", summary.Written,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRunSummary(summary))
}

// HandleListCandidates handles GET /candidates with optional status,
// confidence, run_id, and limit query parameters.
func (h *Handler) HandleListCandidates(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	candidates, err := h.candidates.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCandidates(candidates))
}

// HandleGetCandidate handles GET /candidates/{id}.
func (h *Handler) HandleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "candidate id must be a UUID"))
		return
	}

	c, err := h.candidates.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCandidate(c))
}

// HandleDispose handles POST /candidates/{id}/disposition.
func (h *Handler) HandleDispose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "candidate id must be a UUID"))
		return
	}

	req, err := httputil.DecodeJSON[DisposeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := ledger.Status(req.Status)
	if !status.Valid() || status == ledger.StatusPendingReview {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid disposition %q", req.Status))
		return
	}

	c, err := h.candidates.Dispose(ctx, id, status, req.Actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCandidate(c))
}

// HandleReviewFlags handles GET /review/flags.
func (h *Handler) HandleReviewFlags(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 100)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	flags, err := h.reviews.Pending(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromFlags(flags))
}

func filterFromQuery(r *http.Request) (ledger.ListFilter, error) {
	var filter ledger.ListFilter

	if v := r.URL.Query().Get("status"); v != "" {
		status := ledger.Status(v)
		if !status.Valid() {
			return filter, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", v)
		}
		filter.Status = status
	}
	if v := r.URL.Query().Get("confidence"); v != "" {
		switch level := match.ConfidenceLevel(v); level {
		case match.ConfidenceHigh, match.ConfidenceMedium, match.ConfidenceLow:
			filter.Confidence = level
		default:
			return filter, dErrors.Newf(dErrors.CodeBadRequest, "unknown confidence %q", v)
		}
	}
	if v := r.URL.Query().Get("run_id"); v != "" {
		runID, err := uuid.Parse(v)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "run_id must be a UUID")
		}
		filter.RunID = runID
	}

	limit, err := intQuery(r, "limit", 100)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a non-negative integer", name)
	}
	return n, nil
}
