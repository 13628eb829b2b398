package httptransport

import (
	"time"

	"github.com/google/uuid"

	"kindred/internal/engine"
	"kindred/internal/ledger"
	"kindred/internal/match"
	"kindred/internal/review"
)

// StartRunRequest is the body of POST /match/runs.
type StartRunRequest struct {
	Incremental bool `json:"incremental"`
}

// DisposeRequest is the body of POST /candidates/{id}/disposition.
type DisposeRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

// RunSummaryResponse reports the outcome of a matching run.
type RunSummaryResponse struct {
	RunID       string         `json:"run_id"`
	Records     int            `json:"records"`
	Buckets     int            `json:"buckets"`
	Comparisons int            `json:"comparisons"`
	Candidates  map[string]int `json:"candidates"`
	Written     int            `json:"written"`
	Skipped     int            `json:"skipped"`
	Superseded  int            `json:"superseded"`
	Flagged     int            `json:"flagged"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// FromRunSummary maps an engine run summary to its response body.
func FromRunSummary(s *engine.RunSummary) RunSummaryResponse {
	candidates := make(map[string]int, len(s.Candidates))
	for level, n := range s.Candidates {
		candidates[string(level)] = n
	}
	return RunSummaryResponse{
		RunID:       s.RunID.String(),
		Records:     s.Records,
		Buckets:     s.Buckets,
		Comparisons: s.Comparisons,
		Candidates:  candidates,
		Written:     s.Written,
		Skipped:     s.Skipped,
		Superseded:  s.Superseded,
		Flagged:     s.Flagged,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
}

// CandidateResponse is the wire form of a ledger row.
type CandidateResponse struct {
	ID             string              `json:"id"`
	PairKey        string              `json:"pair_key"`
	RunID          string              `json:"run_id"`
	FieldResults   []match.FieldResult `json:"field_results"`
	CompositeScore float64             `json:"composite_score"`
	Confidence     string              `json:"confidence"`
	Status         string              `json:"status"`
	Supersedes     string              `json:"supersedes,omitempty"`
	Superseded     bool                `json:"superseded"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// FromCandidate maps a ledger candidate to its response body.
func FromCandidate(c *ledger.MatchCandidate) CandidateResponse {
	resp := CandidateResponse{
		ID:             c.ID.String(),
		PairKey:        c.Pair.String(),
		RunID:          c.RunID.String(),
		FieldResults:   c.FieldResults,
		CompositeScore: c.CompositeScore,
		Confidence:     string(c.Confidence),
		Status:         string(c.Status),
		Superseded:     c.Superseded,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Supersedes != uuid.Nil {
		resp.Supersedes = c.Supersedes.String()
	}
	return resp
}

// CandidateListResponse wraps a page of candidates.
type CandidateListResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
}

// FromCandidates maps a slice of ledger candidates to a list response.
func FromCandidates(candidates []*ledger.MatchCandidate) CandidateListResponse {
	out := CandidateListResponse{Candidates: make([]CandidateResponse, 0, len(candidates))}
	for _, c := range candidates {
		out.Candidates = append(out.Candidates, FromCandidate(c))
	}
	return out
}

// FlagListResponse wraps the pending manual-review flags.
type FlagListResponse struct {
	Flags []review.Flag `json:"flags"`
}

// FromFlags maps review flags to a list response.
func FromFlags(flags []review.Flag) FlagListResponse {
	if flags == nil {
		flags = []review.Flag{}
	}
	return FlagListResponse{Flags: flags}
}
