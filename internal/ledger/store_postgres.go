package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kindred/internal/match"
	"kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	txcontext "kindred/pkg/platform/tx"
)

// Schema creates the ledger tables. Applied by deployment tooling and the
// integration tests; kept next to the store so the two cannot drift.
const Schema = `
CREATE TABLE IF NOT EXISTS match_candidates (
	id              UUID PRIMARY KEY,
	pair_key        TEXT NOT NULL,
	run_id          UUID NOT NULL,
	field_results   JSONB NOT NULL,
	composite_score DOUBLE PRECISION NOT NULL,
	confidence      TEXT NOT NULL,
	status          TEXT NOT NULL,
	supersedes      UUID,
	superseded      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS match_candidates_active_pair
	ON match_candidates (pair_key) WHERE NOT superseded;

CREATE INDEX IF NOT EXISTS match_candidates_status
	ON match_candidates (status);

CREATE INDEX IF NOT EXISTS match_candidates_run
	ON match_candidates (run_id);
`

// PostgresStore persists the ledger in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx opens a transaction, carries it on the context so every store call
// inside fn runs against it, and commits only when fn succeeds. Nested calls
// join the transaction already in flight.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CommitBucket writes a bucket's candidates inside a single transaction so a
// cancelled run never leaves a bucket half-committed.
func (s *PostgresStore) CommitBucket(ctx context.Context, candidates []*MatchCandidate, policy match.RerunPolicy) (CommitResult, error) {
	var result CommitResult
	if len(candidates) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin bucket commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range candidates {
		var existingID uuid.UUID
		var existingStatus Status
		err := tx.QueryRowContext(ctx,
			`SELECT id, status FROM match_candidates WHERE pair_key = $1 AND NOT superseded FOR UPDATE`,
			c.Pair.String(),
		).Scan(&existingID, &existingStatus)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			inserted, err := insertCandidate(ctx, tx, c)
			if err != nil {
				return CommitResult{}, err
			}
			if inserted {
				result.Inserted++
			} else {
				result.Skipped++
			}

		case err != nil:
			return CommitResult{}, fmt.Errorf("lock candidate pair %s: %w", c.Pair, err)

		case existingStatus == StatusPendingReview || policy == match.RerunSkip:
			result.Skipped++

		default:
			// RerunSupersede over a disposed entry: retire it without
			// touching its status, then insert the fresh pending candidate.
			if _, err := tx.ExecContext(ctx,
				`UPDATE match_candidates SET superseded = TRUE WHERE id = $1`, existingID,
			); err != nil {
				return CommitResult{}, fmt.Errorf("retire candidate %s: %w", existingID, err)
			}
			c.Supersedes = existingID
			if _, err := insertCandidate(ctx, tx, c); err != nil {
				return CommitResult{}, err
			}
			result.Superseded++
		}
	}

	if err := tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("commit bucket: %w", err)
	}
	return result, nil
}

func insertCandidate(ctx context.Context, tx *sql.Tx, c *MatchCandidate) (bool, error) {
	payload, err := json.Marshal(c.FieldResults)
	if err != nil {
		return false, fmt.Errorf("marshal field results: %w", err)
	}
	var supersedes *uuid.UUID
	if c.Supersedes != uuid.Nil {
		supersedes = &c.Supersedes
	}

	// The unique index on active pairs turns a concurrent insert of the same
	// pair into a no-op rather than a duplicate row.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO match_candidates (
			id, pair_key, run_id, field_results, composite_score,
			confidence, status, supersedes, superseded, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)
		ON CONFLICT (pair_key) WHERE NOT superseded DO NOTHING
	`,
		c.ID,
		c.Pair.String(),
		c.RunID,
		payload,
		c.CompositeScore,
		string(c.Confidence),
		string(c.Status),
		supersedes,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert candidate %s: %w", c.Pair, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) FindActiveByPair(ctx context.Context, pair domain.PairKey) (*MatchCandidate, error) {
	row := s.querier(ctx).QueryRowContext(ctx,
		selectColumns+` FROM match_candidates WHERE pair_key = $1 AND NOT superseded`,
		pair.String(),
	)
	return scanCandidate(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*MatchCandidate, error) {
	row := s.querier(ctx).QueryRowContext(ctx,
		selectColumns+` FROM match_candidates WHERE id = $1`, id,
	)
	return scanCandidate(row)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*MatchCandidate, error) {
	query := selectColumns + ` FROM match_candidates WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeSuperseded {
		query += ` AND NOT superseded`
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ` + arg(string(filter.Confidence))
	}
	if filter.RunID != uuid.Nil {
		query += ` AND run_id = ` + arg(filter.RunID)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []*MatchCandidate
	for rows.Next() {
		c, err := scanCandidateRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// UpdateStatus transitions a candidate, using the expected current status as
// an optimistic guard against concurrent dispositions.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, now time.Time) error {
	res, err := s.querier(ctx).ExecContext(ctx,
		`UPDATE match_candidates SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), now, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Either the candidate is gone or someone else moved it first.
		if _, findErr := s.FindByID(ctx, id); errors.Is(findErr, ErrNotFound) {
			return ErrNotFound
		}
		return dErrors.Newf(dErrors.CodeConflict, "candidate status changed concurrently: expected %s", from)
	}
	return nil
}

const selectColumns = `
	SELECT id, pair_key, run_id, field_results, composite_score,
	       confidence, status, supersedes, superseded, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row *sql.Row) (*MatchCandidate, error) {
	c, err := scanCandidateRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func scanCandidateRow(row rowScanner) (*MatchCandidate, error) {
	var (
		c          MatchCandidate
		pairKey    string
		payload    []byte
		confidence string
		status     string
		supersedes *uuid.UUID
	)
	err := row.Scan(
		&c.ID,
		&pairKey,
		&c.RunID,
		&payload,
		&c.CompositeScore,
		&confidence,
		&status,
		&supersedes,
		&c.Superseded,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}

	pair, err := domain.ParsePairKey(pairKey)
	if err != nil {
		return nil, fmt.Errorf("stored pair key %q: %w", pairKey, err)
	}
	c.Pair = pair
	if err := json.Unmarshal(payload, &c.FieldResults); err != nil {
		return nil, fmt.Errorf("unmarshal field results: %w", err)
	}
	c.Confidence = match.ConfidenceLevel(confidence)
	c.Status = Status(status)
	if supersedes != nil {
		c.Supersedes = *supersedes
	}
	return &c, nil
}

var _ Store = (*PostgresStore)(nil)
