// Package review holds the manual-review queue for records the engine could
// not safely compare, such as overflow from the capped catch-all blocking
// bucket. Flagging is a recoverable condition, never a run failure.
package review

import (
	"context"
	"time"

	"kindred/pkg/domain"
)

// Flag marks one record for human attention.
type Flag struct {
	RecordID  domain.PatientID `json:"record_id"`
	Reason    string           `json:"reason"`
	FlaggedAt time.Time        `json:"flagged_at"`
}

// ReasonCatchAllOverflow marks records skipped because the catch-all blocking
// bucket hit its configured cap.
const ReasonCatchAllOverflow = "catch_all_overflow"

// Queue is the port for review flags. Implementations must tolerate repeated
// flags for the same record across re-runs.
type Queue interface {
	// Push appends flags for later human triage.
	Push(ctx context.Context, flags []Flag) error
	// Pending returns up to limit flags, oldest first, without removing them.
	Pending(ctx context.Context, limit int) ([]Flag, error)
}
