package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"kindred/internal/engine"
)

// matchRunner picks the record source for a run and remembers when the last
// successful run started, which is the watermark incremental runs scan from.
type matchRunner struct {
	engine *engine.Engine
	db     *sql.DB

	mu          sync.Mutex
	lastRunTime time.Time
}

func newMatchRunner(eng *engine.Engine, db *sql.DB) *matchRunner {
	return &matchRunner{engine: eng, db: db}
}

// Run executes one matching run. An incremental run only streams records
// touched since the previous successful run; with no prior run it degrades to
// a full scan.
func (r *matchRunner) Run(ctx context.Context, incremental bool) (*engine.RunSummary, error) {
	var src engine.Source
	if r.db == nil {
		src = engine.SliceSource(nil)
	} else {
		source := &registrySource{db: r.db}
		if incremental {
			r.mu.Lock()
			source.since = r.lastRunTime
			r.mu.Unlock()
		}
		src = source
	}

	startedAt := time.Now()
	summary, err := r.engine.Run(ctx, src)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.lastRunTime = startedAt
	r.mu.Unlock()
	return summary, nil
}
