package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"goreg/domain/trial"
	"goreg/internal/errors"
	"goreg/internal/logging"
	"goreg/ports"
)

const (
	// queueCapacity bounds the in-memory trial backlog. A full queue drops
	// with a logged warning: the fire-and-forget boundary must never block
	// generation.
	queueCapacity = 4096

	flushInterval = time.Second
)

// TrialLedger implements the persistence collaborator over PostgreSQL.
// Trials are buffered and written in batches by a background goroutine.
type TrialLedger struct {
	db        *sqlx.DB
	log       *logging.Logger
	batchSize int

	queue chan trial.Trial
	done  chan struct{}
	once  sync.Once
}

// NewTrialLedger creates the ledger and starts its background writer
func NewTrialLedger(db *sqlx.DB, batchSize int, log *logging.Logger) *TrialLedger {
	if batchSize < 1 {
		batchSize = 100
	}
	l := &TrialLedger{
		db:        db,
		log:       log,
		batchSize: batchSize,
		queue:     make(chan trial.Trial, queueCapacity),
		done:      make(chan struct{}),
	}
	go l.writer()
	return l
}

// AppendTrial queues a trial for storage without blocking the caller
func (l *TrialLedger) AppendTrial(t trial.Trial) {
	select {
	case l.queue <- t:
	default:
		l.log.Warn("trial queue full, dropping trial %d of session %s", t.TrialNumber, t.SessionID)
	}
}

// SaveCalibration stores a finished calibration result
func (l *TrialLedger) SaveCalibration(result trial.CalibrationResult) error {
	statsJSON, err := json.Marshal(result.Statistics)
	if err != nil {
		return errors.Wrap(err, "encoding calibration statistics")
	}
	issuesJSON, err := json.Marshal(result.Issues)
	if err != nil {
		return errors.Wrap(err, "encoding calibration issues")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO calibrations (id, started_at, ended_at, trial_count, passed, rating, statistics, issues)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, result.ID.String(), result.StartTime.Time(), result.EndTime.Time(),
		result.TrialCount, result.Passed, string(result.Quality.Rating), statsJSON, issuesJSON)
	if err != nil {
		return errors.Wrap(err, "inserting calibration")
	}
	return nil
}

// Close flushes the queue and stops the background writer
func (l *TrialLedger) Close() error {
	l.once.Do(func() {
		close(l.queue)
	})
	<-l.done
	return nil
}

// writer drains the queue in batches, flushing on size or on a timer
func (l *TrialLedger) writer() {
	defer close(l.done)

	batch := make([]trial.Trial, 0, l.batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case t, ok := <-l.queue:
			if !ok {
				l.flush(batch)
				return
			}
			batch = append(batch, t)
			if len(batch) >= l.batchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// flush batch-inserts trials via pq.CopyIn; failures are logged, not
// propagated - storage never stops generation.
func (l *TrialLedger) flush(batch []trial.Trial) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		l.log.Error("trial flush: begin failed: %v", err)
		return
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("trials", "session_id", "trial_number", "recorded_at", "value", "mode", "intention"))
	if err != nil {
		l.log.Error("trial flush: prepare failed: %v", err)
		_ = tx.Rollback()
		return
	}

	for _, t := range batch {
		if _, err := stmt.ExecContext(ctx, t.SessionID.String(), t.TrialNumber, t.Timestamp.Time(), t.Value, string(t.Mode), string(t.Intention)); err != nil {
			l.log.Error("trial flush: copy failed: %v", err)
			_ = stmt.Close()
			_ = tx.Rollback()
			return
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		l.log.Error("trial flush: finalize failed: %v", err)
		_ = stmt.Close()
		_ = tx.Rollback()
		return
	}
	if err := stmt.Close(); err != nil {
		l.log.Error("trial flush: close failed: %v", err)
		_ = tx.Rollback()
		return
	}
	if err := tx.Commit(); err != nil {
		l.log.Error("trial flush: commit failed: %v", err)
		return
	}

	l.log.Debug("flushed %d trials", len(batch))
}

var _ ports.TrialLedger = (*TrialLedger)(nil)
