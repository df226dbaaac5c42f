package audit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	core "github.com/PaulFidika/casting/core"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/sirupsen/logrus"
)

// EventArgs is the river job carrying one decision.
type EventArgs struct {
	Event core.AuthEvent `json:"event"`
}

func (EventArgs) Kind() string { return "auth_event" }

func (EventArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueName, MaxAttempts: 5}
}

// QueueName is the river queue audit jobs run on.
const QueueName = "audit"

// Inserter is the part of *river.Client the enqueuer needs.
type Inserter interface {
	InsertMany(ctx context.Context, params []river.InsertManyParams) ([]*rivertype.JobInsertResult, error)
}

// ErrQueueFull is returned by Enqueuer.LogDecision when the buffer is full.
// The event is dropped.
var ErrQueueFull = errors.New("audit: queue full, event dropped")

const (
	DefaultBuffer        = 1024
	DefaultInsertTimeout = 2 * time.Second
	maxBatch             = 100
)

// Enqueuer buffers decisions and hands them to river in batches from Run, so
// the request path never waits on the database.
type Enqueuer struct {
	client  Inserter
	timeout time.Duration
	log     logrus.FieldLogger
	events  chan core.AuthEvent
	dropped atomic.Int64
}

// NewEnqueuer returns an enqueuer over client. Non-positive buffer and timeout
// select DefaultBuffer and DefaultInsertTimeout.
func NewEnqueuer(client Inserter, buffer int, timeout time.Duration, log logrus.FieldLogger) *Enqueuer {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if timeout <= 0 {
		timeout = DefaultInsertTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Enqueuer{client: client, timeout: timeout, log: log, events: make(chan core.AuthEvent, buffer)}
}

// LogDecision queues ev without blocking.
func (e *Enqueuer) LogDecision(_ context.Context, ev core.AuthEvent) error {
	select {
	case e.events <- ev:
		return nil
	default:
		e.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (e *Enqueuer) Dropped() int64 { return e.dropped.Load() }

// Run inserts queued events until ctx is done, then flushes what is buffered.
// Each batch insert is bounded by the enqueuer's timeout.
func (e *Enqueuer) Run(ctx context.Context) {
	batch := make([]river.InsertManyParams, 0, maxBatch)
	for {
		select {
		case ev := <-e.events:
			batch = e.collect(append(batch[:0], river.InsertManyParams{Args: EventArgs{Event: ev}}))
			e.flush(batch)
		case <-ctx.Done():
			for {
				batch = e.collect(batch[:0])
				if len(batch) == 0 {
					return
				}
				e.flush(batch)
			}
		}
	}
}

func (e *Enqueuer) collect(batch []river.InsertManyParams) []river.InsertManyParams {
	for len(batch) < maxBatch {
		select {
		case ev := <-e.events:
			batch = append(batch, river.InsertManyParams{Args: EventArgs{Event: ev}})
		default:
			return batch
		}
	}
	return batch
}

func (e *Enqueuer) flush(batch []river.InsertManyParams) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if _, err := e.client.InsertMany(ctx, batch); err != nil {
		e.log.WithError(err).WithField("events", len(batch)).Warn("audit batch dropped")
	}
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Worker persists decisions into auth_events.
type Worker struct {
	river.WorkerDefaults[EventArgs]
	DB Execer
}

func (w *Worker) Work(ctx context.Context, job *river.Job[EventArgs]) error {
	return Insert(ctx, w.DB, job.Args.Event)
}

// Insert writes one event row.
func Insert(ctx context.Context, db Execer, ev core.AuthEvent) error {
	_, err := db.Exec(ctx, `INSERT INTO auth_events
		(occurred_at, request_id, method, path, required_scope, subject, outcome, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.At, ev.RequestID, ev.Method, ev.Path, ev.RequiredScope, ev.Subject, ev.Outcome, ev.IP, ev.UserAgent)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Register adds the audit worker to workers.
func Register(workers *river.Workers, db Execer) {
	river.AddWorker(workers, &Worker{DB: db})
}

