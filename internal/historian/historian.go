// Package historian drains the Redis action queue in batches and archives the records to
// Postgres. It also marks games abandoned once their action stream goes quiet.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/cache"
	"github.com/sirupsen/logrus"
)

// Queue yields action records. ok is false when nothing arrived within timeout.
type Queue interface {
	PopGameAction(ctx context.Context, timeout time.Duration) (rec cache.GameActionRecord, ok bool, err error)
}

// Store persists batches.
type Store interface {
	InsertActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tunes the service. Zero values take the defaults below.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	Inactivity time.Duration // 0 disables abandonment
	CheckEvery time.Duration
	MaxPending int // records kept across failed flushes before the oldest are discarded
	Logger     *logrus.Logger
	Now        func() time.Time
}

const (
	defaultBatchSize  = 20
	defaultFlushDelay = 500 * time.Millisecond
	defaultPopTimeout = 3 * time.Second
	defaultCheckEvery = time.Minute
)

// Service batches queue records into the store.
type Service struct {
	queue Queue
	store Store
	opts  Options
	log   *logrus.Logger

	batch        []cache.GameActionRecord
	lastActivity map[uuid.UUID]time.Time
}

// NewService builds a service. It is not started until Run.
func NewService(queue Queue, store Store, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = defaultFlushDelay
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = defaultPopTimeout
	}
	if opts.CheckEvery <= 0 {
		opts.CheckEvery = defaultCheckEvery
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = opts.BatchSize * 50
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		queue:        queue,
		store:        store,
		opts:         opts,
		log:          logger,
		batch:        make([]cache.GameActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run pops records until ctx is cancelled, flushing on batch size and on the flush ticker.
// Whatever is still buffered is flushed once more before Run returns.
func (hs *Service) Run(ctx context.Context) {
	flush := time.NewTicker(hs.opts.FlushDelay)
	defer flush.Stop()
	check := time.NewTicker(hs.opts.CheckEvery)
	defer check.Stop()

	hs.log.Info("forty-historian service started")
	defer hs.log.Info("forty-historian shutting down")

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			hs.flush(shutdownCtx)
			cancel()
			return

		case <-flush.C:
			hs.flush(ctx)

		case <-check.C:
			hs.checkInactivity(ctx, hs.opts.Now())

		default:
			rec, ok, err := hs.queue.PopGameAction(ctx, hs.opts.PopTimeout)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				if errors.Is(err, cache.ErrBadRecord) {
					hs.log.WithError(err).Warn("skipping action record")
					continue
				}
				hs.log.WithError(err).Error("pop action record")
				// back off so a dead Redis does not spin the loop
				select {
				case <-ctx.Done():
				case <-time.After(hs.opts.PopTimeout):
				}
				continue
			}
			if ok {
				hs.append(ctx, rec)
			}
		}
	}
}

// append buffers a record and flushes once the batch is full.
func (hs *Service) append(ctx context.Context, rec cache.GameActionRecord) {
	hs.track(rec)
	hs.batch = append(hs.batch, rec)
	if len(hs.batch) >= hs.opts.BatchSize {
		hs.flush(ctx)
	}
}

func (hs *Service) track(rec cache.GameActionRecord) {
	if rec.EndsGame() {
		delete(hs.lastActivity, rec.GameID)
		return
	}
	hs.lastActivity[rec.GameID] = hs.opts.Now()
}

// flush writes the buffered records in one transaction. On failure they stay buffered for the
// next attempt; the store skips rows it already holds.
func (hs *Service) flush(ctx context.Context) {
	if len(hs.batch) == 0 {
		return
	}
	if err := hs.store.InsertActions(ctx, hs.batch); err != nil {
		hs.log.WithError(err).WithField("pending", len(hs.batch)).Error("flush actions")
		if over := len(hs.batch) - hs.opts.MaxPending; over > 0 {
			hs.log.Warnf("discarding %d oldest action records", over)
			hs.batch = append(hs.batch[:0], hs.batch[over:]...)
		}
		return
	}
	hs.log.Debugf("flushed %d actions", len(hs.batch))
	hs.batch = hs.batch[:0]
}

// checkInactivity marks games whose last action is older than the inactivity window.
func (hs *Service) checkInactivity(ctx context.Context, now time.Time) {
	if hs.opts.Inactivity <= 0 {
		return
	}
	for gameID, last := range hs.lastActivity {
		if now.Sub(last) <= hs.opts.Inactivity {
			continue
		}
		// records for this game may still be buffered; the row must exist before it is marked
		hs.flush(ctx)
		if err := hs.store.MarkAbandoned(ctx, gameID); err != nil {
			hs.log.WithError(err).WithField("game", gameID).Warn("mark game abandoned")
			continue
		}
		hs.log.WithField("game", gameID).Info("marked game abandoned due to inactivity")
		delete(hs.lastActivity, gameID)
	}
}

// Pending reports how many records are buffered.
func (hs *Service) Pending() int {
	return len(hs.batch)
}
