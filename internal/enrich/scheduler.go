package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/internal/books"
	"github.com/shelfmark/shelfmark/internal/progress"
)

// ErrNoBooks is returned when a run is started over an empty batch.
var ErrNoBooks = errors.New("no books to enrich")

// Config controls scheduler behavior.
type Config struct {
	// Concurrency is the fixed worker pool size (default 5).
	Concurrency int
	// ReportEvery logs a progress line after this many outcomes (default 50).
	ReportEvery int
	// Skip disables resolution entirely; records pass through untouched.
	Skip bool
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.ReportEvery <= 0 {
		c.ReportEvery = 50
	}
	return c
}

// BookResolver resolves a single record; Resolver satisfies it.
type BookResolver interface {
	Resolve(ctx context.Context, book *books.Book) books.Outcome
}

// Scheduler fans the batch out to a fixed pool of workers and collects
// exactly one outcome per record. The collector goroutine is the only writer
// into the store, so sibling records never contend on cover updates.
type Scheduler struct {
	resolver BookResolver
	cfg      Config
	emitter  progress.Emitter
	logger   *zap.Logger
}

// NewScheduler constructs a Scheduler. A nil emitter disables progress events.
func NewScheduler(resolver BookResolver, cfg Config, emitter progress.Emitter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		emitter:  emitter,
		logger:   logger,
	}
}

// Run resolves covers for every record in the store. Per-record failure is
// tolerated: a record whose resolution panics or finds nothing is recorded as
// absent and its siblings proceed. An empty batch is the only batch-level
// error. When Skip is set the batch passes through untouched.
func (s *Scheduler) Run(ctx context.Context, store *books.Store) (books.RunCounters, error) {
	if store == nil || store.Len() == 0 {
		return books.RunCounters{}, ErrNoBooks
	}
	if s.cfg.Skip {
		s.logger.Info("cover enrichment skipped", zap.Int("books", store.Len()))
		return books.RunCounters{}, nil
	}

	runID := progress.UUIDToBytes(uuid.New())
	started := time.Now()
	s.emit(progress.Event{
		RunID: runID,
		TS:    started.UTC(),
		Stage: progress.StageRunStart,
		Note:  fmt.Sprintf("books=%d workers=%d", store.Len(), s.cfg.Concurrency),
	})

	batch := store.List()
	jobs := make(chan *books.Book)
	results := make(chan books.Outcome)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for book := range jobs {
				results <- s.resolveOne(ctx, runID, book)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, book := range batch {
			select {
			case jobs <- book:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var counters books.RunCounters
	for outcome := range results {
		if outcome.Resolved() && store.SetCoverURL(outcome.BookID, outcome.CoverURL) {
			counters.Resolved++
		} else {
			counters.Absent++
		}
		if counters.Total()%s.cfg.ReportEvery == 0 {
			s.logger.Info("enrichment progress",
				zap.Int("done", counters.Total()),
				zap.Int("total", len(batch)),
				zap.Int("resolved", counters.Resolved),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		s.emit(progress.Event{
			RunID: runID,
			TS:    time.Now().UTC(),
			Stage: progress.StageRunError,
			Dur:   time.Since(started),
			Note:  err.Error(),
		})
		return counters, fmt.Errorf("enrichment interrupted: %w", err)
	}

	s.logger.Info("enrichment complete",
		zap.Int("total", counters.Total()),
		zap.Int("resolved", counters.Resolved),
		zap.Int("absent", counters.Absent),
		zap.Duration("dur", time.Since(started)),
	)
	s.emit(progress.Event{
		RunID: runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageRunDone,
		Dur:   time.Since(started),
		Note:  fmt.Sprintf("resolved=%d absent=%d", counters.Resolved, counters.Absent),
	})
	return counters, nil
}

// resolveOne guards a single resolution so a panicking record cannot take
// down its siblings; the record is reported as absent instead.
func (s *Scheduler) resolveOne(ctx context.Context, runID [16]byte, book *books.Book) (outcome books.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cover resolution panicked",
				zap.String("book_id", book.ID),
				zap.Any("panic", r),
			)
			outcome = books.Outcome{BookID: book.ID, Source: books.SourceNone}
		}
		s.emit(progress.Event{
			RunID:  runID,
			TS:     time.Now().UTC(),
			Stage:  progress.StageResolveDone,
			BookID: book.ID,
			Source: string(outcome.Source),
			Dur:    time.Since(start),
		})
	}()
	outcome = s.resolver.Resolve(ctx, book)
	return outcome
}

func (s *Scheduler) emit(evt progress.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(evt)
}
