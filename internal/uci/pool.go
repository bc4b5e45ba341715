package uci

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxBatchWorkers bounds how many engine processes a batch run may hold open
// at once.
const MaxBatchWorkers = 8

// BatchRequest configures a batch analysis run.
type BatchRequest struct {
	EnginePath string
	Depth      int
	MultiPV    int
	// Workers is the number of concurrent engine sessions, clamped to
	// [1, MaxBatchWorkers] and never more than the number of positions.
	Workers int
}

// BatchResult pairs one input position with its analysis outcome. Err is a
// per-position failure; it does not abort the rest of the batch.
type BatchResult struct {
	FEN      string
	Analysis *Analysis
	Err      error
}

// AnalyzeBatch analyzes positions concurrently. Each worker owns one engine
// session for the lifetime of the run, so sessions are never shared and each
// stays single-caller as required. A session that hit a protocol error is
// discarded and respawned rather than reused. Failure to spawn an engine
// fails the whole batch; results keep input order.
func AnalyzeBatch(ctx context.Context, req BatchRequest, fens []string, log *zap.Logger) ([]BatchResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	results := make([]BatchResult, len(fens))
	for i, fen := range fens {
		results[i] = BatchResult{FEN: fen}
	}
	if len(fens) == 0 {
		return results, nil
	}

	workers := req.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > MaxBatchWorkers {
		workers = MaxBatchWorkers
	}
	if workers > len(fens) {
		workers = len(fens)
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range fens {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		worker := w
		g.Go(func() error {
			session, err := Start(req.EnginePath)
			if err != nil {
				return fmt.Errorf("batch worker %d: %w", worker, err)
			}
			defer func() { _ = session.Close() }()

			log.Debug("batch worker started", zap.Int("worker", worker))
			for i := range jobs {
				analysis, err := session.AnalyzeMultiPV(results[i].FEN, req.Depth, req.MultiPV)
				results[i].Analysis = analysis
				results[i].Err = err
				if err == nil {
					continue
				}

				log.Warn("batch position failed",
					zap.Int("worker", worker),
					zap.String("fen", results[i].FEN),
					zap.Error(err))

				// The session is undefined after a protocol error; replace
				// it before taking the next position. The deferred close
				// follows this variable, which must never go nil.
				_ = session.Close()
				next, err := Start(req.EnginePath)
				if err != nil {
					return fmt.Errorf("batch worker %d respawn: %w", worker, err)
				}
				session = next
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
