package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/keeper-analytics/internal/league"
)

// BatchItem is one league's outcome within a batch.
type BatchItem struct {
	League string
	Result *Result
	Err    error
}

// BatchResult tracks a batch across leagues. Items keep input order.
type BatchResult struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
	Errors    []string
	Duration  time.Duration
}

// Summary returns a human-readable summary of the batch.
func (b *BatchResult) Summary() string {
	return fmt.Sprintf("leagues=%d succeeded=%d failed=%d duration=%s",
		len(b.Items), b.Succeeded, b.Failed, b.Duration.Round(time.Millisecond))
}

// RunBatch runs independent league datasets through a worker pool. A league
// that fails validation, or is still queued when ctx is cancelled, is
// recorded as failed without affecting the others.
func RunBatch(ctx context.Context, datasets []*league.Dataset, opts Options, workers int, logger *slog.Logger) BatchResult {
	start := time.Now()
	result := BatchResult{Items: make([]BatchItem, len(datasets))}
	if len(datasets) == 0 {
		logger.Info("No leagues to analyze")
		return result
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(datasets) {
		workers = len(datasets)
	}

	ch := make(chan int, len(datasets))
	for i := range datasets {
		ch <- i
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				ds := datasets[i]
				item := BatchItem{League: leagueName(ds, i)}
				if err := ctx.Err(); err != nil {
					item.Err = err
				} else {
					item.Result, item.Err = Run(ds, opts, logger)
				}

				mu.Lock()
				result.Items[i] = item
				if item.Err != nil {
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("league %s: %v", item.League, item.Err))
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)

	logger.Info("Batch run complete", "summary", result.Summary())
	return result
}

func leagueName(ds *league.Dataset, i int) string {
	if ds != nil && ds.League != "" {
		return ds.League
	}
	return fmt.Sprintf("#%d", i)
}
