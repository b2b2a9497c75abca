package importer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/quitc/internal/ledger"
	"github.com/theirongolddev/quitc/internal/model"
)

// LoadResult holds the merged output of every discovered file.
type LoadResult struct {
	Days        model.Days
	TotalFiles  int
	ParsedFiles int
	FileErrors  int
	ParseErrors int
	Conflicts   int // dates given different statuses by different files
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load parses files with a bounded worker pool and merges them in the order
// given: when two files disagree about a date, the later file wins.
func Load(files []DiscoveredFile, progressFn ProgressFunc) *LoadResult {
	result := &LoadResult{
		Days:       model.Days{},
		TotalFiles: len(files),
	}
	if len(files) == 0 {
		return result
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	for _, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		for date, status := range pr.Days {
			if prev, ok := result.Days[date]; ok && prev != status {
				result.Conflicts++
			}
			result.Days[date] = status
		}
	}

	return result
}

// ApplyResult counts what Apply did with each imported day.
type ApplyResult struct {
	Applied   int
	Unchanged int
	Rejected  []model.Date // HEART days refused because the month's tokens ran out
	Skipped   int          // already logged with a different status and overwrite was off
	Future    int
}

// Apply writes days into l. CLEAN days go first so that overwriting a
// HEART frees its token before any imported HEART is weighed against the
// month's budget; HEART days then follow in date order, earliest first.
// Existing entries are kept unless overwrite is set; days after today are
// ignored.
func Apply(ctx context.Context, l *ledger.Ledger, days model.Days, today model.Date, overwrite bool) (ApplyResult, error) {
	var res ApplyResult
	current := l.Snapshot()
	dates := days.SortedDates()

	for _, pass := range []model.DayStatus{model.StatusClean, model.StatusHeart} {
		for _, date := range dates {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			status := days[date]
			if status != pass {
				continue
			}
			if date.After(today) {
				res.Future++
				continue
			}
			if existing, ok := current[date]; ok && existing != status && !overwrite {
				res.Skipped++
				continue
			}

			result, err := l.SetStatus(ctx, date, status)
			if err != nil {
				return res, fmt.Errorf("importing %s: %w", date, err)
			}
			switch result {
			case ledger.Applied:
				res.Applied++
			case ledger.Unchanged:
				res.Unchanged++
			case ledger.Rejected:
				res.Rejected = append(res.Rejected, date)
			}
		}
	}
	return res, nil
}
