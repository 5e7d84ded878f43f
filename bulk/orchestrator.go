// Package bulk implements BulkOrchestrator: depth-first enumeration of a
// local tree or a flat remote listing, a filtered, bounded-concurrency
// worker pool driving one chunk.Pipeline transfer per file, and the
// abort-after-recent-failures policy that bounds how much of a run is
// wasted once something is badly wrong.
package bulk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/marcboeker/s3xfer/chunk"
	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/skip"
	"github.com/marcboeker/s3xfer/store"
)

const meterName = "github.com/marcboeker/s3xfer/bulk"

// maxRecentAborts is the run-ending threshold from spec.md §4.E.
const maxRecentAborts = 5

// DefaultConcurrency is used when Options.Concurrency is zero.
const DefaultConcurrency = 4

// Direction names which side is authoritative for a job's path.
type Direction int

const (
	DirectionPush Direction = iota
	DirectionPull
)

// Options configures one Push or Pull run.
type Options struct {
	LocalRoot   string
	S3Root      string
	Filter      Filter
	Concurrency int
	SkipPolicy  skip.Policy
	Progress    chan<- chunk.ProgressEvent
	// Register and Remove mirror progress.Aggregator.Register/Remove: the
	// orchestrator calls Register before each job (skipped or not) and
	// Remove once it is done, the same way cmd/s3xfer's get/put commands
	// do for a single transfer. Both may be nil, in which case no slot is
	// announced; ProgressAggregator silently drops events for transfer
	// IDs it never saw registered.
	Register func(id uuid.UUID, label string, totalBytes int64)
	Remove   func(id uuid.UUID)
}

// Summary totals one run's outcome. A non-zero process exit is warranted
// whenever AbortedFiles > 0.
type Summary struct {
	CompletedFiles int64
	CompletedBytes int64
	SkippedFiles   int64
	SkippedBytes   int64
	AbortedFiles   int64
	AbortedBytes   int64
	LastErr        error
}

// Orchestrator drives push/pull runs against one store.Client/meta.Layer
// pair.
type Orchestrator struct {
	store    *store.Client
	meta     *meta.Layer
	pipeline *chunk.Pipeline
	logger   logr.Logger

	counters counters
}

type counters struct {
	completedFiles, completedBytes atomic.Int64
	skippedFiles, skippedBytes     atomic.Int64
	abortedFiles, abortedBytes     atomic.Int64
}

// NewOrchestrator builds an Orchestrator and registers its observable
// OTel counters, extending the per-object metrics the store/chunk layers
// already emit up to the run level.
func NewOrchestrator(s *store.Client, m *meta.Layer, p *chunk.Pipeline, logger logr.Logger) *Orchestrator {
	o := &Orchestrator{store: s, meta: m, pipeline: p, logger: logger.WithName("bulk")}
	o.registerMetrics()
	return o
}

func (o *Orchestrator) registerMetrics() {
	meter := otel.GetMeterProvider().Meter(meterName)
	completedFiles, err := meter.Int64ObservableCounter("completed_files")
	if err != nil {
		return
	}
	completedBytes, err := meter.Int64ObservableCounter("completed_bytes")
	if err != nil {
		return
	}
	skippedFiles, err := meter.Int64ObservableCounter("skipped_files")
	if err != nil {
		return
	}
	skippedBytes, err := meter.Int64ObservableCounter("skipped_bytes")
	if err != nil {
		return
	}
	abortedFiles, err := meter.Int64ObservableCounter("aborted_files")
	if err != nil {
		return
	}
	abortedBytes, err := meter.Int64ObservableCounter("aborted_bytes")
	if err != nil {
		return
	}
	_, _ = meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		obs.ObserveInt64(completedFiles, o.counters.completedFiles.Load())
		obs.ObserveInt64(completedBytes, o.counters.completedBytes.Load())
		obs.ObserveInt64(skippedFiles, o.counters.skippedFiles.Load())
		obs.ObserveInt64(skippedBytes, o.counters.skippedBytes.Load())
		obs.ObserveInt64(abortedFiles, o.counters.abortedFiles.Load())
		obs.ObserveInt64(abortedBytes, o.counters.abortedBytes.Load())
		return nil
	}, completedFiles, completedBytes, skippedFiles, skippedBytes, abortedFiles, abortedBytes)
}

// Push enumerates opts.LocalRoot and transfers every matching file to
// data/<opts.S3Root>/<relpath>.
func (o *Orchestrator) Push(ctx context.Context, opts Options) (Summary, error) {
	items, err := WalkLocal(opts.LocalRoot, opts.Filter)
	if err != nil {
		return Summary{}, fmt.Errorf("bulk: enumerate local tree: %w", err)
	}
	return o.run(ctx, opts, DirectionPush, items)
}

// Pull enumerates opts.S3Root and transfers every matching object to
// <opts.LocalRoot>/<relpath>.
func (o *Orchestrator) Pull(ctx context.Context, opts Options) (Summary, error) {
	items, err := ListRemote(ctx, o.meta, o.store, opts.S3Root, opts.Filter)
	if err != nil {
		return Summary{}, fmt.Errorf("bulk: enumerate remote tree: %w", err)
	}
	return o.run(ctx, opts, DirectionPull, items)
}

func (o *Orchestrator) run(ctx context.Context, opts Options, dir Direction, items []Item) (Summary, error) {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	oracle := skip.NewOracle(o.store, o.meta, opts.SkipPolicy)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sem            = semaphore.NewWeighted(int64(concurrency))
		eg, egCtx      = errgroup.WithContext(runCtx)
		mu             sync.Mutex
		recentAborts   int
		lastErr        error
		abortTriggered bool
	)

	for _, item := range items {
		item := item
		if err := sem.Acquire(egCtx, 1); err != nil {
			break
		}
		eg.Go(func() error {
			defer sem.Release(1)

			jobErr := o.runOne(egCtx, opts, dir, oracle, item)

			mu.Lock()
			defer mu.Unlock()
			if jobErr != nil {
				recentAborts++
				lastErr = jobErr
				o.counters.abortedFiles.Add(1)
				o.counters.abortedBytes.Add(item.Size)
				o.logger.Error(jobErr, "transfer failed", "path", item.Path)
				if recentAborts >= maxRecentAborts && !abortTriggered {
					abortTriggered = true
					cancel()
				}
			} else {
				recentAborts = 0
			}
			return nil
		})
	}

	_ = eg.Wait()

	summary := Summary{
		CompletedFiles: o.counters.completedFiles.Load(),
		CompletedBytes: o.counters.completedBytes.Load(),
		SkippedFiles:   o.counters.skippedFiles.Load(),
		SkippedBytes:   o.counters.skippedBytes.Load(),
		AbortedFiles:   o.counters.abortedFiles.Load(),
		AbortedBytes:   o.counters.abortedBytes.Load(),
		LastErr:        lastErr,
	}
	mu.Lock()
	tripped := abortTriggered
	mu.Unlock()
	if tripped {
		return summary, fmt.Errorf("bulk: aborted after %d recent failures: %w", maxRecentAborts, lastErr)
	}
	// spec.md §4.E: "non-zero process exit if any file was aborted" holds
	// regardless of whether the 5-recent-failures gate tripped, so a run
	// with scattered, non-consecutive failures must still surface an error.
	if summary.AbortedFiles > 0 {
		return summary, fmt.Errorf("bulk: %d file(s) aborted: %w", summary.AbortedFiles, lastErr)
	}
	return summary, nil
}

func (o *Orchestrator) runOne(ctx context.Context, opts Options, dir Direction, oracle *skip.Oracle, item Item) error {
	transferID := uuid.New()

	if opts.Register != nil {
		opts.Register(transferID, item.Path, item.Size)
	}
	if opts.Remove != nil {
		defer opts.Remove(transferID)
	}

	if opts.SkipPolicy != "" && opts.SkipPolicy != skip.PolicyAll {
		localPath := localFilePath(opts.LocalRoot, item.Path)
		if info, statErr := os.Stat(localPath); statErr == nil {
			local := skip.LocalFile{Path: localPath, Size: info.Size(), Mtime: info.ModTime()}
			decision, err := oracle.ShouldSkip(ctx, s3Path(opts.S3Root, item.Path), local)
			if err == nil && decision.Skip {
				o.counters.skippedFiles.Add(1)
				o.counters.skippedBytes.Add(item.Size)
				o.counters.completedFiles.Add(1)
				o.counters.completedBytes.Add(item.Size)
				return nil
			}
		}
	}

	var err error
	switch dir {
	case DirectionPush:
		err = o.pushOne(ctx, opts, transferID, item)
	case DirectionPull:
		err = o.pullOne(ctx, opts, transferID, item)
	}
	if err != nil {
		return err
	}

	o.counters.completedFiles.Add(1)
	o.counters.completedBytes.Add(item.Size)
	return nil
}

func localFilePath(localRoot, relPath string) string {
	if localRoot == "" {
		return filepath.FromSlash(relPath)
	}
	return filepath.Join(localRoot, filepath.FromSlash(relPath))
}

// s3Path joins an s3Root with a relative logical path.
func s3Path(s3Root, relPath string) string {
	if s3Root == "" {
		return relPath
	}
	return s3Root + "/" + relPath
}

func (o *Orchestrator) pushOne(ctx context.Context, opts Options, transferID uuid.UUID, item Item) error {
	localPath := localFilePath(opts.LocalRoot, item.Path)
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("bulk: open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("bulk: stat %s: %w", localPath, err)
	}

	_, err = o.pipeline.PutFromSource(ctx, chunk.PutInput{
		Path:       s3Path(opts.S3Root, item.Path),
		Source:     f,
		Mtime:      info.ModTime(),
		TransferID: transferID,
		Progress:   opts.Progress,
	})
	return err
}

func (o *Orchestrator) pullOne(ctx context.Context, opts Options, transferID uuid.UUID, item Item) error {
	localPath := localFilePath(opts.LocalRoot, item.Path)
	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("bulk: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("bulk: create %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = o.pipeline.GetToSink(ctx, chunk.GetInput{
		Path:       s3Path(opts.S3Root, item.Path),
		Sink:       chunk.FileSink{File: f},
		TransferID: transferID,
		Progress:   opts.Progress,
	})
	return err
}
