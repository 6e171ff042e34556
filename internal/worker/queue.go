package worker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

// Job is one document to extract: its merged line set plus the vendor key
// used for learned-rule lookups.
type Job struct {
	DocumentID string
	VendorKey  string
	Lines      []ocr.Line
}

// Result is the extraction outcome for one document. Fields follow the fixed
// field-type order, so batch output is deterministic regardless of which
// worker handled the job.
type Result struct {
	DocumentID string
	VendorKey  string
	Fields     []extract.FieldExtraction
}

// Queue fans documents out to a bounded set of extraction workers. Documents
// are independent, so any worker can take any job.
type Queue struct {
	extractor *extract.Extractor
	logger    *slog.Logger
	workers   int

	ch      chan Job
	results chan Result
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
			q.results = make(chan Result, n)
		}
	}
}

func NewQueue(extractor *extract.Extractor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		extractor: extractor,
		logger:    logger,
		workers:   4,
		ch:        make(chan Job, 256),
		results:   make(chan Result, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					start := time.Now()
					res := q.process(job)
					q.results <- res
					q.logger.Info("document extracted",
						"worker_id", workerID,
						"document_id", job.DocumentID,
						"fields", len(res.Fields),
						"elapsed_ms", time.Since(start).Milliseconds(),
					)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) process(job Job) Result {
	byField := q.extractor.Extract(job.VendorKey, job.Lines)
	fields := make([]extract.FieldExtraction, 0, len(byField))
	for _, field := range constants.FieldTypes() {
		fields = append(fields, byField[field])
	}
	return Result{DocumentID: job.DocumentID, VendorKey: job.VendorKey, Fields: fields}
}

// Enqueue queues a document. A full queue blocks rather than drops.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return nil
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "document_id", job.DocumentID)
		q.ch <- job
	}
	return nil
}

// Results exposes the output stream for callers that consume incrementally.
func (q *Queue) Results() <-chan Result {
	return q.results
}

// Shutdown stops intake and drains workers, bounded by the context.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.wg.Wait()
		close(q.results)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

// RunBatch is the synchronous wrapper used by the CLI: feed every job through
// a fresh queue and return results ordered by document ID.
func RunBatch(ctx context.Context, extractor *extract.Extractor, jobs []Job, logger *slog.Logger, opts ...Option) []Result {
	q := NewQueue(extractor, logger, opts...)

	go func() {
		for _, job := range jobs {
			if err := q.Enqueue(ctx, job); err != nil {
				return
			}
		}
		q.Shutdown(ctx)
	}()

	results := make([]Result, 0, len(jobs))
	for res := range q.results {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DocumentID < results[j].DocumentID
	})
	return results
}
