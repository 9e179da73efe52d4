package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCierre = "jobs:cierre"
	QueueEmail  = "jobs:email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Processor handles the payload of one queue. A returned error sends the
// job to the DLQ; processors retry transient failures themselves.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueCierre schedules report generation for a finished close.
// It satisfies service.ColaCierre.
func (d *Dispatcher) EnqueueCierre(ctx context.Context, cuadreID uuid.UUID) error {
	return d.enqueue(ctx, QueueCierre, "cierre", CierreJobPayload{CuadreID: cuadreID.String()})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming every queue that
// has a processor. Each goroutine blocks on BRPOP, zero CPU when idle.
// The returned WaitGroup is done once all workers observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, processors map[string]Processor) *sync.WaitGroup {
	queues := make([]string, 0, len(processors))
	for q := range processors {
		queues = append(queues, q)
	}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, id, queues, processors)
		}(i)
	}
	log.Info().Strs("queues", queues).Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, queues []string, processors map[string]Processor) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			job, err := processJob(ctx, processors, result[0], result[1])
			if err != nil {
				// the DLQ push must survive shutdown of ctx
				SendToDLQ(context.Background(), rdb, result[0], job, err)
			}
		}
	}
}

// processJob decodes the envelope and runs the queue's processor.
func processJob(ctx context.Context, processors map[string]Processor, queue, raw string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return Job{Type: "desconocido", Payload: json.RawMessage(fmt.Sprintf("%q", raw))}, err
	}
	p, ok := processors[queue]
	if !ok {
		return job, fmt.Errorf("no processor for queue %s", queue)
	}
	log.Info().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	return job, p.Process(ctx, job.Payload)
}

// permanent marks an error that retrying cannot fix.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2*base.
// Returns nil if any attempt succeeds; last error otherwise. A *permanent
// error stops the loop at once and is returned unwrapped.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			var p *permanent
			if errors.As(err, &p) {
				return p.err
			}
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
