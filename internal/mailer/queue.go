package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"ideaportal/internal/ids"
	"ideaportal/internal/obs"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("mail queue is full")
	ErrQueueClosed = errors.New("mail queue is closed")
)

// Config for the in-memory delivery queue
type Config struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration // multiplied by the attempt number between retries
	QueueSize  int
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		QueueSize:  256,
	}
}

// Job is one email waiting for delivery
type Job struct {
	ID             string
	NotificationID uuid.UUID
	To             string
	Subject        string
	HTMLBody       string
	Attempts       int
	LastError      string
}

// Queue hands emails to a pool of workers so callers never wait on the network.
// Failed sends are retried and, once retries are exhausted, kept in a dead-letter list.
// Errors wrapping ErrPermanent skip the retries.
type Queue struct {
	sender Sender
	config Config
	log    zerolog.Logger

	jobs   chan Job
	onSent func(ctx context.Context, job Job, sentAt time.Time)

	mu     sync.RWMutex
	closed bool

	dlqMu sync.Mutex
	dlq   []Job

	wg sync.WaitGroup
}

// NewQueue creates a queue. Call Start to launch the workers.
func NewQueue(sender Sender, config Config, log zerolog.Logger) *Queue {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Queue{
		sender: sender,
		config: config,
		log:    log.With().Str("component", "mailer").Logger(),
		jobs:   make(chan Job, config.QueueSize),
	}
}

// OnSent registers a callback run after each successful delivery. Must be set before Start.
func (q *Queue) OnSent(fn func(ctx context.Context, job Job, sentAt time.Time)) {
	q.onSent = fn
}

// Start launches the workers; they exit when ctx is done or Stop is called
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue never blocks. A full or closed queue returns an error and the job is dropped.
func (q *Queue) Enqueue(job Job) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}
	if job.ID == "" {
		job.ID = ids.New()
	}

	select {
	case q.jobs <- job:
		return job.ID, nil
	default:
		obs.EmailDeliveries.WithLabelValues("dropped").Inc()
		q.log.Error().Str("job_id", job.ID).Str("to", job.To).Msg("mail queue full, dropping email")
		return "", ErrQueueFull
	}
}

// Stop closes the queue and waits for queued jobs to drain
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// DeadLetters returns a copy of the jobs that exhausted their retries
func (q *Queue) DeadLetters() []Job {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	out := make([]Job, len(q.dlq))
	copy(out, q.dlq)
	return out
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.deliver(ctx, job)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, job Job) {
	for {
		job.Attempts++
		err := q.sender.Send(ctx, job.To, job.Subject, job.HTMLBody)
		if err == nil {
			obs.EmailDeliveries.WithLabelValues("sent").Inc()
			q.log.Debug().Str("job_id", job.ID).Str("to", job.To).Int("attempts", job.Attempts).Msg("email sent")
			if q.onSent != nil {
				q.onSent(ctx, job, time.Now().UTC())
			}
			return
		}

		job.LastError = err.Error()
		if errors.Is(err, ErrPermanent) || job.Attempts > q.config.MaxRetries {
			obs.EmailDeliveries.WithLabelValues("dead_lettered").Inc()
			q.log.Error().Err(err).Str("job_id", job.ID).Str("to", job.To).Int("attempts", job.Attempts).Msg("email delivery failed, moved to dead letter")
			q.dlqMu.Lock()
			q.dlq = append(q.dlq, job)
			q.dlqMu.Unlock()
			return
		}

		obs.EmailDeliveries.WithLabelValues("retried").Inc()
		q.log.Warn().Err(err).Str("job_id", job.ID).Int("attempt", job.Attempts).Msg("email delivery failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.config.RetryDelay * time.Duration(job.Attempts)):
		}
	}
}
