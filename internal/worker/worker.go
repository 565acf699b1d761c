package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type JobType string

const (
	// JobTypeImageCleanup deletes object-store images that were uploaded
	// before a later file in the same batch failed.
	JobTypeImageCleanup JobType = "image_cleanup"
)

const (
	cleanupQueue = "cleanup_queue"
	retryQueue   = "retry_queue"
	deadQueue    = "dead_queue"
)

type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	Names     []string  `json:"names"`
	Attempts  int       `json:"attempts"`
	MaxTries  int       `json:"max_tries"`
	CreatedAt time.Time `json:"created_at"`
	ProcessAt time.Time `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

// Worker drains redis-backed job queues. The task core enqueues work it must
// not block a request on, currently only deferred image deletion.
type Worker struct {
	client   *redis.Client
	log      *logrus.Logger
	handlers map[JobType]JobHandler
	queues   []string
	backoff  time.Duration
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient *redis.Client
	Logger      *logrus.Logger
	Queues      []string
	// RetryBackoff is the base delay before a failed job runs again; the
	// actual delay doubles with each attempt. Defaults to one minute.
	RetryBackoff time.Duration
}

func NewWorker(config WorkerConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	// The retry queue must be drained by the same workers, otherwise
	// failed jobs would never run again.
	queues := config.Queues
	if len(queues) == 0 {
		queues = []string{cleanupQueue, retryQueue}
	}

	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	backoff := config.RetryBackoff
	if backoff == 0 {
		backoff = time.Minute
	}

	return &Worker{
		client:   config.RedisClient,
		log:      log,
		handlers: make(map[JobType]JobHandler),
		queues:   queues,
		backoff:  backoff,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	w.log.WithField("goroutines", concurrency).Info("starting worker")

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop()
	}
}

func (w *Worker) Stop() {
	w.log.Info("stopping worker")
	w.cancel()
	w.wg.Wait()
	w.log.Info("worker stopped")
}

func (w *Worker) workerLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.ProcessNextJob(); err != nil {
				w.log.WithError(err).Error("error processing job")
				time.Sleep(time.Second)
			}
		}
	}
}

// ProcessNextJob blocks briefly waiting for a job and runs it. A timeout
// with no job available is not an error.
func (w *Worker) ProcessNextJob() error {
	result, err := w.client.BLPop(w.ctx, 5*time.Second, w.queues...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	queue := result[0]
	jobData := result[1]

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if time.Now().Before(job.ProcessAt) {
		if err := w.enqueueJob(queue, &job); err != nil {
			return err
		}
		// The head of this queue is not due yet; pause before polling
		// again instead of spinning on the same job.
		select {
		case <-w.ctx.Done():
		case <-time.After(time.Second):
		}
		return nil
	}

	return w.executeJob(&job)
}

func (w *Worker) executeJob(job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for job type: %s", job.Type)
	}

	log := w.log.WithFields(logrus.Fields{"job_id": job.ID, "job_type": job.Type})
	log.Info("processing job")

	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	if err := handler(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			log.WithError(err).WithField("attempt", job.Attempts).Warn("job failed, retrying")
			return w.retryJob(job)
		}

		log.WithError(err).WithField("attempts", job.Attempts).Error("job failed permanently")
		return w.moveToDeadQueue(job, err)
	}

	log.Info("job completed")
	return nil
}

func (w *Worker) retryJob(job *Job) error {
	delay := time.Duration(1<<job.Attempts) * w.backoff
	job.ProcessAt = time.Now().Add(delay)

	return w.enqueueJob(retryQueue, job)
}

func (w *Worker) enqueueJob(queue string, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return w.client.RPush(w.ctx, queue, jobData).Err()
}

func (w *Worker) moveToDeadQueue(job *Job, jobErr error) error {
	deadJob := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    time.Now(),
	}

	deadJobData, err := json.Marshal(deadJob)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(w.ctx, deadQueue, deadJobData).Err()
}

// JobQueue is the enqueue side, shared with the image pipeline.
type JobQueue struct {
	client *redis.Client
}

func NewJobQueue(client *redis.Client) *JobQueue {
	return &JobQueue{client: client}
}

// EnqueueImageCleanup queues object names for deferred deletion. Implements
// the pipeline's CleanupQueue.
func (q *JobQueue) EnqueueImageCleanup(names []string) error {
	job := &Job{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      JobTypeImageCleanup,
		Names:     names,
		Attempts:  0,
		MaxTries:  3,
		CreatedAt: time.Now(),
		ProcessAt: time.Now(),
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return q.client.RPush(ctx, cleanupQueue, jobData).Err()
}

func (q *JobQueue) QueueSize() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, cleanupQueue).Result()
}
