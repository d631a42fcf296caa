package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// QueueMode selects which halves of the queue a process runs.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
	ModeConsumerOnly
)

// RedisQueue is a Redis list-backed work queue with delayed retries and
// a dead-letter list. The signal router uses it to replay backend writes
// that failed while ClickHouse or Kafka were unavailable.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	stopCh    chan struct{}
	mode      QueueMode
	ctx       context.Context
	cancel    context.CancelFunc
	keyPrefix string
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix overrides the Redis key namespace.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(q *RedisQueue) {
		q.keyPrefix = prefix
	}
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, mode QueueMode, opts ...RedisQueueOption) *RedisQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	rq := &RedisQueue{
		logger:    lgr,
		config:    config,
		client:    client,
		jobs:      make(map[string]Job),
		stopCh:    make(chan struct{}),
		mode:      mode,
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "tapevision:queue",
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// NewRedisPublisher returns a started producer-only queue.
func NewRedisPublisher(lgr *logger.Logger, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	q := NewRedisQueue(lgr, &QueueConfig{}, client, ModeProducerOnly, opts...)
	if err := q.Start(); err != nil {
		lgr.Error("redis publisher start failed", logger.Error(err))
	}
	return q
}

// NewRedisConsumer returns a consumer-only queue with jobs pre-registered.
func NewRedisConsumer(lgr *logger.Logger, config *QueueConfig, client *redis.Client, jobs []Job, opts ...RedisQueueOption) *RedisQueue {
	q := NewRedisQueue(lgr, config, client, ModeConsumerOnly, opts...)
	if len(jobs) > 0 {
		q.RegisterJobs(jobs)
	}
	return q
}

func (q *RedisQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		q.RegisterJob(job)
	}
}

// RegisterJob binds a job to its message type. First registration wins.
func (q *RedisQueue) RegisterJob(job Job) {
	if q.mode == ModeProducerOnly {
		q.logger.Warn("job registration ignored in producer-only mode",
			logger.String("job", job.Name()))
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	q.jobs[job.Type()] = job
	q.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start verifies connectivity and, unless producer-only, launches workers
// and the retry processor.
func (q *RedisQueue) Start() error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	q.isRunning = true
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.client.Ping(ctx).Err(); err != nil {
		q.isRunning = false
		return fmt.Errorf("redis ping: %w", err)
	}

	if q.mode != ModeProducerOnly {
		for i := 0; i < q.config.Workers; i++ {
			q.wg.Add(1)
			go q.worker(i)
		}
		q.StartRetryProcessor()
		q.logger.Info("redis queue started",
			logger.Int("workers", q.config.Workers),
			logger.String("addr", q.client.Options().Addr),
			logger.String("mode", q.modeString()))
	} else {
		q.logger.Info("redis publisher started",
			logger.String("addr", q.client.Options().Addr))
	}

	return nil
}

// Stop waits for workers to drain, bounded by ctx.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.logger.Info("stopping redis queue...")
	q.cancel()

	if q.mode != ModeProducerOnly {
		close(q.stopCh)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		q.logger.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue pushes one message. In consumer-capable modes the type must
// have a registered job, so misrouted messages fail at the producer
// instead of rotting in the list.
func (q *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.isRunning {
		return fmt.Errorf("queue not running")
	}
	if q.mode != ModeProducerOnly {
		if _, exists := q.jobs[msgType]; !exists {
			return fmt.Errorf("no job registered for type: %s", msgType)
		}
	}

	msg := Message{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// PublishMessage implements QueueService.
func (q *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return q.Enqueue(ctx, msgType, payload)
}

func (q *RedisQueue) worker(id int) {
	defer q.wg.Done()
	q.logger.Info("queue worker started", logger.Int("worker_id", id))

	key := q.queueKey()
	for {
		select {
		case <-q.stopCh:
			q.logger.Info("queue worker stopping", logger.Int("worker_id", id))
			return
		case <-q.ctx.Done():
			q.logger.Info("queue worker cancelled", logger.Int("worker_id", id))
			return
		default:
			q.popAndProcess(key)
		}
	}
}

func (q *RedisQueue) popAndProcess(key string) {
	ctx, cancel := context.WithTimeout(q.ctx, time.Second)
	defer cancel()

	result, err := q.client.BRPop(ctx, time.Second, key).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil),
			errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, context.Canceled):
			return
		}
		q.logger.Error("brpop error", logger.Error(err))
		time.Sleep(time.Second)
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		q.logger.Error("unmarshal message", logger.Error(err))
		return
	}
	q.dispatch(msg)
}

func (q *RedisQueue) dispatch(msg Message) {
	job, exists := q.jobs[msg.Type]
	if !exists {
		q.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(q.ctx, q.normalizePayload(msg.Payload))
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		q.logger.Warn("message cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return
	}
	q.retryOrDeadLetter(msg, job, err)
}

// normalizePayload turns generic JSON maps back into raw JSON so jobs can
// unmarshal into their own types via ParsePayload.
func (q *RedisQueue) normalizePayload(payload interface{}) interface{} {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		return payload
	}
	raw, err := json.Marshal(payloadMap)
	if err != nil {
		q.logger.Error("convert payload", logger.Error(err))
		return payload
	}
	return json.RawMessage(raw)
}

func (q *RedisQueue) retryOrDeadLetter(msg Message, job Job, err error) {
	q.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= q.config.RetryLimit {
		q.logger.Error("max retries reached",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		q.deadLetter(msg)
		return
	}

	msg.Attempts++
	retryAt := time.Now().Add(q.config.RetryDelay)
	q.scheduleRetry(msg, retryAt)
	q.logger.Info("scheduled retry",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", retryAt.Format(time.RFC3339)))
}

func (q *RedisQueue) scheduleRetry(msg Message, retryAt time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.logger.Error("marshal retry", logger.Error(err))
		return
	}
	err = q.client.ZAdd(context.Background(), q.retryKey(), redis.Z{
		Score:  float64(retryAt.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		q.logger.Error("zadd retry", logger.Error(err))
	}
}

func (q *RedisQueue) deadLetter(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.logger.Error("marshal dlq", logger.Error(err))
		return
	}
	if err := q.client.LPush(context.Background(), q.deadLetterKey(), data).Err(); err != nil {
		q.logger.Error("lpush dlq", logger.Error(err))
	}
}

// StartRetryProcessor launches the goroutine that moves due retries back
// onto the main list. Start calls this; it is exported for consumer-only
// setups that manage their own lifecycle.
func (q *RedisQueue) StartRetryProcessor() {
	if q.mode == ModeProducerOnly {
		return
	}
	q.wg.Add(1)
	go q.retryProcessor()
}

func (q *RedisQueue) retryProcessor() {
	defer q.wg.Done()
	q.logger.Info("retry processor started")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			q.logger.Info("retry processor stopping")
			return
		case <-q.ctx.Done():
			q.logger.Info("retry processor cancelled")
			return
		case <-ticker.C:
			q.promoteDueRetries()
		}
	}
}

func (q *RedisQueue) promoteDueRetries() {
	now := float64(time.Now().Unix())

	due, err := q.client.ZRangeByScoreWithScores(q.ctx, q.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatFloat(now, 'f', 0, 64),
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		q.logger.Error("fetch retry messages", logger.Error(err))
		return
	}

	for _, z := range due {
		select {
		case <-q.ctx.Done():
			return
		default:
		}

		data := z.Member.(string)

		// remove and requeue atomically so a crash cannot duplicate the
		// message
		pipe := q.client.TxPipeline()
		pipe.ZRem(q.ctx, q.retryKey(), data)
		pipe.LPush(q.ctx, q.queueKey(), data)
		if _, err := pipe.Exec(q.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			q.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (q *RedisQueue) modeString() string {
	switch q.mode {
	case ModeProducerOnly:
		return "producer-only"
	case ModeConsumerOnly:
		return "consumer-only"
	default:
		return "producer-consumer"
	}
}

func (q *RedisQueue) queueKey() string {
	return fmt.Sprintf("%s:messages", q.keyPrefix)
}

func (q *RedisQueue) retryKey() string {
	return fmt.Sprintf("%s:retry", q.keyPrefix)
}

func (q *RedisQueue) deadLetterKey() string {
	return fmt.Sprintf("%s:dlq", q.keyPrefix)
}
