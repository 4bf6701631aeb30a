package requestlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/incident-ai-gateway/models"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when recording before Start
	ErrNotStarted = errors.New("request log service not started")

	// ErrBufferFull is returned when an entry is dropped
	ErrBufferFull = errors.New("request log buffer full")
)

// Sink persists or forwards request log entries
type Sink interface {
	Write(ctx context.Context, entry *models.RequestLogEntry) error
}

// ZapSink writes entries as structured log lines
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink that logs through logger
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("ai_request")}
}

// Write logs the entry at info level, or warn for failures
func (s *ZapSink) Write(_ context.Context, e *models.RequestLogEntry) error {
	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("caller", e.Caller),
		zap.String("operation", e.Operation),
		zap.String("outcome", string(e.Outcome)),
		zap.String("model", e.Model),
		zap.String("provider", e.Provider),
		zap.Strings("models_tried", e.ModelsTried),
		zap.Int("attempts", e.Attempts),
		zap.Int("tokens_used", e.TokensUsed),
		zap.Float64("cost", e.Cost),
		zap.Int64("duration_ms", e.DurationMs),
		zap.Time("completed_at", e.CompletedAt),
	}
	if e.Outcome == models.OutcomeFailed || e.Outcome == models.OutcomeDenied {
		fields = append(fields, zap.String("error_kind", string(e.ErrorKind)), zap.String("error", e.Error))
		s.logger.Warn("ai request completed", fields...)
		return nil
	}
	s.logger.Info("ai request completed", fields...)
	return nil
}

// Config holds configuration for the Service
type Config struct {
	BufferSize  int // Size of the entry buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// Stats represents request log service statistics
type Stats struct {
	BufferSize     int   `json:"buffer_size"`
	PendingEntries int   `json:"pending_entries"`
	WorkerCount    int   `json:"worker_count"`
	Started        bool  `json:"started"`
	Dropped        int64 `json:"dropped"`
	Written        int64 `json:"written"`
	Failed         int64 `json:"failed"`
}

// Service dispatches request log entries to a Sink on background workers
type Service struct {
	sink        Sink
	logger      *zap.Logger
	entries     chan *models.RequestLogEntry
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	mu          sync.Mutex
	started     bool
	stopped     bool
	dropped     int64
	written     int64
	failed      int64
}

// NewService creates a new Service instance
func NewService(sink Sink, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		sink:        sink,
		logger:      logger,
		entries:     make(chan *models.RequestLogEntry, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("request log service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started request log service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))
	return nil
}

// Stop closes the buffer and waits for queued entries to drain
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopped = true
	close(s.entries)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("request log service stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("request log service stop timeout after %v", timeout)
	}
}

// Record queues an entry without blocking. Entries are dropped when the
// buffer is full.
func (s *Service) Record(entry *models.RequestLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.entries <- entry:
		return nil
	default:
		s.dropped++
		s.logger.Warn("request log buffer full, dropping entry",
			zap.String("request_id", entry.RequestID),
			zap.String("outcome", string(entry.Outcome)))
		return ErrBufferFull
	}
}

// Stats returns statistics about the service
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:     s.bufferSize,
		PendingEntries: len(s.entries),
		WorkerCount:    s.workerCount,
		Started:        s.started && !s.stopped,
		Dropped:        s.dropped,
		Written:        s.written,
		Failed:         s.failed,
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.sink.Write(ctx, entry)
		cancel()

		s.mu.Lock()
		if err != nil {
			s.failed++
		} else {
			s.written++
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("failed to write request log entry",
				zap.Int("worker_id", id),
				zap.String("request_id", entry.RequestID),
				zap.Error(err))
		}
	}
}
