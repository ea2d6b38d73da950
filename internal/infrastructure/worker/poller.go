package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PollConfig holds the polling settings shared by the workers
type PollConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Timeout bounds a single item; zero means no per-item timeout
	Timeout time.Duration
}

func (c PollConfig) withDefaults(d PollConfig) PollConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Stats is a snapshot of a worker's counters
type Stats struct {
	Running        bool      `json:"running"`
	ProcessedCount int       `json:"processed_count"`
	FailedCount    int       `json:"failed_count"`
	LastProcessed  time.Time `json:"last_processed"`
	StartTime      time.Time `json:"start_time"`
	LastError      string    `json:"last_error,omitempty"`
}

// poller runs a batch function on a ticker until stopped
type poller struct {
	name   string
	config PollConfig
	batch  func(ctx context.Context) error
	logger *zap.Logger

	mu             sync.RWMutex
	cancel         context.CancelFunc
	done           chan struct{}
	isRunning      bool
	lastProcessed  time.Time
	processedCount int
	failedCount    int
	startTime      time.Time
	lastError      error
}

func (p *poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return fmt.Errorf("%s already running", p.name)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.isRunning = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.logger.Info(p.name+" started",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_size", p.config.BatchSize))

	go p.pollLoop(ctx)
	return nil
}

// Stop cancels the loop and waits for the current batch to finish
func (p *poller) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done

	stats := p.Stats()
	p.logger.Info(p.name+" stopped",
		zap.Int("processed_count", stats.ProcessedCount),
		zap.Int("failed_count", stats.FailedCount))
	return nil
}

func (p *poller) Name() string {
	return p.name
}

func (p *poller) pollLoop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Poll loop context cancelled", zap.String("worker", p.name))
			return

		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce processes one batch synchronously
func (p *poller) RunOnce(ctx context.Context) {
	err := p.batch(ctx)

	p.mu.Lock()
	p.lastProcessed = time.Now()
	if err != nil {
		p.lastError = err
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("Batch failed", zap.String("worker", p.name), zap.Error(err))
	}
}

func (p *poller) record(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.processedCount++
	} else {
		p.failedCount++
	}
}

func (p *poller) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Stats{
		Running:        p.isRunning,
		ProcessedCount: p.processedCount,
		FailedCount:    p.failedCount,
		LastProcessed:  p.lastProcessed,
		StartTime:      p.startTime,
	}
	if p.lastError != nil {
		s.LastError = p.lastError.Error()
	}
	return s
}
