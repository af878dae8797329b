package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SyncProcessorConfig holds configuration for the sync processor.
type SyncProcessorConfig struct {
	// PollInterval is how often pending budgets are checked (default: 10s).
	PollInterval time.Duration

	// BatchSize is the max number of budgets synced per poll (default: 10).
	BatchSize int

	// MaxRetries is how many failed attempts a version gets before it is
	// left in the error state (default: 3).
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// PendingSyncer syncs one batch of pending budgets and reports how many succeeded.
type PendingSyncer interface {
	ProcessPending(ctx context.Context) (int, error)
}

// SyncProcessor polls the local store for budgets that still need to reach
// the remote store. It backs up the AMQP path and replaces it when no
// broker is configured.
type SyncProcessor struct {
	syncer PendingSyncer
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(syncer PendingSyncer, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	return &SyncProcessor{syncer: syncer, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("sync processor is already running")
	}
	if p.syncer == nil {
		return fmt.Errorf("sync processor has no syncer")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it, or for ctx to expire.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *SyncProcessor) processBatch(ctx context.Context) {
	n, err := p.syncer.ProcessPending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to process pending budgets", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pending budgets synced", "count", n)
	}
}
