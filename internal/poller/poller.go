// Package poller is the pull-side fallback for job progress: a
// fixed-interval status loop that runs until the job reaches a terminal
// state or is stopped.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/logbuf"
)

// DefaultInterval matches the original client's 2s status poll.
const DefaultInterval = 2 * time.Second

// StatusFunc receives each successfully fetched snapshot, including the
// terminal one. It runs on the poller's goroutine.
type StatusFunc func(engine.JobStatus)

// Poller polls the status endpoint for one document.
type Poller struct {
	client   *engine.Client
	docID    string
	interval time.Duration
	logs     *logbuf.Buffer
	onStatus StatusFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// New creates a poller. A non-positive interval falls back to
// DefaultInterval.
func New(client *engine.Client, docID string, interval time.Duration, logs *logbuf.Buffer, onStatus StatusFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		client:   client,
		docID:    docID,
		interval: interval,
		logs:     logs,
		onStatus: onStatus,
	}
}

// Start begins polling. Calling Start while already running is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop cancels polling. It is idempotent: stopping an already-stopped
// poller is not an error. A request in flight when Stop is called has
// its response discarded rather than applied.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.running = false
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wait blocks until the poll loop has exited, if it was ever started.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := p.client.Status(ctx, p.docID)
		if err != nil {
			// A single failed tick is retried on the next one; it
			// never counts toward a terminal state.
			if ctx.Err() == nil {
				p.logs.Append(logbuf.LevelWarn, "poller",
					fmt.Sprintf("status poll failed: %v", err))
			}
			continue
		}

		// Cancellation may have raced the request; a late response
		// must be discarded, not applied.
		if ctx.Err() != nil {
			return
		}

		p.onStatus(st)

		if st.State.Terminal() {
			p.logs.Append(logbuf.LevelInfo, "poller",
				fmt.Sprintf("job reached terminal state %q, polling stopped", st.State))
			p.Stop()
			return
		}
	}
}
