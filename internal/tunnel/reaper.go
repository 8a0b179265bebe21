package tunnel

import (
	"sync"
	"time"

	"github.com/jspahr/azfleet/internal/logger"
)

// Reaper periodically asks a Pool to close tunnels that have sat idle past
// their timeout. It runs as a single background goroutine between Start
// and Stop.
type Reaper struct {
	pool *Pool
	log  logger.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewReaper creates a stopped reaper for the given pool.
func NewReaper(pool *Pool, log logger.Logger) *Reaper {
	if log == nil {
		log = logger.NewEnvLogger("[tunnel]")
	}
	return &Reaper{pool: pool, log: log}
}

// DefaultSweepInterval is used when Start is given a non-positive
// interval, which time.NewTicker would otherwise panic on.
const DefaultSweepInterval = 30 * time.Second

// Start launches the background sweep loop. Calling Start on a running
// reaper is a no-op.
func (r *Reaper) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.loop(interval, r.stop, r.done)
}

// Stop signals the loop to exit and waits for it. A sweep in progress
// completes normally before the loop observes the signal. Calling Stop on
// a stopped reaper is a no-op.
func (r *Reaper) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the background loop is active.
func (r *Reaper) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *Reaper) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := r.pool.ReapIdle(); n > 0 {
				r.log.Debug("reaped %d idle tunnel(s)", n)
			}
		}
	}
}
