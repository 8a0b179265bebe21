package fleet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jspahr/azfleet/internal/errors"
	"github.com/jspahr/azfleet/internal/logger"
	"github.com/jspahr/azfleet/internal/tunnel"
	"github.com/jspahr/azfleet/pkg/sshutil"
)

// Dialer opens an SSH client to a VM through an established tunnel's
// local port. Injectable so tests run without real connections.
type Dialer func(vmName string, localPort int) (sshutil.SSHClient, error)

// Orchestrator coordinates a parallel command run across fleet targets.
type Orchestrator struct {
	pool *tunnel.Pool
	dial Dialer
	cfg  Config
	log  logger.Logger
}

// NewOrchestrator creates an orchestrator sharing the given tunnel pool.
func NewOrchestrator(pool *tunnel.Pool, dial Dialer, cfg Config, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewEnvLogger("[fleet]")
	}
	return &Orchestrator{pool: pool, dial: dial, cfg: cfg, log: log}
}

// Run executes the command on every target, bounded by MaxParallel
// workers pulling from a shared queue. Per-VM failures land in the result;
// Run itself only errors when it can't start at all.
func (o *Orchestrator) Run(ctx context.Context, targets []Target, command string) (*Result, error) {
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No VMs to run against",
			"Check the resource group has running VMs, or adjust your filter")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()

	queue := make(chan Target, len(targets))
	for _, t := range targets {
		queue <- t
	}
	close(queue)

	numWorkers := len(targets)
	if o.cfg.MaxParallel > 0 && o.cfg.MaxParallel < numWorkers {
		numWorkers = o.cfg.MaxParallel
	}

	resultChan := make(chan VMResult, len(targets))

	var failed bool
	var failedMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.worker(ctx, queue, resultChan, &failed, &failedMu, cancel, command)
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	result := &Result{VMResults: make([]VMResult, 0, len(targets))}
	for r := range resultChan {
		result.VMResults = append(result.VMResults, r)
		if r.Success() {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Duration = time.Since(start)

	// Stable output order regardless of completion order.
	sort.Slice(result.VMResults, func(i, j int) bool {
		return result.VMResults[i].VM < result.VMResults[j].VM
	})

	return result, nil
}
