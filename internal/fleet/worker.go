package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/jspahr/azfleet/internal/errors"
)

// worker pulls targets from the queue until it drains or the run is
// cancelled.
func (o *Orchestrator) worker(ctx context.Context, queue <-chan Target, results chan<- VMResult,
	failed *bool, failedMu *sync.Mutex, cancel context.CancelFunc, command string) {

	for target := range queue {
		if ctx.Err() != nil {
			results <- VMResult{VM: target.Name, ExitCode: -1, Err: ctx.Err()}
			continue
		}

		if o.cfg.FailFast {
			failedMu.Lock()
			stop := *failed
			failedMu.Unlock()
			if stop {
				results <- VMResult{VM: target.Name, ExitCode: -1,
					Err: errors.New(errors.ErrExec, "Skipped after earlier failure", "")}
				continue
			}
		}

		result := o.runOne(ctx, target, command)
		if !result.Success() && o.cfg.FailFast {
			failedMu.Lock()
			*failed = true
			failedMu.Unlock()
			cancel()
		}
		results <- result
	}
}

// runOne executes the command on a single VM through a pooled tunnel.
func (o *Orchestrator) runOne(ctx context.Context, target Target, command string) VMResult {
	start := time.Now()
	result := VMResult{VM: target.Name}

	entry, err := o.pool.GetOrCreate(o.cfg.Bastion, o.cfg.BastionResourceGroup, target.ResourceID, o.cfg.RemotePort)
	if err != nil {
		result.Err = err
		result.ExitCode = -1
		result.Duration = time.Since(start)
		return result
	}

	client, err := o.dial(target.Name, entry.Handle().LocalPort())
	if err != nil {
		result.Err = err
		result.ExitCode = -1
		result.Duration = time.Since(start)
		return result
	}
	defer client.Close()

	execCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	stdout, stderr, exitCode, err := o.execWithContext(execCtx, client, command, target.Name)
	result.Output = append(stdout, stderr...)
	result.ExitCode = exitCode
	result.Err = err
	result.Duration = time.Since(start)
	return result
}

type execResult struct {
	stdout   []byte
	stderr   []byte
	exitCode int
	err      error
}

// execWithContext runs the command, abandoning it if the context ends
// first. SSH sessions can't be interrupted portably, so on timeout the
// connection is closed to unblock the remote command.
func (o *Orchestrator) execWithContext(ctx context.Context, client closableExecutor, command, vmName string) ([]byte, []byte, int, error) {
	done := make(chan execResult, 1)
	go func() {
		stdout, stderr, code, err := client.Exec(command)
		done <- execResult{stdout: stdout, stderr: stderr, exitCode: code, err: err}
	}()

	select {
	case r := <-done:
		return r.stdout, r.stderr, r.exitCode, r.err
	case <-ctx.Done():
		o.log.Warn("command on %s cancelled: %v", vmName, ctx.Err())
		_ = client.Close()
		return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			"Command on "+vmName+" didn't finish in time",
			"Raise fleet.timeout or investigate the VM")
	}
}

// closableExecutor is the slice of SSHClient the exec path needs.
type closableExecutor interface {
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)
	Close() error
}
