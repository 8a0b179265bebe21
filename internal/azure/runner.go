// Package azure wraps the external az CLI: subprocess invocation, JSON
// parsing, and the Bastion tunnel provider backing the tunnel pool.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jspahr/azfleet/internal/errors"
	"github.com/jspahr/azfleet/internal/logger"
)

// Runner invokes the az CLI and returns its stdout. Implementations wrap
// subprocess execution so discovery code can be tested with canned JSON.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// CLIRunner shells out to the az binary.
type CLIRunner struct {
	// Binary is the executable to invoke. Empty means "az".
	Binary string

	log logger.Logger
}

// NewCLIRunner returns a runner for the installed az CLI.
func NewCLIRunner() *CLIRunner {
	return &CLIRunner{log: logger.NewEnvLogger("[azure]")}
}

// Run executes az with the given arguments plus JSON output, returning
// stdout. Command failure is wrapped with the stderr tail so the user sees
// what az actually complained about.
func (r *CLIRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "az"
	}

	cmd := exec.CommandContext(ctx, binary, append(args, "--output", "json")...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running %s %s", binary, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		if _, lookErr := exec.LookPath(binary); lookErr != nil {
			return nil, errors.WrapWithCode(err, errors.ErrAzure,
				fmt.Sprintf("'%s' CLI not found", binary),
				"Install the Azure CLI: https://aka.ms/azure-cli")
		}
		return nil, errors.WrapWithCode(err, errors.ErrAzure,
			fmt.Sprintf("az %s failed: %s", firstArg(args), stderrTail(stderr.Bytes())),
			"Check you're logged in with 'az login' and the subscription is set")
	}

	return stdout.Bytes(), nil
}

// Version reports the installed az CLI version output. Used by the status
// command to verify the CLI is reachable.
func (r *CLIRunner) Version(ctx context.Context) ([]byte, error) {
	return r.Run(ctx, "version")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// stderrTail keeps error output readable: az emits long tracebacks, and
// only the last lines carry the actual failure.
func stderrTail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " ")
}
