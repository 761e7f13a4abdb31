package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured output of one finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined, in that order.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner abstracts command execution so packages can be unit-tested without
// touching the real overlay, gossip or ping tools.
//
// Exec returns a nil error when the command ran to completion, whatever its exit
// code. A non-nil error means the command could not be started (errors.Is
// exec.ErrNotFound for a missing binary) or ctx expired first, in which case the
// process has already been killed.
type Runner interface {
	Exec(ctx context.Context, name string, args ...string) (Result, error)
}

// OSRunner executes commands on the host via os/exec.
type OSRunner struct {
	// WaitDelay bounds how long Exec waits for output pipes after the process
	// was killed by ctx.
	WaitDelay time.Duration
}

func NewOSRunner() *OSRunner {
	return &OSRunner{WaitDelay: 2 * time.Second}
}

func (r *OSRunner) Exec(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// Output runs a command with r and returns its trimmed stdout. A non-zero exit is
// reported as an error carrying the command's stderr.
func Output(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Exec(ctx, name, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		if msg != "" {
			return "", fmt.Errorf("%s: exit status %d: %s", name, res.ExitCode, msg)
		}
		return "", fmt.Errorf("%s: exit status %d", name, res.ExitCode)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// WithTimeout runs fn under a derived context bounded by d. A zero d leaves ctx as is.
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
