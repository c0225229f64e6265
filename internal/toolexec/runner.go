// Package toolexec runs the external tools virtforge depends on (qemu-img,
// virt-install, websockify) with a mandatory timeout and captured output.
//
// Every invocation is bounded: a tool that hangs is killed when its deadline
// expires and the timeout is reported like any other non-zero exit, with
// whatever output the tool produced so far.
package toolexec

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds tool invocations that do not specify their own.
const DefaultTimeout = 2 * time.Minute

// Runner invokes external commands. The interface exists so workflows can be
// tested without spawning real processes.
type Runner interface {
	// Run executes the named tool and returns its combined stdout/stderr.
	// A non-zero exit or an expired deadline returns a non-nil error
	// alongside the captured output.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// StartDetached launches the named tool in its own session so it
	// outlives the calling process. Output is discarded.
	StartDetached(name string, args ...string) error
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewRunner returns an ExecRunner with the given per-invocation timeout.
func NewRunner(timeout time.Duration, logger zerolog.Logger) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout, Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if _, err := exec.LookPath(name); err != nil {
		return "", errors.New(name + " not found in PATH")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, name, args...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))

	ev := r.Logger.Debug().
		Str("tool", name).
		Strs("args", args).
		Dur("elapsed", time.Since(start))
	if err != nil {
		ev.Err(err).Str("output", output).Msg("tool invocation failed")
		if runCtx.Err() == context.DeadlineExceeded {
			return output, errors.New(name + " timed out after " + r.Timeout.String())
		}
		return output, err
	}
	ev.Msg("tool invocation succeeded")
	return output, nil
}

func (r *ExecRunner) StartDetached(name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return errors.New(name + " not found in PATH")
	}

	cmd := exec.Command(path, args...)
	// New session so the relay survives virtforge exiting.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	r.Logger.Debug().Str("tool", name).Strs("args", args).Int("pid", cmd.Process.Pid).
		Msg("detached tool started")
	return cmd.Process.Release()
}
