// Package shell provides the subprocess execution layer for qlab.
//
// Every external action the provisioner takes — probing the Python
// interpreter, running pip, creating and driving conda environments — is
// a blocking subprocess call routed through the Runner interface. The
// interface exists so that the orchestration logic can be tested against
// a scripted fake that records invocations, while production code uses
// ExecRunner (a thin os/exec wrapper).
//
// Design decisions:
//   - Stdout and stderr are captured separately; stderr is folded into
//     the returned error so failure diagnostics carry the tool's own
//     message (pip and conda both report the interesting details there).
//   - No timeouts or retries: the provisioner is a one-shot, sequential
//     tool and every failure path is terminal. Cancellation is still
//     honored via the context for Ctrl-C.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result holds the captured output of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output, unmodified.
	Stdout string

	// Stderr is the captured standard error, unmodified.
	Stderr string
}

// Runner executes external commands. Implementations must block until the
// command completes and return a non-nil error for any non-zero exit.
type Runner interface {
	// Run executes name with args and returns the captured output.
	// On a non-zero exit the returned error includes trimmed stderr,
	// and the Result still carries whatever output was produced.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// StreamingRunner executes external commands with stdout/stderr attached
// to the current process, for long-running installer subprocesses whose
// progress output the user should see live.
type StreamingRunner interface {
	// RunStreaming executes name with args, forwarding the child's
	// stdout and stderr to the parent's. Returns an error for any
	// non-zero exit.
	RunStreaming(ctx context.Context, name string, args ...string) error
}

// ExecRunner is the production Runner backed by os/exec.
// It is stateless and safe for reuse across calls.
type ExecRunner struct{}

// NewExecRunner creates an ExecRunner. The constructor exists to match
// the package convention and to leave room for options (custom PATH,
// working directory) without breaking callers.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner. Output is captured in memory; commands run in
// the process's current working directory with the inherited environment.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	// #nosec G204 — commands and args are assembled internally from the
	// manifest and fixed templates, not from untrusted input.
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return result, commandError(name, args, result.Stderr, err)
	}
	return result, nil
}

// RunStreaming implements StreamingRunner. The child writes directly to
// the parent's stdout/stderr, so installer progress (pip download bars,
// conda transaction output) reaches the user unbuffered.
func (r *ExecRunner) RunStreaming(ctx context.Context, name string, args ...string) error {
	// #nosec G204 — see Run.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return commandError(name, args, "", err)
	}
	return nil
}

// commandError builds the failure error for a subprocess, appending
// trimmed stderr when it was captured. The command line is included so
// diagnostics identify exactly which external action failed.
func commandError(name string, args []string, stderr string, err error) error {
	msg := fmt.Sprintf("%s %s failed", name, strings.Join(args, " "))
	if s := strings.TrimSpace(stderr); s != "" {
		msg = fmt.Sprintf("%s: %s", msg, s)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
