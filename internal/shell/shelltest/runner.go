// Package shelltest provides a scripted, recording Runner implementation
// for tests. It lets orchestration tests assert EXACTLY which external
// commands ran, in what order, without touching real tooling.
package shelltest

import (
	"context"
	"fmt"
	"strings"

	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// Call records a single invocation routed through the fake runner.
type Call struct {
	// Name is the executable name or path.
	Name string

	// Args are the arguments, in order.
	Args []string

	// Streaming is true for RunStreaming invocations.
	Streaming bool
}

// String renders the call as a flat command line for assertion messages.
func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Response scripts the outcome of one invocation.
type Response struct {
	// Stdout is returned as captured output for Run calls.
	Stdout string

	// Stderr is returned as captured output for Run calls.
	Stderr string

	// Err, when non-nil, is returned as the invocation's failure.
	Err error
}

// RecordingRunner implements shell.Runner and shell.StreamingRunner.
// Outcomes are matched by executable name via Stub; unmatched commands
// succeed with empty output, so happy-path tests stay short.
type RecordingRunner struct {
	// Calls holds every invocation in order.
	Calls []Call

	stubs map[string][]Response
}

// compile-time interface checks
var (
	_ shell.Runner          = (*RecordingRunner)(nil)
	_ shell.StreamingRunner = (*RecordingRunner)(nil)
)

// NewRecordingRunner creates an empty recording runner where every
// command succeeds until stubbed otherwise.
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{stubs: make(map[string][]Response)}
}

// Stub queues a response for the next invocation(s) of the named
// executable. Multiple stubs for the same name are consumed in FIFO
// order; once exhausted, further invocations succeed with empty output.
func (r *RecordingRunner) Stub(name string, resp Response) {
	r.stubs[name] = append(r.stubs[name], resp)
}

// Run implements shell.Runner.
func (r *RecordingRunner) Run(ctx context.Context, name string, args ...string) (shell.Result, error) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
	resp := r.next(name)
	result := shell.Result{Stdout: resp.Stdout, Stderr: resp.Stderr}
	if resp.Err != nil {
		return result, fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), resp.Err)
	}
	return result, nil
}

// RunStreaming implements shell.StreamingRunner.
func (r *RecordingRunner) RunStreaming(ctx context.Context, name string, args ...string) error {
	r.Calls = append(r.Calls, Call{Name: name, Args: args, Streaming: true})
	resp := r.next(name)
	if resp.Err != nil {
		return fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), resp.Err)
	}
	return nil
}

// CallsFor returns the recorded invocations of the named executable.
func (r *RecordingRunner) CallsFor(name string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// next pops the queued response for name, or a zero (successful) one.
func (r *RecordingRunner) next(name string) Response {
	queue := r.stubs[name]
	if len(queue) == 0 {
		return Response{}
	}
	resp := queue[0]
	r.stubs[name] = queue[1:]
	return resp
}
