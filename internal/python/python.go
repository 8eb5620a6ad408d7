// Package python probes the local Python interpreter and evaluates the
// two provisioning preconditions: the isolation verdict and the minimum
// version gate.
//
// The probe is a single `python -c` subprocess that prints version and
// prefix facts line by line; everything downstream (DetectIsolation,
// CheckVersion) is a pure function over the resulting model.Interpreter
// snapshot. This keeps the detection logic deterministic and directly
// testable, while the snapshot itself is re-probed on every run — the
// verdict is never cached across invocations.
package python

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// CondaMarkerVar is the environment variable conda sets in an activated
// environment. Its presence (non-empty) is isolation signal (b).
const CondaMarkerVar = "CONDA_DEFAULT_ENV"

// probeSnippet prints the interpreter facts one per line, in a fixed
// order, so the output parses without any delimiter ambiguity:
// major, minor, micro, sys.prefix, sys.base_prefix.
//
// getattr covers ancient interpreters without base_prefix; for those,
// prefix == base_prefix and the venv signal simply never fires.
const probeSnippet = `import sys
print(sys.version_info.major)
print(sys.version_info.minor)
print(sys.version_info.micro)
print(sys.prefix)
print(getattr(sys, "base_prefix", sys.prefix))`

// candidateNames lists the interpreter executable names to try, in
// preference order. "python3" is the canonical name on Linux and macOS;
// "python" covers Windows installs and conda environments.
var candidateNames = []string{"python3", "python"}

// Find locates a Python interpreter on the search path.
// Returns a KindMissingDependency error when none of the candidate
// names resolve.
func Find() (string, error) {
	for _, name := range candidateNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", model.NewCLIError(model.KindMissingDependency,
		"no Python interpreter found on PATH (tried python3, python)")
}

// Probe runs the snapshot snippet against the given interpreter and
// parses the output into a model.Interpreter.
//
// A probe failure is a missing-dependency error: an interpreter that
// exists but cannot execute a trivial -c snippet is as unusable as an
// absent one.
func Probe(ctx context.Context, runner shell.Runner, executable string) (model.Interpreter, error) {
	result, err := runner.Run(ctx, executable, "-c", probeSnippet)
	if err != nil {
		return model.Interpreter{}, model.WrapCLIError(model.KindMissingDependency,
			fmt.Sprintf("failed to probe Python interpreter %s", executable), err)
	}

	interp, err := parseProbeOutput(executable, result.Stdout)
	if err != nil {
		return model.Interpreter{}, model.WrapCLIError(model.KindMissingDependency,
			fmt.Sprintf("unexpected probe output from %s", executable), err)
	}
	return interp, nil
}

// parseProbeOutput converts the five-line probe output into an
// Interpreter. Split out from Probe so the parser is testable without
// a subprocess.
func parseProbeOutput(executable, output string) (model.Interpreter, error) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 5 {
		return model.Interpreter{}, fmt.Errorf("expected 5 lines, got %d", len(lines))
	}

	nums := make([]int, 3)
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(lines[i]))
		if err != nil {
			return model.Interpreter{}, fmt.Errorf("line %d is not a number: %q", i+1, lines[i])
		}
		nums[i] = n
	}

	return model.Interpreter{
		Executable: executable,
		Major:      nums[0],
		Minor:      nums[1],
		Micro:      nums[2],
		Prefix:     strings.TrimSpace(lines[3]),
		BasePrefix: strings.TrimSpace(lines[4]),
	}, nil
}

// DetectIsolation produces the isolation verdict for the probed
// interpreter. The verdict is the logical OR of two independent signals:
//
//	(a) sys.prefix differs from sys.base_prefix (venv/virtualenv), and
//	(b) the conda marker variable is present and non-empty.
//
// getenv is injected (typically os.Getenv) so the detector stays pure.
// No side effects; call it fresh for every run.
func DetectIsolation(interp model.Interpreter, getenv func(string) string) model.EnvVerdict {
	if interp.Prefix != "" && interp.BasePrefix != "" && interp.Prefix != interp.BasePrefix {
		return model.EnvVerdict{Isolated: true, Signal: model.SignalPrefix}
	}
	if strings.TrimSpace(getenv(CondaMarkerVar)) != "" {
		return model.EnvVerdict{Isolated: true, Signal: model.SignalCondaMarker}
	}
	return model.EnvVerdict{Isolated: false, Signal: model.SignalNone}
}

// CheckVersion enforces the minimum interpreter version. It is a hard
// precondition: a failure terminates the whole run with no recovery path.
// The detected version is included in the error so the user sees what
// was found, not just what was required.
func CheckVersion(interp model.Interpreter, minMajor, minMinor int) error {
	if interp.AtLeast(minMajor, minMinor) {
		return nil
	}
	return model.NewCLIError(model.KindPrecondition,
		fmt.Sprintf("PennyLane requires Python %d.%d+; found %s at %s",
			minMajor, minMinor, interp.Version(), interp.Executable))
}
