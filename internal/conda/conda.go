// Package conda drives the conda environment manager: creating the named
// lab environment and installing the pip manifest inside it.
//
// Design decisions:
//   - Packages are installed with pip THROUGH `conda run` rather than by
//     resolving the new environment's own pip path. Locating that path
//     portably across operating systems is unreliable; `conda run -n`
//     sidesteps it and keeps the install method identical to the
//     in-place path.
//   - No idempotency handling: creating an environment whose name already
//     exists is left to conda's own conflict behavior. The failure is only
//     CLASSIFIED here (ErrEnvExists) so the user gets a targeted
//     diagnostic instead of a raw subprocess error.
package conda

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// Executable is the environment-manager binary this package drives.
const Executable = "conda"

// ErrEnvExists marks a creation failure caused by an environment of the
// same name already existing. Wrapped inside the returned CLIError;
// detect it with errors.Is.
var ErrEnvExists = errors.New("conda environment already exists")

// Available reports whether the conda executable is discoverable on the
// search path. Callers must check this before CreateEnv so the missing-
// manager case produces guidance instead of an exec failure.
func Available() bool {
	_, err := exec.LookPath(Executable)
	return err == nil
}

// MissingCondaError builds the missing-dependency error with the two
// remediations the user can act on. Kept as a constructor so the setup
// and doctor paths report identical guidance.
func MissingCondaError() *model.CLIError {
	return model.NewCLIError(model.KindMissingDependency,
		"no active virtual environment found and conda is not installed; either "+
			"(1) create and activate a venv, then re-run inside it, or "+
			"(2) install Anaconda/Miniconda")
}

// CreateEnv creates a new named conda environment pinned to the given
// Python version: `conda create -n <name> python=<version> -y`.
//
// Output is captured rather than streamed so that a failure's stderr can
// be classified — conda reports a name collision there. On success the
// captured transaction log is discarded; the caller reports progress.
func CreateEnv(ctx context.Context, runner shell.Runner, name, pythonVersion string) error {
	result, err := runner.Run(ctx, Executable,
		"create", "-n", name, "python="+pythonVersion, "-y")
	if err == nil {
		return nil
	}

	if isEnvExists(result.Stderr) {
		return model.WrapCLIError(model.KindSubprocess,
			fmt.Sprintf("conda environment %q already exists; remove it with `conda env remove -n %s` or pick another name", name, name),
			fmt.Errorf("%w: %v", ErrEnvExists, err))
	}
	return model.WrapCLIError(model.KindSubprocess,
		fmt.Sprintf("failed to create conda environment %q", name), err)
}

// isEnvExists matches the stderr phrasing conda uses for a name
// collision ("prefix already exists: ..." on current releases,
// "CondaValueError: ... already exists" on older ones).
func isEnvExists(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "already exists")
}

// InstallPackages installs the pip manifest inside the named environment:
// `conda run -n <name> pip install <req>...`. The subprocess inherits
// stdout/stderr so installer progress is visible live.
//
// Failure semantics are identical to the in-place path: a single failed
// package aborts the whole run with no recovery.
func InstallPackages(ctx context.Context, runner shell.StreamingRunner, name string, manifest model.Manifest) error {
	args := append([]string{"run", "-n", name, "pip", "install"}, manifest.Strings()...)

	if err := runner.RunStreaming(ctx, Executable, args...); err != nil {
		return model.WrapCLIError(model.KindSubprocess,
			fmt.Sprintf("failed to install packages into conda environment %q", name), err)
	}
	return nil
}

// ActivationHint returns the post-setup instruction for entering the new
// environment. The command is the same on every platform conda supports.
func ActivationHint(name string) string {
	return fmt.Sprintf("conda activate %s", name)
}
