package provision

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/quantum-lab/internal/conda"
	"github.com/shinji-kodama/quantum-lab/internal/config"
	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/python"
	"github.com/shinji-kodama/quantum-lab/internal/script"
	"github.com/shinji-kodama/quantum-lab/internal/shell/shelltest"
)

// systemInterp is a probed snapshot of a plain system interpreter:
// equal prefixes, modern version.
func systemInterp() model.Interpreter {
	return model.Interpreter{
		Executable: "/usr/bin/python3",
		Major:      3, Minor: 12, Micro: 4,
		Prefix:     "/usr",
		BasePrefix: "/usr",
	}
}

// venvInterp is a probed snapshot of an interpreter inside a venv:
// diverging prefixes.
func venvInterp() model.Interpreter {
	i := systemInterp()
	i.Prefix = "/home/u/.venvs/lab"
	return i
}

// newTestProvisioner builds a Provisioner over a recording runner, a
// fixed environment map, and a temp working directory.
func newTestProvisioner(t *testing.T, env map[string]string, condaPresent bool) (*Provisioner, *shelltest.RecordingRunner) {
	t.Helper()

	runner := shelltest.NewRecordingRunner()
	p := &Provisioner{
		Runner:         runner,
		Getenv:         func(key string) string { return env[key] },
		CondaAvailable: func() bool { return condaPresent },
		WorkDir:        t.TempDir(),
		Out:            io.Discard,
		Config:         config.Default(),
	}
	return p, runner
}

// scriptExists reports whether the verification script was emitted into
// the provisioner's working directory.
func scriptExists(p *Provisioner) bool {
	_, err := os.Stat(filepath.Join(p.WorkDir, script.FileName))
	return err == nil
}

// TestRunCurrentEnvPath verifies the isolated path: exactly one
// subprocess invocation (in-place pip), never the conda path, script
// emitted afterwards.
func TestRunCurrentEnvPath(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, true)

	report, err := p.Run(context.Background(), venvInterp())
	require.NoError(t, err)

	require.Len(t, runner.Calls, 1, "exactly one subprocess invocation")
	call := runner.Calls[0]
	assert.Equal(t, "/usr/bin/python3", call.Name)
	assert.Equal(t, []string{"-m", "pip", "install",
		"pennylane>=0.38", "pennylane-qiskit", "numpy>=2.3.5", "stim", "matplotlib", "jupyter"},
		call.Args)
	assert.Empty(t, runner.CallsFor("conda"), "conda path must never be invoked")

	assert.Equal(t, PathCurrentEnv, report.Path)
	assert.Equal(t, model.SignalPrefix, report.Verdict.Signal)
	assert.Empty(t, report.EnvName)
	assert.Empty(t, report.ActivationHint)
	assert.True(t, scriptExists(p), "script should be emitted after install")
}

// TestRunCondaMarkerCountsAsIsolated verifies that the conda marker
// variable alone routes to the in-place path.
func TestRunCondaMarkerCountsAsIsolated(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{python.CondaMarkerVar: "base"}, true)

	report, err := p.Run(context.Background(), systemInterp())
	require.NoError(t, err)

	assert.Equal(t, PathCurrentEnv, report.Path)
	assert.Equal(t, model.SignalCondaMarker, report.Verdict.Signal)
	assert.Empty(t, runner.CallsFor("conda"))
}

// TestRunCondaEnvPath verifies the fallback path: exactly two
// invocations — create, then install-within-env — then script emission,
// with the activation hint in the report.
func TestRunCondaEnvPath(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, true)

	report, err := p.Run(context.Background(), systemInterp())
	require.NoError(t, err)

	calls := runner.CallsFor("conda")
	require.Len(t, runner.Calls, 2, "exactly two subprocess invocations")
	require.Len(t, calls, 2)

	assert.Equal(t, []string{"create", "-n", "pennylane_lab", "python=3.13", "-y"}, calls[0].Args)
	assert.Equal(t, []string{"run", "-n", "pennylane_lab", "pip", "install",
		"pennylane>=0.38", "pennylane-qiskit", "numpy>=2.3.5", "stim", "matplotlib", "jupyter"},
		calls[1].Args)

	assert.Equal(t, PathNewCondaEnv, report.Path)
	assert.Equal(t, "pennylane_lab", report.EnvName)
	assert.Equal(t, "conda activate pennylane_lab", report.ActivationHint)
	assert.True(t, scriptExists(p))
}

// TestRunVersionGateFailure verifies that an interpreter below 3.10
// aborts before ANY installer invocation and emits no script, on both
// branches.
func TestRunVersionGateFailure(t *testing.T) {
	old := systemInterp()
	old.Minor = 9

	oldVenv := venvInterp()
	oldVenv.Minor = 9

	tests := []struct {
		name   string
		interp model.Interpreter
	}{
		{"system interpreter", old},
		{"venv interpreter", oldVenv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, runner := newTestProvisioner(t, map[string]string{}, true)

			_, err := p.Run(context.Background(), tt.interp)
			require.Error(t, err)

			var cliErr *model.CLIError
			require.ErrorAs(t, err, &cliErr)
			assert.Equal(t, model.KindPrecondition, cliErr.Kind)
			assert.Empty(t, runner.Calls, "no subprocess may run after a failed gate")
			assert.False(t, scriptExists(p), "no script on failure")
		})
	}
}

// TestRunCondaMissing verifies the missing-manager path: zero
// create/install invocations, a missing-dependency error carrying the
// two remediations, no script.
func TestRunCondaMissing(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, false)

	_, err := p.Run(context.Background(), systemInterp())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindMissingDependency, cliErr.Kind)
	assert.Contains(t, cliErr.Error(), "venv")
	assert.Contains(t, cliErr.Error(), "Miniconda")

	assert.Empty(t, runner.Calls, "no creation or install invocations")
	assert.False(t, scriptExists(p))
}

// TestRunCreateFailure verifies that a failed `conda create` aborts the
// run before the install-within-env call and emits no script.
func TestRunCreateFailure(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, true)
	runner.Stub("conda", shelltest.Response{
		Stderr: "CondaHTTPError: connection failed",
		Err:    errors.New("exit status 1"),
	})

	_, err := p.Run(context.Background(), systemInterp())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindSubprocess, cliErr.Kind)

	require.Len(t, runner.Calls, 1, "install-within-env must not run after a failed create")
	assert.False(t, scriptExists(p))
}

// TestRunCreateEnvExists verifies that a name collision is surfaced as
// the classified ErrEnvExists failure.
func TestRunCreateEnvExists(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, true)
	runner.Stub("conda", shelltest.Response{
		Stderr: "prefix already exists: /opt/conda/envs/pennylane_lab",
		Err:    errors.New("exit status 1"),
	})

	_, err := p.Run(context.Background(), systemInterp())
	require.Error(t, err)
	assert.True(t, errors.Is(err, conda.ErrEnvExists))
	assert.False(t, scriptExists(p))
}

// TestRunDetectorDisagreement verifies the formerly silent branch: the
// detector flips to "isolated" between branch selection and environment
// creation. This must be an explicit internal-consistency error, not a
// silent no-op.
func TestRunDetectorDisagreement(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, true)

	// First evaluation sees no marker; every later one sees an active
	// conda session, as if the environment changed mid-run.
	evaluations := 0
	p.Getenv = func(key string) string {
		if key != python.CondaMarkerVar {
			return ""
		}
		evaluations++
		if evaluations == 1 {
			return ""
		}
		return "base"
	}

	_, err := p.Run(context.Background(), systemInterp())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindInternal, cliErr.Kind)
	assert.Empty(t, runner.Calls, "neither create nor install may run")
	assert.False(t, scriptExists(p), "no script on the disagreement branch")
}

// TestRunScriptIdenticalAcrossPaths verifies that both install routes
// emit byte-identical scripts, and that a re-run overwrites rather than
// appends.
func TestRunScriptIdenticalAcrossPaths(t *testing.T) {
	current, _ := newTestProvisioner(t, map[string]string{}, true)
	_, err := current.Run(context.Background(), venvInterp())
	require.NoError(t, err)

	condaPath, _ := newTestProvisioner(t, map[string]string{}, true)
	_, err = condaPath.Run(context.Background(), systemInterp())
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(current.WorkDir, script.FileName))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(condaPath.WorkDir, script.FileName))
	require.NoError(t, err)
	assert.Equal(t, a, b, "script bytes must not depend on the path taken")

	// Re-run in the same directory: the file is replaced, not grown.
	_, err = current.Run(context.Background(), venvInterp())
	require.NoError(t, err)
	again, err := os.ReadFile(filepath.Join(current.WorkDir, script.FileName))
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

// TestRunCustomConfig verifies that a non-default configuration flows
// through to the command lines: env name, target version, and manifest.
func TestRunCustomConfig(t *testing.T) {
	p, runner := newTestProvisioner(t, map[string]string{}, true)
	p.Config = config.Config{
		EnvName:        "qlab-ws25",
		MinPythonMajor: 3,
		MinPythonMinor: 10,
		TargetPython:   "3.12",
		Packages:       model.Manifest{"pennylane==0.39"},
	}

	report, err := p.Run(context.Background(), systemInterp())
	require.NoError(t, err)

	calls := runner.CallsFor("conda")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"create", "-n", "qlab-ws25", "python=3.12", "-y"}, calls[0].Args)
	assert.Equal(t, []string{"run", "-n", "qlab-ws25", "pip", "install", "pennylane==0.39"}, calls[1].Args)
	assert.Equal(t, "conda activate qlab-ws25", report.ActivationHint)
}
