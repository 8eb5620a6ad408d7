package conda

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/shell/shelltest"
)

// TestCreateEnv verifies the exact creation argument shape:
// `conda create -n <name> python=<version> -y`.
func TestCreateEnv(t *testing.T) {
	runner := shelltest.NewRecordingRunner()

	err := CreateEnv(context.Background(), runner, "pennylane_lab", "3.13")
	require.NoError(t, err)

	require.Len(t, runner.Calls, 1)
	call := runner.Calls[0]
	assert.Equal(t, "conda", call.Name)
	assert.Equal(t, []string{"create", "-n", "pennylane_lab", "python=3.13", "-y"}, call.Args)
	assert.False(t, call.Streaming, "creation output is captured for stderr classification")
}

// TestCreateEnvFailure verifies that a generic creation failure is wrapped
// as a subprocess-kind error without the ErrEnvExists marker.
func TestCreateEnvFailure(t *testing.T) {
	runner := shelltest.NewRecordingRunner()
	runner.Stub("conda", shelltest.Response{
		Stderr: "CondaHTTPError: connection failed",
		Err:    errors.New("exit status 1"),
	})

	err := CreateEnv(context.Background(), runner, "pennylane_lab", "3.13")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindSubprocess, cliErr.Kind)
	assert.False(t, errors.Is(err, ErrEnvExists))
}

// TestCreateEnvAlreadyExists verifies the name-collision classification:
// conda's "already exists" stderr is surfaced as ErrEnvExists with a
// remediation hint, while the behavior itself stays conda's.
func TestCreateEnvAlreadyExists(t *testing.T) {
	runner := shelltest.NewRecordingRunner()
	runner.Stub("conda", shelltest.Response{
		Stderr: "CondaSystemExit: prefix already exists: /opt/conda/envs/pennylane_lab",
		Err:    errors.New("exit status 1"),
	})

	err := CreateEnv(context.Background(), runner, "pennylane_lab", "3.13")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnvExists), "collision should carry ErrEnvExists")
	assert.Contains(t, err.Error(), "conda env remove -n pennylane_lab")
}

// TestInstallPackages verifies the run-within-env installer shape:
// `conda run -n <name> pip install <req>...`.
func TestInstallPackages(t *testing.T) {
	runner := shelltest.NewRecordingRunner()
	manifest := model.Manifest{"pennylane>=0.38", "matplotlib", "jupyter"}

	err := InstallPackages(context.Background(), runner, "pennylane_lab", manifest)
	require.NoError(t, err)

	require.Len(t, runner.Calls, 1)
	call := runner.Calls[0]
	assert.Equal(t, "conda", call.Name)
	assert.Equal(t, []string{"run", "-n", "pennylane_lab", "pip", "install",
		"pennylane>=0.38", "matplotlib", "jupyter"}, call.Args)
	assert.True(t, call.Streaming, "installer output should stream to the user")
}

// TestInstallPackagesFailure verifies failure semantics identical to the
// in-place path: subprocess-kind error, single invocation, no retry.
func TestInstallPackagesFailure(t *testing.T) {
	runner := shelltest.NewRecordingRunner()
	runner.Stub("conda", shelltest.Response{Err: errors.New("exit status 1")})

	err := InstallPackages(context.Background(), runner, "pennylane_lab", model.Manifest{"stim"})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindSubprocess, cliErr.Kind)
	assert.Len(t, runner.Calls, 1)
}

// TestActivationHint verifies the post-setup instruction format.
func TestActivationHint(t *testing.T) {
	assert.Equal(t, "conda activate pennylane_lab", ActivationHint("pennylane_lab"))
}

// TestIsEnvExists covers the stderr phrasings across conda releases.
func TestIsEnvExists(t *testing.T) {
	assert.True(t, isEnvExists("prefix already exists: /opt/conda/envs/lab"))
	assert.True(t, isEnvExists("CondaValueError: The environment 'lab' already exists"))
	assert.False(t, isEnvExists("CondaHTTPError: connection failed"))
	assert.False(t, isEnvExists(""))
}
