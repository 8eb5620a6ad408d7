// Package provision implements the top-level orchestration of a setup
// run: detect isolation, gate the interpreter version, install the
// manifest (in place or through a fresh conda environment), and emit the
// verification script.
//
// Control flows one way through the states:
//
//	DETECT → (INSTALL_CURRENT | CREATE_ENV → INSTALL_NEW) → EMIT_SCRIPT
//
// with any precondition or subprocess failure terminating the run. The
// orchestrator is fully sequential and blocking; every external action is
// a subprocess routed through the injected Runner, which is what makes
// the flow assertable invocation-by-invocation in tests.
package provision

import (
	"context"
	"fmt"
	"io"

	"github.com/shinji-kodama/quantum-lab/internal/conda"
	"github.com/shinji-kodama/quantum-lab/internal/config"
	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/pip"
	"github.com/shinji-kodama/quantum-lab/internal/python"
	"github.com/shinji-kodama/quantum-lab/internal/script"
	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// Runner combines the captured and streaming subprocess facilities the
// pipeline needs. shell.ExecRunner satisfies it in production.
type Runner interface {
	shell.Runner
	shell.StreamingRunner
}

// Path names which install route a run took.
type Path string

const (
	// PathCurrentEnv means packages were installed into the already
	// active isolated environment via in-place pip.
	PathCurrentEnv Path = "current-env"

	// PathNewCondaEnv means a fresh conda environment was created and
	// packages were installed into it via `conda run`.
	PathNewCondaEnv Path = "new-conda-env"
)

// Report summarizes a successful run for the CLI's text/JSON output.
type Report struct {
	// Path is the install route taken.
	Path Path `json:"path"`

	// Verdict is the isolation detection result that chose the route.
	Verdict model.EnvVerdict `json:"verdict"`

	// Interpreter is the probed interpreter snapshot.
	Interpreter model.Interpreter `json:"interpreter"`

	// EnvName is the conda environment name; empty on the in-place path.
	EnvName string `json:"envName,omitempty"`

	// ScriptPath is where the verification script was written.
	ScriptPath string `json:"scriptPath"`

	// ActivationHint is the command to enter the new environment;
	// empty on the in-place path.
	ActivationHint string `json:"activationHint,omitempty"`
}

// Provisioner holds the injected collaborators for one setup run.
// All fields must be set; New fills in the production defaults.
type Provisioner struct {
	// Runner executes every external command.
	Runner Runner

	// Getenv reads process environment variables (os.Getenv in
	// production; a map lookup in tests).
	Getenv func(string) string

	// CondaAvailable reports whether the conda executable is on PATH.
	CondaAvailable func() bool

	// WorkDir is where the verification script is emitted.
	WorkDir string

	// Out receives user-facing progress lines.
	Out io.Writer

	// Config is the effective provisioning configuration.
	Config config.Config
}

// New creates a Provisioner wired to the real environment: exec-backed
// runner, os.Getenv, and PATH-based conda discovery.
func New(cfg config.Config, workDir string, out io.Writer, getenv func(string) string) *Provisioner {
	return &Provisioner{
		Runner:         shell.NewExecRunner(),
		Getenv:         getenv,
		CondaAvailable: conda.Available,
		WorkDir:        workDir,
		Out:            out,
		Config:         cfg,
	}
}

// Run executes the full pipeline against the probed interpreter and
// returns the report of what was done. Any returned error is terminal;
// partially created environments are not rolled back.
func (p *Provisioner) Run(ctx context.Context, interp model.Interpreter) (*Report, error) {
	verdict := python.DetectIsolation(interp, p.Getenv)

	if verdict.Isolated {
		return p.runCurrentEnv(ctx, interp, verdict)
	}
	return p.runCondaEnv(ctx, interp, verdict)
}

// runCurrentEnv is the INSTALL_CURRENT branch: the interpreter is already
// sandboxed, so the manifest goes straight into it.
func (p *Provisioner) runCurrentEnv(ctx context.Context, interp model.Interpreter, verdict model.EnvVerdict) (*Report, error) {
	p.step("Active isolated environment detected (%s).", interp.Prefix)
	p.step("Current Python: %s", interp.Version())

	if err := python.CheckVersion(interp, p.Config.MinPythonMajor, p.Config.MinPythonMinor); err != nil {
		return nil, err
	}

	p.step("Installing packages into the current environment...")
	if err := pip.InstallCurrent(ctx, p.Runner, interp, p.Config.Packages); err != nil {
		return nil, err
	}

	scriptPath, err := script.Write(p.WorkDir)
	if err != nil {
		return nil, err
	}

	return &Report{
		Path:        PathCurrentEnv,
		Verdict:     verdict,
		Interpreter: interp,
		ScriptPath:  scriptPath,
	}, nil
}

// runCondaEnv is the CREATE_ENV branch: no isolation detected, so a fresh
// conda environment is created and installed into.
//
// The version gate runs against the system interpreter first. It does not
// gate environment creation conceptually — the new environment ships its
// own pinned Python — but a failing system interpreter still aborts the
// run, matching the pipeline's fail-fast contract.
func (p *Provisioner) runCondaEnv(ctx context.Context, interp model.Interpreter, verdict model.EnvVerdict) (*Report, error) {
	p.step("No active virtual environment detected (system Python at %s).", interp.Prefix)
	p.step("Current Python: %s", interp.Version())

	if err := python.CheckVersion(interp, p.Config.MinPythonMajor, p.Config.MinPythonMinor); err != nil {
		return nil, err
	}

	created, err := p.createEnvIfNeeded(ctx, interp)
	if err != nil {
		return nil, err
	}
	if !created {
		// The detector said "not isolated" when choosing this branch but
		// "isolated" when re-evaluated before creation. The two verdicts
		// disagreeing means the process environment changed mid-run;
		// failing loudly beats silently doing nothing.
		return nil, model.NewCLIError(model.KindInternal,
			"isolation detector verdicts disagree: no environment was created and no install was performed")
	}

	p.step("Installing packages into conda environment %q...", p.Config.EnvName)
	if err := conda.InstallPackages(ctx, p.Runner, p.Config.EnvName, p.Config.Packages); err != nil {
		return nil, err
	}

	scriptPath, err := script.Write(p.WorkDir)
	if err != nil {
		return nil, err
	}

	return &Report{
		Path:           PathNewCondaEnv,
		Verdict:        verdict,
		Interpreter:    interp,
		EnvName:        p.Config.EnvName,
		ScriptPath:     scriptPath,
		ActivationHint: conda.ActivationHint(p.Config.EnvName),
	}, nil
}

// createEnvIfNeeded re-evaluates the isolation verdict (it is never
// cached — each evaluation is authoritative) and, when still not
// isolated, requires conda and creates the named environment.
//
// Returns whether a new environment was created. false with a nil error
// is the defensive re-check branch, which the caller turns into an
// internal-consistency error.
func (p *Provisioner) createEnvIfNeeded(ctx context.Context, interp model.Interpreter) (bool, error) {
	if python.DetectIsolation(interp, p.Getenv).Isolated {
		return false, nil
	}

	if !p.CondaAvailable() {
		return false, conda.MissingCondaError()
	}

	p.step("Creating conda environment %q with Python %s...", p.Config.EnvName, p.Config.TargetPython)
	if err := conda.CreateEnv(ctx, p.Runner, p.Config.EnvName, p.Config.TargetPython); err != nil {
		return false, err
	}
	return true, nil
}

// step prints a user-facing progress line in the tool's [+] style.
func (p *Provisioner) step(format string, args ...interface{}) {
	fmt.Fprintf(p.Out, "[+] "+format+"\n", args...)
}
