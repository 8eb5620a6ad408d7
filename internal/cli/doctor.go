// Package cli — doctor.go implements the "qlab doctor" command.
//
// Doctor is a read-only diagnosis of the local toolchain: the Python
// interpreter (presence, version, isolation verdict), pip, conda, and
// Docker daemon reachability (for users who run the lab's Jupyter stack
// through a container). It never installs anything and always exits zero
// when the diagnosis itself completes — missing tools are findings, not
// failures.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/quantum-lab/internal/conda"
	"github.com/shinji-kodama/quantum-lab/internal/config"
	"github.com/shinji-kodama/quantum-lab/internal/docker"
	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/python"
	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// diagnosis is the collected doctor findings, serializable for --json.
type diagnosis struct {
	// Python holds the interpreter facts, nil when none was found.
	Python *model.Interpreter `json:"python,omitempty"`

	// PythonError explains a missing or unprobeable interpreter.
	PythonError string `json:"pythonError,omitempty"`

	// VersionOK reports whether the interpreter passes the version gate.
	VersionOK bool `json:"versionOk"`

	// Verdict is the isolation detection result.
	Verdict model.EnvVerdict `json:"verdict"`

	// PipOK reports whether `python -m pip --version` succeeds.
	PipOK bool `json:"pipOk"`

	// CondaOK reports whether the conda executable is on PATH.
	CondaOK bool `json:"condaOk"`

	// DockerOK reports whether a Docker daemon answered a ping.
	DockerOK bool `json:"dockerOk"`
}

// NewDoctorCommand creates the "doctor" cobra command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local toolchain without installing anything",
		Long: `Diagnose the local toolchain for the PennyLane lab.

Reports the Python interpreter (version, prefix, isolation), pip and
conda availability, and whether a Docker daemon is reachable. Nothing is
installed or modified.

Examples:
  qlab doctor
  qlab doctor --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

// runDoctor collects the findings and prints them.
func runDoctor(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	runner := shell.NewExecRunner()
	d := diagnosis{}

	// Python: find, probe, gate, detect.
	if executable, findErr := python.Find(); findErr != nil {
		d.PythonError = findErr.Error()
	} else if interp, probeErr := python.Probe(ctx, runner, executable); probeErr != nil {
		d.PythonError = probeErr.Error()
	} else {
		d.Python = &interp
		d.VersionOK = python.CheckVersion(interp, cfg.MinPythonMajor, cfg.MinPythonMinor) == nil
		d.Verdict = python.DetectIsolation(interp, os.Getenv)

		// pip is probed through the interpreter so the answer is about
		// THIS python, not whatever pip shadows it on PATH.
		_, pipErr := runner.Run(ctx, interp.Executable, "-m", "pip", "--version")
		d.PipOK = pipErr == nil
	}

	d.CondaOK = conda.Available()
	d.DockerOK = dockerReachable(ctx)

	printDiagnosis(cfg, d)
	return nil
}

// dockerReachable probes the Docker daemon; any failure — no socket, no
// daemon, timeout — simply reads as "not reachable".
func dockerReachable(ctx context.Context) bool {
	cli, err := docker.NewClient()
	if err != nil {
		VerboseLog("Docker client: %v", err)
		return false
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		VerboseLog("Docker ping: %v", err)
		return false
	}
	return true
}

// printDiagnosis outputs the findings in text or JSON format.
func printDiagnosis(cfg config.Config, d diagnosis) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(d, "", "  ")
		fmt.Println(string(data))
		return
	}

	if d.Python == nil {
		fmt.Printf("[!] Python:  not found (%s)\n", d.PythonError)
	} else {
		fmt.Printf("[+] Python:  %s (%s)\n", d.Python.Version(), d.Python.Executable)
		if d.VersionOK {
			fmt.Printf("[+] Version: meets minimum %d.%d\n", cfg.MinPythonMajor, cfg.MinPythonMinor)
		} else {
			fmt.Printf("[!] Version: below minimum %d.%d\n", cfg.MinPythonMajor, cfg.MinPythonMinor)
		}
		if d.Verdict.Isolated {
			fmt.Printf("[+] Env:     isolated (%s signal)\n", d.Verdict.Signal)
		} else {
			fmt.Println("[!] Env:     no isolated environment active (setup would create one)")
		}
		fmt.Println(mark(d.PipOK) + " pip:     " + okText(d.PipOK))
	}
	fmt.Println(mark(d.CondaOK) + " conda:   " + okText(d.CondaOK))
	fmt.Println(mark(d.DockerOK) + " docker:  " + okText(d.DockerOK))
}

// mark returns the [+]/[!] line prefix for a boolean finding.
func mark(ok bool) string {
	if ok {
		return "[+]"
	}
	return "[!]"
}

// okText renders a boolean finding for text output.
func okText(ok bool) string {
	if ok {
		return "available"
	}
	return "not available"
}
