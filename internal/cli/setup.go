// Package cli — setup.go implements the "qlab setup" command, the full
// provisioning pipeline and the action behind a bare `qlab` invocation.
//
// Orchestration steps:
//  1. Load the effective configuration (defaults + optional qlab.jsonc)
//  2. Locate and probe the Python interpreter
//  3. Run the provisioner: detect isolation, gate the version, install
//     in place or create a conda environment and install into it
//  4. Emit verify_install.py and print the result (text or JSON)
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/quantum-lab/internal/config"
	"github.com/shinji-kodama/quantum-lab/internal/provision"
	"github.com/shinji-kodama/quantum-lab/internal/python"
	"github.com/shinji-kodama/quantum-lab/internal/script"
	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// NewSetupCommand creates the "setup" cobra command.
func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Provision the lab environment and emit the verification script",
		Long: `Provision the PennyLane lab environment.

If an isolated Python environment (venv or conda) is already active, the
package manifest is installed into it via pip. Otherwise a new conda
environment is created with a pinned Python version and the manifest is
installed there through 'conda run'.

Examples:
  qlab setup
  qlab setup --verbose
  qlab setup --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.Context())
		},
	}
}

// runSetup is the main orchestration function for the setup command.
func runSetup(ctx context.Context) error {
	if !IsJSONOutput() {
		printBanner()
	}

	// Step 1: Working directory — both the config file and the emitted
	// script live here.
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return err // Load already returns a CLIError with KindConfig
	}
	VerboseLog("Effective config: env=%s target=%s packages=%d",
		cfg.EnvName, cfg.TargetPython, len(cfg.Packages))

	// Step 2: Locate and probe the interpreter. The probe is the single
	// subprocess behind both detection signals and the version gate.
	executable, err := python.Find()
	if err != nil {
		return err
	}
	VerboseLog("Python interpreter: %s", executable)

	runner := shell.NewExecRunner()
	interp, err := python.Probe(ctx, runner, executable)
	if err != nil {
		return err
	}
	VerboseLog("Probed: version=%s prefix=%s basePrefix=%s",
		interp.Version(), interp.Prefix, interp.BasePrefix)

	// Step 3: Run the pipeline. Progress lines go to stdout in text
	// mode and are suppressed for --json, which expects a single object.
	p := provision.New(cfg, cwd, os.Stdout, os.Getenv)
	if IsJSONOutput() {
		p.Out = io.Discard
	}

	report, err := p.Run(ctx, interp)
	if err != nil {
		return err
	}

	// Step 4: Output.
	printSetupResult(report)
	return nil
}

// printBanner prints the run header for text mode.
func printBanner() {
	fmt.Println("=========================================")
	fmt.Println("   PennyLane Lab Setup")
	fmt.Println("=========================================")
}

// printSetupResult outputs the setup report in text or JSON format.
func printSetupResult(report *provision.Report) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println()
	switch report.Path {
	case provision.PathCurrentEnv:
		fmt.Println("[+] SETUP COMPLETE (in current environment)")
		fmt.Printf("Run: %s %s\n", report.Interpreter.Executable, script.FileName)
	case provision.PathNewCondaEnv:
		fmt.Printf("[+] SETUP COMPLETE (new conda environment %q)\n", report.EnvName)
		fmt.Printf("Run: %s\n", report.ActivationHint)
		fmt.Printf("Then: python %s\n", script.FileName)
	}
}
