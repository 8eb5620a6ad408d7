// Package cli implements the cobra-based commands for qlab.
//
// Each subcommand (setup, doctor, export, script) is defined in its own
// file within this package. This file defines the root command, the
// global flags, and the error-to-exit-code handling.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/quantum-lab/internal/model"
)

// Global flag variables shared across all subcommands, bound to cobra
// persistent flags on the root command.
var (
	// jsonOutput switches command output to structured JSON for machine
	// consumption; the default is human-readable text.
	jsonOutput bool

	// verbose enables detailed trace output on stderr.
	verbose bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package for --version output.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// Running qlab without a subcommand performs the full provisioning run,
// since that is the tool's one job; doctor/export/script are the
// supporting operations around it.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qlab",
		Short: "Provision a local PennyLane lab environment",
		Long: `qlab provisions a local Python environment for the PennyLane quantum
computing lab. It detects whether an isolated environment (venv or conda)
is already active and installs the lab's package manifest into it; when
none is active, it creates a fresh conda environment and installs there.
Every successful run emits a verify_install.py script that exercises a
minimal two-wire circuit to confirm the installation works.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically;
		// Execute formats them (text or JSON based on --json).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// Bare `qlab` runs the provisioning pipeline.
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewSetupCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewScriptCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes: zero on success,
// one on any checked failure — precondition, missing dependency,
// subprocess failure, config error, or internal inconsistency.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(string(cliErr.Kind), cliErr.Message, cliErr.Err)
			os.Exit(int(model.ExitFailure))
		}

		printError("", err.Error(), nil)
		os.Exit(int(model.ExitFailure))
	}
}

// printError outputs an error in the appropriate format. Text mode keeps
// the tool's [!!] diagnostic prefix; JSON mode emits a structured object.
// Errors always go to stderr — stdout is reserved for command output.
func printError(kind, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if inner, ok := errObj["error"].(map[string]interface{}); ok {
			if kind != "" {
				inner["kind"] = kind
			}
			if underlying != nil {
				inner["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "[!!] ERROR: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "[!!] ERROR: %s\n", message)
	}
}

// VerboseLog prints a trace message to stderr only when --verbose is set.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set. Subcommands use
// this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
