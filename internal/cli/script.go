// Package cli — script.go implements the "qlab script" command.
//
// It re-emits verify_install.py on its own, for when the script was
// deleted or needs refreshing without re-running the installer. The
// bytes are identical to what every successful setup run writes.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/quantum-lab/internal/script"
)

// NewScriptCommand creates the "script" cobra command.
func NewScriptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "script",
		Short: "Emit the verification script without provisioning",
		Long: `Write verify_install.py into the current directory, overwriting any
existing copy. The script builds a two-wire device, runs a minimal
parameterized circuit, and reports whether the environment works.

Examples:
  qlab script`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript()
		},
	}
}

// runScript writes the script into the working directory.
func runScript() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	path, err := script.Write(cwd)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]string{"scriptPath": path}, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("[+] Wrote %s\n", path)
		fmt.Printf("Run: python %s\n", script.FileName)
	}
	return nil
}
