// Package cli — export.go implements the "qlab export" command.
//
// Export renders the effective configuration as a conda environment.yml,
// so the same lab environment can be recreated with plain
// `conda env create -f environment.yml` on machines where qlab is not
// installed, or checked into a course repository.
//
// The emitted file mirrors what the setup command does: a pinned Python,
// pip, and the package manifest installed through pip (NOT as conda
// packages — keeping the install method identical to both setup paths).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/quantum-lab/internal/config"
	"github.com/shinji-kodama/quantum-lab/internal/model"
)

// condaEnvironment is the environment.yml document structure, serialized
// via yaml.v3. Dependencies mixes plain strings ("python=3.13", "pip")
// with the nested pip requirement map, which is how conda's own exports
// look.
type condaEnvironment struct {
	Name         string        `yaml:"name"`
	Channels     []string      `yaml:"channels"`
	Dependencies []interface{} `yaml:"dependencies"`
}

// exportFlags holds the flag values for the export command.
type exportFlags struct {
	output string // --output: target path, "-" for stdout
}

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a conda environment.yml for the lab environment",
		Long: `Write a conda environment.yml equivalent to what setup provisions:
the pinned Python version, pip, and the package manifest installed via pip.

Examples:
  qlab export
  qlab export --output lab-env.yml
  qlab export --output -`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "environment.yml",
		"Output path (\"-\" for stdout)")

	return cmd
}

// runExport loads the effective config, renders the YAML document, and
// writes it to the chosen destination, overwriting an existing file.
func runExport(flags *exportFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	data, err := renderEnvironmentYAML(cfg)
	if err != nil {
		return err
	}

	if flags.output == "-" {
		fmt.Print(string(data))
		return nil
	}

	if err := os.WriteFile(flags.output, data, 0o644); err != nil {
		return model.WrapCLIError(model.KindInternal,
			fmt.Sprintf("failed to write %s", flags.output), err)
	}

	if !IsJSONOutput() {
		fmt.Printf("[+] Wrote %s (env %q, %d packages)\n",
			flags.output, cfg.EnvName, len(cfg.Packages))
	}
	return nil
}

// renderEnvironmentYAML builds the environment.yml bytes for the config.
// Split out from runExport so the document shape is testable without
// touching the filesystem.
func renderEnvironmentYAML(cfg config.Config) ([]byte, error) {
	env := condaEnvironment{
		Name:     cfg.EnvName,
		Channels: []string{"defaults"},
		Dependencies: []interface{}{
			"python=" + cfg.TargetPython,
			"pip",
			map[string][]string{"pip": cfg.Packages.Strings()},
		},
	}

	data, err := yaml.Marshal(env)
	if err != nil {
		return nil, model.WrapCLIError(model.KindInternal,
			"failed to render environment.yml", err)
	}
	return data, nil
}
