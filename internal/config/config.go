// Package config defines the provisioning configuration: the package
// manifest, the conda environment name, and the Python version targets.
//
// The defaults reproduce the lab's standard setup and are used verbatim
// when no config file is present. A `qlab.jsonc` file in the working
// directory may override any of them — JSONC (JSON with Comments) is
// supported via github.com/tidwall/jsonc so the file can document WHY a
// pin exists next to the pin itself.
//
// The loaded Config is an explicit immutable value passed into the
// orchestrator; nothing in this package is ambient mutable state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/quantum-lab/internal/model"
)

// FileName is the optional per-directory config file.
const FileName = "qlab.jsonc"

// Defaults for the lab environment. These are the contract surface most
// likely to need updates over time, which is exactly why they are also
// overridable from qlab.jsonc.
const (
	// DefaultEnvName is the conda environment created on the fallback path.
	DefaultEnvName = "pennylane_lab"

	// DefaultMinPythonMajor/Minor gate the running interpreter.
	// PennyLane requires Python 3.10 or newer.
	DefaultMinPythonMajor = 3
	DefaultMinPythonMinor = 10

	// DefaultTargetPython is the interpreter version pinned into newly
	// created conda environments.
	DefaultTargetPython = "3.13"
)

// DefaultManifest lists the lab's core packages. Jupyter via pip is safe
// inside venvs and conda environments alike, which keeps the two install
// paths identical.
func DefaultManifest() model.Manifest {
	return model.Manifest{
		"pennylane>=0.38",
		"pennylane-qiskit",
		"numpy>=2.3.5",
		"stim",
		"matplotlib",
		"jupyter",
	}
}

// Config is the effective provisioning configuration consumed by the
// orchestrator. Treat a loaded Config as immutable.
type Config struct {
	// EnvName is the conda environment name used on the create path.
	EnvName string `json:"envName"`

	// MinPythonMajor and MinPythonMinor define the version gate.
	MinPythonMajor int `json:"minPythonMajor"`
	MinPythonMinor int `json:"minPythonMinor"`

	// TargetPython is the version pinned into new conda environments
	// (the `python=<version>` create argument).
	TargetPython string `json:"targetPython"`

	// Packages is the ordered pip requirement manifest.
	Packages model.Manifest `json:"packages"`
}

// Default returns the built-in configuration, identical to the values
// used when no qlab.jsonc exists.
func Default() Config {
	return Config{
		EnvName:        DefaultEnvName,
		MinPythonMajor: DefaultMinPythonMajor,
		MinPythonMinor: DefaultMinPythonMinor,
		TargetPython:   DefaultTargetPython,
		Packages:       DefaultManifest(),
	}
}

// fileConfig mirrors Config with pointer fields so that an absent key in
// qlab.jsonc means "keep the default" rather than "set to zero".
type fileConfig struct {
	EnvName        *string        `json:"envName"`
	MinPythonMajor *int           `json:"minPythonMajor"`
	MinPythonMinor *int           `json:"minPythonMinor"`
	TargetPython   *string        `json:"targetPython"`
	Packages       model.Manifest `json:"packages"`
}

// Load returns the effective configuration for the given working
// directory: defaults, overlaid with qlab.jsonc when present.
// A missing file is not an error; an unreadable or invalid one is
// (KindConfig), since silently falling back to defaults would install
// the wrong manifest.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, model.WrapCLIError(model.KindConfig,
			fmt.Sprintf("failed to read %s", path), err)
	}

	// Strip JSONC comments and trailing commas, then parse with
	// encoding/json. Unknown keys are ignored, so the file can carry
	// notes for future fields without breaking older binaries.
	var fc fileConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
		return Config{}, model.WrapCLIError(model.KindConfig,
			fmt.Sprintf("failed to parse %s", path), err)
	}

	if fc.EnvName != nil {
		cfg.EnvName = *fc.EnvName
	}
	if fc.MinPythonMajor != nil {
		cfg.MinPythonMajor = *fc.MinPythonMajor
	}
	if fc.MinPythonMinor != nil {
		cfg.MinPythonMinor = *fc.MinPythonMinor
	}
	if fc.TargetPython != nil {
		cfg.TargetPython = *fc.TargetPython
	}
	if fc.Packages != nil {
		cfg.Packages = fc.Packages
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, model.WrapCLIError(model.KindConfig,
			fmt.Sprintf("invalid configuration in %s", path), err)
	}
	return cfg, nil
}

// envNameRegex constrains conda environment names to the characters that
// work everywhere conda does: alphanumerics, hyphens, underscores, dots.
var envNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// targetVersionRegex accepts "3" / "3.13" / "3.13.1" style pins.
var targetVersionRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}$`)

// Validate checks the configuration invariants. Defaults always pass;
// this guards user-supplied overrides.
func (c Config) Validate() error {
	if c.EnvName == "" {
		return fmt.Errorf("envName must not be empty")
	}
	if !envNameRegex.MatchString(c.EnvName) {
		return fmt.Errorf("invalid envName %q: use alphanumerics, dots, hyphens, underscores", c.EnvName)
	}
	if c.MinPythonMajor < 0 || c.MinPythonMinor < 0 {
		return fmt.Errorf("minimum Python version must not be negative")
	}
	if !targetVersionRegex.MatchString(c.TargetPython) {
		return fmt.Errorf("invalid targetPython %q: expected a version like \"3.13\"", c.TargetPython)
	}
	return c.Packages.Validate()
}
