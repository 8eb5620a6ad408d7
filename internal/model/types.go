// Package model defines the domain types for the qlab CLI.
//
// All entities in this package represent the data flowing through the
// provisioning pipeline: the package manifest, the probed Python
// interpreter, the isolation verdict, and the error taxonomy.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is a single pip requirement string: a package name with an
// optional version constraint (e.g., "pennylane>=0.38" or "stim").
//
// Version resolution is delegated entirely to pip; this type only carries
// the string through to the installer command line.
type Requirement string

// String returns the raw requirement string. This method satisfies the
// fmt.Stringer interface for use in diagnostics and command assembly.
func (r Requirement) String() string {
	return string(r)
}

// Name returns the bare package name, stripping any version constraint.
// pip requirement specifiers start the constraint with one of >=, <=, ==,
// !=, ~=, >, <, or an extras marker "[". The name is everything before
// the first such character.
func (r Requirement) Name() string {
	s := string(r)
	if i := strings.IndexAny(s, "><=!~["); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// requirementRegex validates the leading package-name portion of a
// requirement: letters, digits, dots, hyphens, and underscores, starting
// with an alphanumeric character (per PEP 508 name grammar, simplified).
var requirementRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*`)

// Validate checks that the requirement has a well-formed package name.
// It does NOT validate version specifier syntax — pip is the authority
// on that, and a bad specifier will surface as an installer failure.
func (r Requirement) Validate() error {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return fmt.Errorf("requirement must not be empty")
	}
	if !requirementRegex.MatchString(s) {
		return fmt.Errorf("invalid requirement %q: must start with an alphanumeric package name", s)
	}
	return nil
}

// Manifest is the ordered list of pip requirements to install. It is
// defined once per run (defaults or config file) and consumed identically
// by both install paths — in-place pip and conda-run pip.
type Manifest []Requirement

// Strings returns the manifest as a plain string slice, ready to append
// to an installer argument vector.
func (m Manifest) Strings() []string {
	out := make([]string, len(m))
	for i, r := range m {
		out[i] = string(r)
	}
	return out
}

// Validate checks every requirement in the manifest and rejects an empty
// manifest, which would make the installer invocation a silent no-op.
func (m Manifest) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("package manifest must not be empty")
	}
	for _, r := range m {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Interpreter holds the facts probed from a Python interpreter in a single
// `python -c` invocation. The provisioning pipeline treats this as an
// immutable snapshot: isolation detection and the version gate are pure
// functions over it, re-probed on every run and never cached.
type Interpreter struct {
	// Executable is the resolved path of the interpreter binary.
	Executable string `json:"executable"`

	// Major, Minor, Micro are the components of sys.version_info.
	Major int `json:"major"`
	Minor int `json:"minor"`
	Micro int `json:"micro"`

	// Prefix is sys.prefix — the install prefix of the running interpreter.
	Prefix string `json:"prefix"`

	// BasePrefix is sys.base_prefix. For a venv/virtualenv interpreter it
	// differs from Prefix; for a system interpreter the two are equal.
	BasePrefix string `json:"basePrefix"`
}

// Version returns the dotted version string (e.g., "3.13.1") for
// diagnostics.
func (i Interpreter) Version() string {
	return fmt.Sprintf("%d.%d.%d", i.Major, i.Minor, i.Micro)
}

// AtLeast reports whether the interpreter version is >= major.minor.
func (i Interpreter) AtLeast(major, minor int) bool {
	if i.Major != major {
		return i.Major > major
	}
	return i.Minor >= minor
}

// IsolationSignal identifies which probe signal concluded that the
// interpreter runs inside an isolated environment.
type IsolationSignal string

const (
	// SignalNone means no isolation signal fired.
	SignalNone IsolationSignal = ""

	// SignalPrefix means sys.prefix differs from sys.base_prefix,
	// i.e. a venv/virtualenv-style environment is active.
	SignalPrefix IsolationSignal = "prefix"

	// SignalCondaMarker means the CONDA_DEFAULT_ENV marker variable is
	// present and non-empty, i.e. a conda environment is active.
	SignalCondaMarker IsolationSignal = "conda-marker"
)

// EnvVerdict is the result of isolation detection: a boolean plus the
// signal that produced it. The verdict is the logical OR of the two
// independent signals; when both fire, SignalPrefix wins as it is checked
// first (matching the probe order).
type EnvVerdict struct {
	// Isolated is true when the interpreter is already sandboxed.
	Isolated bool `json:"isolated"`

	// Signal names the probe that fired, or SignalNone.
	Signal IsolationSignal `json:"signal,omitempty"`
}

// ErrorKind classifies checked failures per the provisioner's error
// taxonomy. All kinds terminate the run with exit code 1; the kind exists
// so diagnostics and callers can distinguish WHY without parsing text.
type ErrorKind string

const (
	// KindPrecondition marks a failed hard precondition, such as the
	// interpreter version gate.
	KindPrecondition ErrorKind = "precondition"

	// KindMissingDependency marks a required external executable that
	// could not be found on the search path (python, conda).
	KindMissingDependency ErrorKind = "missing-dependency"

	// KindSubprocess marks a shelled-out command that exited non-zero.
	KindSubprocess ErrorKind = "subprocess"

	// KindConfig marks an unreadable or invalid qlab.jsonc config file.
	KindConfig ErrorKind = "config"

	// KindInternal marks an internal-consistency failure, such as the
	// detector and the creation step disagreeing about isolation.
	KindInternal ErrorKind = "internal"
)

// ExitCode defines the process exit codes. The contract is deliberately
// narrow: zero on success, one on any checked failure. Finer distinctions
// are carried by ErrorKind, not by the exit code.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates any checked failure: precondition, missing
	// dependency, subprocess failure, bad config, or internal error.
	ExitFailure ExitCode = 1
)

// CLIError is a custom error type that carries an ErrorKind.
// This allows the CLI layer to classify domain errors in diagnostics
// while mapping every failure to the same non-zero exit code.
type CLIError struct {
	// Kind classifies the failure per the error taxonomy.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given kind and message.
func NewCLIError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Kind: kind, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Kind: kind, Message: message, Err: err}
}
