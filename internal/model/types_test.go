package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequirement_Name verifies that version constraints and extras markers
// are stripped when extracting the bare package name.
func TestRequirement_Name(t *testing.T) {
	tests := []struct {
		req      Requirement
		expected string
	}{
		{"pennylane>=0.38", "pennylane"},
		{"numpy>=2.3.5", "numpy"},
		{"pennylane-qiskit", "pennylane-qiskit"},
		{"stim", "stim"},
		{"jupyter[all]", "jupyter"},
		{"matplotlib==3.9", "matplotlib"},
		{"scipy~=1.13", "scipy"},
	}

	for _, tt := range tests {
		t.Run(string(tt.req), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.Name())
		})
	}
}

// TestRequirement_Validate checks that malformed requirement strings are
// rejected while pip-style specifiers pass.
func TestRequirement_Validate(t *testing.T) {
	tests := []struct {
		req      Requirement
		hasError bool
	}{
		{"pennylane>=0.38", false},
		{"stim", false},
		{"a", false},
		{"", true},
		{"   ", true},
		{">=1.0", true}, // constraint without a name
		{"-leading-hyphen", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.req), func(t *testing.T) {
			err := tt.req.Validate()
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestManifest_Validate verifies that an empty manifest is rejected (it
// would make the installer invocation a no-op) and that a single bad
// requirement fails the whole manifest.
func TestManifest_Validate(t *testing.T) {
	assert.Error(t, Manifest{}.Validate(), "empty manifest should be invalid")

	good := Manifest{"pennylane>=0.38", "stim"}
	assert.NoError(t, good.Validate())

	bad := Manifest{"pennylane>=0.38", ""}
	assert.Error(t, bad.Validate(), "one bad requirement should fail the manifest")
}

// TestManifest_Strings verifies the manifest converts to an argument slice
// preserving order, which the install paths append verbatim.
func TestManifest_Strings(t *testing.T) {
	m := Manifest{"pennylane>=0.38", "pennylane-qiskit", "stim"}
	assert.Equal(t, []string{"pennylane>=0.38", "pennylane-qiskit", "stim"}, m.Strings())
}

// TestInterpreter_AtLeast exercises the version comparison used by the
// version gate, including the major-version boundary cases.
func TestInterpreter_AtLeast(t *testing.T) {
	tests := []struct {
		name     string
		interp   Interpreter
		major    int
		minor    int
		expected bool
	}{
		{"equal", Interpreter{Major: 3, Minor: 10}, 3, 10, true},
		{"newer minor", Interpreter{Major: 3, Minor: 13}, 3, 10, true},
		{"older minor", Interpreter{Major: 3, Minor: 9}, 3, 10, false},
		{"older major", Interpreter{Major: 2, Minor: 7}, 3, 10, false},
		{"newer major", Interpreter{Major: 4, Minor: 0}, 3, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.interp.AtLeast(tt.major, tt.minor))
		})
	}
}

// TestInterpreter_Version verifies the dotted diagnostic string.
func TestInterpreter_Version(t *testing.T) {
	interp := Interpreter{Major: 3, Minor: 13, Micro: 1}
	assert.Equal(t, "3.13.1", interp.Version())
}

// TestCLIError_Unwrap verifies that CLIError participates in Go's error
// wrapping chain, so callers can use errors.Is/errors.As on wrapped causes.
func TestCLIError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := WrapCLIError(KindSubprocess, "pip install failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindSubprocess, err.Kind)
	assert.Contains(t, err.Error(), "pip install failed")
	assert.Contains(t, err.Error(), "exit status 1")
}

// TestCLIError_WithoutCause verifies message formatting when no underlying
// error is attached.
func TestCLIError_WithoutCause(t *testing.T) {
	err := NewCLIError(KindPrecondition, "Python 3.10+ required")
	assert.Equal(t, "Python 3.10+ required", err.Error())
	assert.Nil(t, err.Unwrap())
}
