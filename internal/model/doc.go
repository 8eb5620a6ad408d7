// Package model defines the domain types and value objects for the
// qlab CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (Manifest, Interpreter, EnvVerdict, etc.) are transient
// representations built from process-level probes at runtime — there are
// no persistent state files.
//
// The package also defines the error taxonomy (ErrorKind) and a custom
// error type (CLIError) that carries it, so the CLI layer can translate
// domain errors into diagnostics and OS exit codes.
package model
