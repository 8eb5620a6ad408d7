// Package script emits the verification script that exercises a minimal
// two-wire PennyLane circuit to confirm the provisioned environment works.
//
// The script is a fixed, parameter-free template bundled into the binary
// via go:embed and written verbatim. Keeping it as a standalone asset
// (rather than an inline string) separates the emitted artifact's
// evolution from the provisioner's logic: the Python file can be edited
// and reviewed as Python. Its runtime behavior — device creation, circuit
// execution, exception handling — is entirely the emitted artifact's
// concern; this package treats it as opaque text.
package script

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/quantum-lab/internal/model"
)

// FileName is the fixed name of the emitted verification script.
const FileName = "verify_install.py"

//go:embed templates/verify_install.py
var verifyTemplate []byte

// Content returns the exact bytes the emitter writes. Exposed so callers
// (and tests) can assert byte-identical emission without touching disk.
func Content() []byte {
	// Copy so callers cannot mutate the embedded asset.
	out := make([]byte, len(verifyTemplate))
	copy(out, verifyTemplate)
	return out
}

// Write emits the verification script into dir, overwriting any existing
// file at that path. Emission happens fresh on every successful
// provisioning run; the file is plain text with no metadata.
func Write(dir string) (string, error) {
	path := filepath.Join(dir, FileName)

	// 0644: a readable source file, not an executable — it is run via
	// `python verify_install.py`.
	if err := os.WriteFile(path, verifyTemplate, 0o644); err != nil {
		return "", model.WrapCLIError(model.KindInternal,
			fmt.Sprintf("failed to write %s", FileName), err)
	}
	return path, nil
}
