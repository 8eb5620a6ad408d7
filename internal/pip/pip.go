// Package pip invokes the package installer for the in-place provisioning
// path: installing the manifest into the interpreter that is already
// active, via `<python> -m pip install <req>...`.
//
// The -m form guarantees the packages land in the probed interpreter
// rather than whatever `pip` happens to resolve first on PATH — the same
// reason the original tooling uses sys.executable.
package pip

import (
	"context"
	"fmt"

	"github.com/shinji-kodama/quantum-lab/internal/model"
	"github.com/shinji-kodama/quantum-lab/internal/shell"
)

// InstallCurrent installs the manifest into the currently active
// interpreter. The subprocess inherits stdout/stderr so pip's own
// progress output reaches the user live, matching interactive pip usage.
//
// A non-zero pip exit is terminal: no retry, no partial-install recovery.
// Whatever pip managed to install before failing stays installed —
// that is installer-level behavior, not orchestrated here.
func InstallCurrent(ctx context.Context, runner shell.StreamingRunner, interp model.Interpreter, manifest model.Manifest) error {
	args := append([]string{"-m", "pip", "install"}, manifest.Strings()...)

	if err := runner.RunStreaming(ctx, interp.Executable, args...); err != nil {
		return model.WrapCLIError(model.KindSubprocess,
			fmt.Sprintf("failed to install packages via pip (%s -m pip install)", interp.Executable), err)
	}
	return nil
}
