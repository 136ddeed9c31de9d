//go:build !unix && !windows

package exportlog

import (
	"os"

	"github.com/wippyai/wasm-nucleus/errors"
)

func lockFile(*os.File) error {
	return errors.InvalidInput(errors.PhaseExport, "file locking is not available on this platform")
}

func unlockFile(*os.File) error {
	return nil
}
