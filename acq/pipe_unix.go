//go:build unix

package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Create and open the control-plane named pipe at its fixed
 *		filesystem path.
 *
 * Description:	golang.org/x/sys/unix gives a portable Mkfifo across the
 *		unix-family GOOS values this engine targets, rather than
 *		reaching for the narrower os-package-adjacent syscall
 *		package.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenControlPipe creates the named pipe at path if it doesn't already
// exist, then opens it for blocking reads. A missing/uncreatable pipe is a
// startup-fatal condition the caller should treat as such.
func OpenControlPipe(path string) (*os.File, error) {
	if err := unix.Mkfifo(path, 0o600); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("creating control pipe %q: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDONLY, os.ModeNamedPipe)
	if err != nil {
		return nil, fmt.Errorf("opening control pipe %q: %w", path, err)
	}

	return f, nil
}
