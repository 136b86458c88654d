//go:build windows

package bridge

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/invoicename/internal/errors"
)

// Win32 sharing and lock violations.
const (
	errorSharingViolation syscall.Errno = 32
	errorLockViolation    syscall.Errno = 33
)

// openFileNoFollowRead opens a file for reading.
// On Windows, O_NOFOLLOW is not available. Symlink attacks are less common
// on Windows due to privilege requirements for symlink creation.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			e := errors.NewNotFound("file", path)
			e.Detail = MsgSourceNotFound
			return nil, e
		}
		return nil, err
	}
	return f, nil
}

// isFileInUse reports whether a rename failed because another process holds the file.
func isFileInUse(err error) bool {
	return stderrors.Is(err, errorSharingViolation) || stderrors.Is(err, errorLockViolation)
}
