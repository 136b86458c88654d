//go:build !windows

package bridge

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/invoicename/internal/errors"
)

// openFileNoFollowRead opens a file for reading with O_NOFOLLOW so a preview
// never follows a symlink planted at the source path. O_CLOEXEC prevents FD
// leaks across exec.
func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			e := errors.NewNotFound("file", path)
			e.Detail = MsgSourceNotFound
			return nil, e
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// isFileInUse reports whether a rename failed because another process holds the file.
func isFileInUse(err error) bool {
	return stderrors.Is(err, syscall.EBUSY) || stderrors.Is(err, syscall.ETXTBSY)
}
