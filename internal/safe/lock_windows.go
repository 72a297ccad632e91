//go:build windows
// +build windows

package safe

import (
	"os"
	"syscall"

	"github.com/Microsoft/go-winio"
)

// fileLock mirrors lock_unix.go's semantics using LockFileEx, the
// same way the teacher splits socket handling by GOOS
// (socket_unix.go / socket_windows.go).
type fileLock struct {
	f *os.File
}

func lockFile(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	if err := winio.LockFileEx(syscall.Handle(f.Fd()), winio.LOCKFILE_EXCLUSIVE_LOCK|winio.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &winio.Overlapped{}); err != nil {
		f.Close()
		return nil, ErrSafeLocked
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	winio.UnlockFileEx(syscall.Handle(l.f.Fd()), 0, 1, 0, &winio.Overlapped{})
	return l.f.Close()
}
