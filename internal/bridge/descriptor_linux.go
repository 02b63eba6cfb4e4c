//go:build linux

package bridge

import (
	"os"

	"golang.org/x/sys/unix"
)

func newSnapshotFile() (*os.File, error) {
	fd, err := unix.MemfdCreate("docbridge-snapshot", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("memfd_create", err)
	}
	return os.NewFile(uintptr(fd), "memfd:docbridge-snapshot"), nil
}
