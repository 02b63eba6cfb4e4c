//go:build unix

package bridge

import (
	"os"

	"golang.org/x/sys/unix"
)

// detach duplicates the descriptor behind f and closes f, so the copy's
// lifetime belongs to the caller alone.
func detach(f *os.File) (Descriptor, error) {
	defer f.Close()
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return InvalidDescriptor, os.NewSyscallError("dup", err)
	}
	return Descriptor(fd), nil
}
