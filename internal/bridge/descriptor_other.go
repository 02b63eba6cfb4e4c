//go:build !unix

package bridge

import (
	"errors"
	"os"
)

var errNoDescriptors = errors.New("raw descriptors are not available on this platform")

func detach(f *os.File) (Descriptor, error) {
	f.Close()
	return InvalidDescriptor, errNoDescriptors
}

func newSnapshotFile() (*os.File, error) {
	return nil, errNoDescriptors
}
