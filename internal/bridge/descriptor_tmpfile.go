//go:build unix && !linux

package bridge

import "os"

// newSnapshotFile returns an already unlinked temporary file.
func newSnapshotFile() (*os.File, error) {
	f, err := os.CreateTemp("", "docbridge-snapshot-*")
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
