package bridge

import (
	"context"
	"io"
	"os"
	"time"

	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
)

// Descriptor is a raw OS file descriptor owned by the caller once returned.
// It has no finalizer; the bridge never closes or reads it after export.
type Descriptor int

// InvalidDescriptor is returned when no descriptor could be exported.
const InvalidDescriptor Descriptor = -1

// Valid reports whether d refers to an exported descriptor.
func (d Descriptor) Valid() bool { return d >= 0 }

// OpenDescriptor opens loc in mode ("r", "w", "wt", "wa", "rw", "rwt") and
// transfers the underlying descriptor to the caller.
//
// Documents served from the host filesystem are detached: the descriptor is
// duplicated and the bridge's wrapper closed. Other documents can only be
// exported read-only, as an anonymous in-memory copy of their content.
func (b *Bridge) OpenDescriptor(ctx context.Context, loc location.Location, mode string) (fd Descriptor, err error) {
	defer observe("open_descriptor", time.Now(), &err)

	m, err := provider.ParseMode(mode)
	if err != nil {
		return InvalidDescriptor, apperrors.NewDescriptorError("open_descriptor", loc.String(), "invalid mode", err)
	}
	p, doc, err := b.openDocument(ctx, loc, m)
	if err != nil {
		return InvalidDescriptor, apperrors.NewDescriptorError("open_descriptor", loc.String(), "open failed", err)
	}

	if f, ok := doc.(*os.File); ok {
		fd, err := detach(f)
		if err != nil {
			return InvalidDescriptor, apperrors.NewDescriptorError("open_descriptor", loc.String(), "detach failed", err)
		}
		metrics.RecordDescriptorExport("detach")
		return fd, nil
	}
	if !m.ReadOnly() {
		provider.Discard(doc)
		return InvalidDescriptor, apperrors.NewDescriptorError("open_descriptor", loc.String(),
			"provider "+p.Type()+" has no file descriptors for writing", apperrors.ErrUnsupported)
	}
	defer doc.Close()
	fd, err = snapshot(doc)
	if err != nil {
		return InvalidDescriptor, apperrors.NewDescriptorError("open_descriptor", loc.String(), "snapshot failed", err)
	}
	metrics.RecordDescriptorExport("snapshot")
	return fd, nil
}

// snapshot copies r into an anonymous file and exports it positioned at 0.
func snapshot(r io.Reader) (Descriptor, error) {
	f, err := newSnapshotFile()
	if err != nil {
		return InvalidDescriptor, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return InvalidDescriptor, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return InvalidDescriptor, err
	}
	return detach(f)
}
