package bridge

import (
	"context"
	"errors"
	"image"

	"go.uber.org/zap"

	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/logging"
)

// Boundary is the surface native callers see. Locations are plain strings,
// failures become absent results (nil, false, -1) and are logged, and no
// error or panic escapes a call.
type Boundary struct {
	bridge *Bridge
	ctx    context.Context
}

// NewBoundary wraps bridge for callers without a context of their own.
func NewBoundary(bridge *Bridge) *Boundary {
	return &Boundary{bridge: bridge, ctx: context.Background()}
}

// WithContext returns a copy of the boundary whose calls run under ctx.
func (bd *Boundary) WithContext(ctx context.Context) *Boundary {
	return &Boundary{bridge: bd.bridge, ctx: ctx}
}

// ReadAll returns the content of loc, or nil when it is missing, empty,
// larger than maxSize (0 = unbounded) or unreadable.
func (bd *Boundary) ReadAll(loc string, maxSize uint64) (data []byte) {
	defer bd.guard("read_all", loc, func() { data = nil })
	l, ok := bd.parse("read_all", loc)
	if !ok {
		return nil
	}
	data, err := bd.bridge.ReadAll(bd.ctx, l, maxSize)
	if err != nil {
		bd.fail("read_all", loc, err)
		return nil
	}
	return data
}

// ReadString is ReadAll for UTF-8 text.
func (bd *Boundary) ReadString(loc string, maxSize uint64) (s string, ok bool) {
	defer bd.guard("read_string", loc, func() { s, ok = "", false })
	l, ok := bd.parse("read_string", loc)
	if !ok {
		return "", false
	}
	s, err := bd.bridge.ReadString(bd.ctx, l, maxSize)
	if err != nil {
		bd.fail("read_string", loc, err)
		return "", false
	}
	return s, true
}

// WriteAll replaces the content of loc with data.
func (bd *Boundary) WriteAll(loc string, data []byte) (ok bool) {
	defer bd.guard("write_all", loc, func() { ok = false })
	l, ok := bd.parse("write_all", loc)
	if !ok {
		return false
	}
	if err := bd.bridge.WriteAll(bd.ctx, l, data); err != nil {
		bd.fail("write_all", loc, err)
		return false
	}
	return true
}

// Delete removes loc; see Bridge.Delete.
func (bd *Boundary) Delete(loc string) (ok bool) {
	defer bd.guard("delete", loc, func() { ok = false })
	l, ok := bd.parse("delete", loc)
	if !ok {
		return false
	}
	ok, err := bd.bridge.Delete(bd.ctx, l)
	if err != nil {
		bd.fail("delete", loc, err)
		return false
	}
	return ok
}

// DisplayName returns the display name of loc.
func (bd *Boundary) DisplayName(loc string) (name string, ok bool) {
	defer bd.guard("display_name", loc, func() { name, ok = "", false })
	l, ok := bd.parse("display_name", loc)
	if !ok {
		return "", false
	}
	name, err := bd.bridge.DisplayName(bd.ctx, l)
	if err != nil {
		bd.fail("display_name", loc, err)
		return "", false
	}
	return name, true
}

// Stat returns the metadata of loc.
func (bd *Boundary) Stat(loc string) (sd StatData, ok bool) {
	defer bd.guard("stat", loc, func() { sd, ok = StatData{}, false })
	l, ok := bd.parse("stat", loc)
	if !ok {
		return StatData{}, false
	}
	sd, err := bd.bridge.Stat(bd.ctx, l)
	if err != nil {
		bd.fail("stat", loc, err)
		return StatData{}, false
	}
	return sd, true
}

// FileExists reports whether loc is an existing non-directory document.
func (bd *Boundary) FileExists(loc string) bool {
	sd, ok := bd.Stat(loc)
	return ok && sd.Attributes&AttributeDirectory == 0
}

// DirectoryExists reports whether loc is an existing directory.
func (bd *Boundary) DirectoryExists(loc string) bool {
	sd, ok := bd.Stat(loc)
	return ok && sd.Attributes&AttributeDirectory != 0
}

// LoadImage decodes the image at loc, or returns nil.
func (bd *Boundary) LoadImage(loc string) (img image.Image) {
	defer bd.guard("load_image", loc, func() { img = nil })
	l, ok := bd.parse("load_image", loc)
	if !ok {
		return nil
	}
	img, err := bd.bridge.LoadImage(bd.ctx, l)
	if err != nil {
		bd.fail("load_image", loc, err)
		return nil
	}
	return img
}

// LeafName returns the last path component of s; see location.LeafName.
func (bd *Boundary) LeafName(s string) (leaf string) {
	defer bd.guard("leaf_name", s, func() { leaf = s })
	return location.LeafName(s)
}

// OpenDescriptor exports a raw descriptor for loc, or InvalidDescriptor.
func (bd *Boundary) OpenDescriptor(loc, mode string) (fd Descriptor) {
	defer bd.guard("open_descriptor", loc, func() { fd = InvalidDescriptor })
	l, ok := bd.parse("open_descriptor", loc)
	if !ok {
		return InvalidDescriptor
	}
	fd, err := bd.bridge.OpenDescriptor(bd.ctx, l, mode)
	if err != nil {
		bd.fail("open_descriptor", loc, err)
		return InvalidDescriptor
	}
	return fd
}

// FindFiles enumerates the tree root belongs to, returning nil when nothing
// was found.
func (bd *Boundary) FindFiles(root string, flags FindFlags) []FindResult {
	return bd.Find(root, FindOptions{Flags: flags})
}

// Find is FindFiles with a name pattern.
func (bd *Boundary) Find(root string, opts FindOptions) (results []FindResult) {
	defer bd.guard("find_files", root, func() { results = nil })
	l, ok := bd.parse("find_files", root)
	if !ok {
		return nil
	}
	results, err := bd.bridge.Find(bd.ctx, l, opts)
	if err != nil {
		bd.fail("find_files", root, err)
		return nil
	}
	return results
}

// FindFilesInto stores the results of FindFiles in *dst. Unless flags has
// FindKeepArray, *dst is emptied first. It reports whether anything was found.
func (bd *Boundary) FindFilesInto(dst *[]FindResult, root string, flags FindFlags) bool {
	if dst == nil {
		bd.fail("find_files", root, errors.New("nil result slice"))
		return false
	}
	if !flags.Has(FindKeepArray) {
		*dst = (*dst)[:0]
	}
	results := bd.FindFiles(root, flags)
	*dst = append(*dst, results...)
	return len(results) > 0
}

func (bd *Boundary) parse(op, loc string) (location.Location, bool) {
	l, err := location.Parse(loc)
	if err != nil {
		bd.fail(op, loc, err)
		return location.Location{}, false
	}
	return l, true
}

// fail logs an error that is about to be turned into an absent result.
// Expected outcomes (missing documents, empty enumerations) log at debug.
func (bd *Boundary) fail(op, loc string, err error) {
	fields := []zap.Field{zap.String("operation", op), logging.Location(loc), zap.Error(err)}
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrNoResults) {
		logging.Debug("bridge operation returned no result", fields...)
		return
	}
	logging.Warn("bridge operation failed", fields...)
}

// guard must be deferred directly; it converts a panic into the absent
// result set by reset.
func (bd *Boundary) guard(op, loc string, reset func()) {
	if r := recover(); r != nil {
		logging.Error("panic in bridge operation",
			zap.String("operation", op),
			logging.Location(loc),
			zap.Any("panic", r),
			zap.Stack("stack"))
		reset()
	}
}
