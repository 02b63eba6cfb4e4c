package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
	"unicode/utf8"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
)

// ReadAll returns the full content of loc.
//
// maxSize bounds the accumulated size; 0 means unbounded. Content larger
// than maxSize fails with ErrSizeExceeded and nothing is returned. An open
// failure is ErrNotFound, a failure mid-stream is ErrReadFailure, and an
// empty document is reported as ErrNotFound.
func (b *Bridge) ReadAll(ctx context.Context, loc location.Location, maxSize uint64) (data []byte, err error) {
	defer observe("read_all", time.Now(), &err)

	_, doc, err := b.openDocument(ctx, loc, provider.ModeRead)
	if err != nil {
		return nil, apperrors.NewContentError("read_all", loc.String(), apperrors.ErrNotFound, err)
	}
	defer doc.Close()

	var buf bytes.Buffer
	chunk := make([]byte, constants.ReadBufferSize)
	for {
		n, rerr := doc.Read(chunk)
		if n > 0 {
			if maxSize > 0 && uint64(buf.Len())+uint64(n) > maxSize {
				return nil, apperrors.NewContentError("read_all", loc.String(), apperrors.ErrSizeExceeded, nil)
			}
			buf.Write(chunk[:n])
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return nil, apperrors.NewContentError("read_all", loc.String(), apperrors.ErrReadFailure, rerr)
		}
	}
	if buf.Len() == 0 {
		return nil, apperrors.NewContentError("read_all", loc.String(), apperrors.ErrNotFound, nil)
	}
	metrics.RecordRead(buf.Len())
	return buf.Bytes(), nil
}

// ReadString returns the content of loc as UTF-8 text, dropping a leading
// byte order mark. Invalid UTF-8 fails with ErrReadFailure.
func (b *Bridge) ReadString(ctx context.Context, loc location.Location, maxSize uint64) (string, error) {
	data, err := b.ReadAll(ctx, loc, maxSize)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", apperrors.NewContentError("read_string", loc.String(), apperrors.ErrReadFailure,
			errors.New("content is not valid UTF-8"))
	}
	return string(data), nil
}

// WriteAll replaces the content of loc with data, creating it if needed.
// Writing no bytes opens and closes the document and succeeds.
func (b *Bridge) WriteAll(ctx context.Context, loc location.Location, data []byte) (err error) {
	defer observe("write_all", time.Now(), &err)

	mode, err := provider.ParseMode(constants.DefaultOpenMode)
	if err != nil {
		return apperrors.NewContentError("write_all", loc.String(), apperrors.ErrWriteFailure, err)
	}
	_, doc, err := b.openDocument(ctx, loc, mode)
	if err != nil {
		return apperrors.NewContentError("write_all", loc.String(), apperrors.ErrNotFound, err)
	}
	if len(data) == 0 {
		doc.Close()
		return nil
	}

	if _, err := doc.Write(data); err != nil {
		provider.Discard(doc)
		return apperrors.NewContentError("write_all", loc.String(), apperrors.ErrWriteFailure, err)
	}
	// Some providers commit on close.
	if err := doc.Close(); err != nil {
		return apperrors.NewContentError("write_all", loc.String(), apperrors.ErrWriteFailure, err)
	}
	metrics.RecordWrite(len(data))
	return nil
}

// Delete removes loc. A direct location is removed only when it is a
// regular file; a managed location succeeds when the provider reports at
// least one affected row. The error, if any, explains a false result.
func (b *Bridge) Delete(ctx context.Context, loc location.Location) (ok bool, err error) {
	defer observe("delete", time.Now(), &err)

	p, id, err := b.resolver.Resolve(loc)
	if err != nil {
		return false, err
	}
	rows, err := p.DeleteDocument(ctx, id)
	if err != nil {
		return false, apperrors.NewProviderError("delete", loc.String(), "delete failed", err)
	}
	return rows > 0, nil
}

// DisplayName returns the provider's display name for loc, or ErrNotFound
// when the document is missing or has no name.
func (b *Bridge) DisplayName(ctx context.Context, loc location.Location) (name string, err error) {
	defer observe("display_name", time.Now(), &err)

	row, err := b.query(ctx, loc)
	if err != nil {
		return "", apperrors.NewContentError("display_name", loc.String(), apperrors.ErrNotFound, err)
	}
	if row.DisplayName == "" {
		return "", apperrors.NewContentError("display_name", loc.String(), apperrors.ErrNotFound, nil)
	}
	return row.DisplayName, nil
}

// Stat returns the metadata of loc.
func (b *Bridge) Stat(ctx context.Context, loc location.Location) (sd StatData, err error) {
	defer observe("stat", time.Now(), &err)

	row, err := b.query(ctx, loc)
	if err != nil {
		return StatData{}, apperrors.NewContentError("stat", loc.String(), apperrors.ErrNotFound, err)
	}
	return statFromRow(row), nil
}

// FileExists reports whether loc names an existing non-directory document.
func (b *Bridge) FileExists(ctx context.Context, loc location.Location) bool {
	sd, err := b.Stat(ctx, loc)
	return err == nil && sd.Attributes&AttributeDirectory == 0
}

// DirectoryExists reports whether loc names an existing directory.
func (b *Bridge) DirectoryExists(ctx context.Context, loc location.Location) bool {
	sd, err := b.Stat(ctx, loc)
	return err == nil && sd.Attributes&AttributeDirectory != 0
}

func (b *Bridge) query(ctx context.Context, loc location.Location) (provider.Row, error) {
	p, id, err := b.resolver.Resolve(loc)
	if err != nil {
		return provider.Row{}, err
	}
	return p.QueryDocument(ctx, id)
}

func statFromRow(row provider.Row) StatData {
	sd := StatData{
		Size:         clampUint(row.Size),
		ModifiedTime: clampUint(row.LastModified),
	}
	if row.IsDirectory() {
		sd.Attributes |= AttributeDirectory
	}
	return sd
}

func clampUint(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
