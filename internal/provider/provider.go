// Package provider defines the document provider contract the bridge talks to.
//
// A provider exposes a tree of opaque document IDs instead of real paths.
// Implementations live in sub-packages (local, smb, s3, archive); the
// registry routes an authority to one of them.
package provider

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"path"
	"time"

	"docbridge/internal/constants"
)

// Provider is the minimal surface every document provider implements.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Type returns the provider type identifier ("local", "smb", "s3", "archive").
	Type() string

	// OpenDocument opens a document for streamed I/O in the given mode.
	// Providers backed by the host filesystem return an *os.File.
	OpenDocument(ctx context.Context, documentID string, mode Mode) (Document, error)

	// QueryDocument returns the metadata row of one document.
	QueryDocument(ctx context.Context, documentID string) (Row, error)

	// QueryChildDocuments lists the children of a directory document.
	// The caller must Close the cursor.
	QueryChildDocuments(ctx context.Context, parentDocumentID string) (Cursor, error)

	// DeleteDocument removes a document and reports how many rows were affected.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Document is an open document stream. Read-only documents fail Write and
// write-only documents fail Read.
type Document interface {
	io.Reader
	io.Writer
	io.Closer
}

// Aborter is implemented by documents that commit their content on Close.
// Abort releases the document and discards everything written to it.
type Aborter interface {
	Abort() error
}

// HostPather is implemented by providers whose documents are host files.
type HostPather interface {
	HostPath(documentID string) (string, error)
}

// Discard releases doc without committing writes: Abort when doc supports
// it, Close otherwise.
func Discard(doc Document) error {
	if a, ok := doc.(Aborter); ok {
		return a.Abort()
	}
	return doc.Close()
}

// Row is one document's metadata, the projection used by queries:
// document ID, display name, MIME type, size and modification time.
type Row struct {
	DocumentID   string
	DisplayName  string
	MimeType     string
	Size         int64
	LastModified int64 // epoch milliseconds
}

// IsDirectory reports whether the row's MIME type denotes a directory.
func (r Row) IsDirectory() bool { return r.MimeType == constants.MimeTypeDirectory }

// RowFromFileInfo builds a row for providers that list with fs.FileInfo.
func RowFromFileInfo(documentID string, fi fs.FileInfo) Row {
	return Row{
		DocumentID:   documentID,
		DisplayName:  fi.Name(),
		MimeType:     MimeTypeFor(fi.Name(), fi.IsDir()),
		Size:         fi.Size(),
		LastModified: Millis(fi.ModTime()),
	}
}

// MimeTypeFor guesses a MIME type from a file name extension.
func MimeTypeFor(name string, dir bool) string {
	if dir {
		return constants.MimeTypeDirectory
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Millis converts a timestamp to epoch milliseconds; the zero time maps to 0.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
