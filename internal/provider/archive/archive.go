// Package archive serves the contents of an archive file (zip, tar, 7z and
// the other formats mholt/archives identifies) as a read-only document tree.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/provider"
)

// TypeName is the registry type of archive providers.
const TypeName = "archive"

// Config is the provider configuration block.
type Config struct {
	// Path is the archive file on the host.
	Path string `json:"path"`
	// Name is the root segment of document IDs; defaults to the file name
	// without extension.
	Name string `json:"name,omitempty"`
}

// Provider exposes one archive. Document IDs are "<name>:<rel>".
type Provider struct {
	name string
	fsys fs.FS
}

// New opens the archive at cfg.Path.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Path == "" {
		return nil, errors.New("archive provider requires a path")
	}
	fsys, err := archives.FileSystem(ctx, cfg.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", cfg.Path, err)
	}
	name := cfg.Name
	if name == "" {
		base := filepath.Base(cfg.Path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return NewWithFS(name, fsys), nil
}

// NewFromJSON opens the archive named by a raw JSON config block.
func NewFromJSON(ctx context.Context, raw json.RawMessage) (*Provider, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse archive config: %w", err)
	}
	return New(ctx, cfg)
}

// NewWithFS serves an already opened file system under name.
func NewWithFS(name string, fsys fs.FS) *Provider {
	return &Provider{name: name, fsys: fsys}
}

func (p *Provider) Type() string { return TypeName }

// RootID returns the document ID of the archive root.
func (p *Provider) RootID() string { return provider.PathID(p.name, "") }

func (p *Provider) fsPath(id string) (string, error) {
	name, rel, err := provider.SplitPathID(id)
	if err != nil {
		return "", err
	}
	if name != p.name {
		return "", fmt.Errorf("document %q: %w", id, fs.ErrNotExist)
	}
	return rel, nil
}

func (p *Provider) OpenDocument(ctx context.Context, id string, mode provider.Mode) (provider.Document, error) {
	if !mode.ReadOnly() {
		return nil, fmt.Errorf("open mode %s: %w", mode, apperrors.ErrUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := p.fsPath(id)
	if err != nil {
		return nil, err
	}
	f, err := p.fsys.Open(rel)
	if err != nil {
		return nil, err
	}
	return readOnly{f}, nil
}

func (p *Provider) QueryDocument(ctx context.Context, id string) (provider.Row, error) {
	if err := ctx.Err(); err != nil {
		return provider.Row{}, err
	}
	rel, err := p.fsPath(id)
	if err != nil {
		return provider.Row{}, err
	}
	if rel == "." {
		return provider.Row{DocumentID: id, DisplayName: p.name, MimeType: constants.MimeTypeDirectory}, nil
	}
	fi, err := fs.Stat(p.fsys, rel)
	if err != nil {
		return provider.Row{}, err
	}
	row := provider.RowFromFileInfo(id, fi)
	row.DisplayName = path.Base(rel)
	return row, nil
}

func (p *Provider) QueryChildDocuments(ctx context.Context, parentID string) (provider.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := p.fsPath(parentID)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(p.fsys, rel)
	if err != nil {
		return nil, err
	}
	return provider.NewSliceCursor(len(entries), func(i int) (provider.Row, error) {
		fi, err := entries[i].Info()
		if err != nil {
			return provider.Row{}, err
		}
		id, err := provider.ChildPathID(parentID, entries[i].Name())
		if err != nil {
			return provider.Row{}, err
		}
		return provider.RowFromFileInfo(id, fi), nil
	}, nil), nil
}

// DeleteDocument always fails; archives are served read-only.
func (p *Provider) DeleteDocument(ctx context.Context, id string) (int, error) {
	return 0, fmt.Errorf("delete %s: %w", id, apperrors.ErrUnsupported)
}

func (p *Provider) Close() error {
	if c, ok := p.fsys.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

type readOnly struct{ fs.File }

func (readOnly) Write([]byte) (int, error) {
	return 0, fmt.Errorf("write: %w", apperrors.ErrUnsupported)
}
