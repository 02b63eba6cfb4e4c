// Package local serves host filesystem paths as documents.
//
// Direct addresses documents by their filesystem path and backs direct
// locations. Tree roots a named document tree at a host directory, naming
// documents "<name>:<rel>" the way external storage providers do.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"docbridge/internal/constants"
	"docbridge/internal/provider"
)

// TypeName is the registry type of local providers.
const TypeName = "local"

// base carries the operations shared by Direct and Tree; the two differ only
// in how a document ID maps to a host path and how child IDs are formed.
type base struct {
	resolve func(id string) (string, error)
	childID func(parentID, name string) (string, error)
}

func (b base) Type() string { return TypeName }

func (b base) OpenDocument(ctx context.Context, id string, mode provider.Mode) (provider.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.resolve(id)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, mode.Flag(), 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b base) QueryDocument(ctx context.Context, id string) (provider.Row, error) {
	if err := ctx.Err(); err != nil {
		return provider.Row{}, err
	}
	p, err := b.resolve(id)
	if err != nil {
		return provider.Row{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return provider.Row{}, err
	}
	return provider.RowFromFileInfo(id, fi), nil
}

func (b base) QueryChildDocuments(ctx context.Context, parentID string) (provider.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.resolve(parentID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: not a directory", p)
	}
	return &dirCursor{f: f, parentID: parentID, childID: b.childID}, nil
}

func (b base) Close() error { return nil }

// HostPath returns the host file backing id.
func (b base) HostPath(id string) (string, error) { return b.resolve(id) }

// dirCursor reads a directory in fixed-size batches.
type dirCursor struct {
	f        *os.File
	parentID string
	childID  func(parentID, name string) (string, error)
	batch    []os.DirEntry
	pos      int
	cur      os.DirEntry
	done     bool
	err      error
}

func (c *dirCursor) Next() bool {
	for {
		if c.pos < len(c.batch) {
			c.cur = c.batch[c.pos]
			c.pos++
			return true
		}
		if c.done {
			c.cur = nil
			return false
		}
		batch, err := c.f.ReadDir(constants.LocalReadDirBatch)
		c.batch, c.pos = batch, 0
		if err != nil {
			c.done = true
			if !errors.Is(err, io.EOF) {
				c.err = err
			}
		}
	}
}

func (c *dirCursor) Row() (provider.Row, error) {
	if c.cur == nil {
		return provider.Row{}, errors.New("cursor is not positioned on a row")
	}
	fi, err := c.cur.Info()
	if err != nil {
		return provider.Row{}, err
	}
	id, err := c.childID(c.parentID, c.cur.Name())
	if err != nil {
		return provider.Row{}, err
	}
	return provider.RowFromFileInfo(id, fi), nil
}

func (c *dirCursor) Err() error { return c.err }

func (c *dirCursor) Close() error { return c.f.Close() }

// Direct uses host paths as document IDs.
type Direct struct{ base }

// NewDirect returns the provider for direct locations.
func NewDirect() *Direct {
	return &Direct{base{
		resolve: func(id string) (string, error) {
			if id == "" {
				return "", errors.New("empty path")
			}
			return id, nil
		},
		childID: func(parentID, name string) (string, error) {
			return filepath.Join(parentID, name), nil
		},
	}}
}

// DeleteDocument removes id only if it is a regular file or a symlink to
// one. A symlink is removed, not its target.
func (d *Direct) DeleteDocument(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(id)
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, nil
	}
	if err := os.Remove(id); err != nil {
		return 0, err
	}
	return 1, nil
}

// Tree serves the host directory root as the document tree name.
type Tree struct {
	base
	name string
	root string
}

// TreeConfig is the configuration block of a tree provider.
type TreeConfig struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// NewTreeFromJSON creates a tree provider from a raw JSON config block.
func NewTreeFromJSON(raw json.RawMessage) (*Tree, error) {
	var cfg TreeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse local config: %w", err)
	}
	return NewTree(cfg.Name, cfg.Root)
}

// NewTree roots a document tree named name at the host directory root.
func NewTree(name, root string) (*Tree, error) {
	if name == "" {
		return nil, errors.New("tree name is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}
	t := &Tree{name: name, root: abs}
	t.base = base{resolve: t.hostPath, childID: provider.ChildPathID}
	return t, nil
}

// RootID returns the document ID of the tree root.
func (t *Tree) RootID() string { return provider.PathID(t.name, "") }

// Root returns the host directory backing the tree.
func (t *Tree) Root() string { return t.root }

func (t *Tree) hostPath(id string) (string, error) {
	name, rel, err := provider.SplitPathID(id)
	if err != nil {
		return "", err
	}
	if name != t.name {
		return "", fmt.Errorf("document %q: %w", id, fs.ErrNotExist)
	}
	return filepath.Join(t.root, filepath.FromSlash(rel)), nil
}

// DeleteDocument removes a file or a whole directory; the tree root itself
// cannot be deleted.
func (t *Tree) DeleteDocument(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := t.hostPath(id)
	if err != nil {
		return 0, err
	}
	if p == t.root {
		return 0, fmt.Errorf("document %q: cannot delete tree root", id)
	}
	fi, err := os.Lstat(p)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		err = os.RemoveAll(p)
	} else {
		err = os.Remove(p)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}
