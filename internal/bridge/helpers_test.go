package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"docbridge/internal/constants"
	"docbridge/internal/location"
	"docbridge/internal/provider"
	"docbridge/internal/provider/local"
	"docbridge/internal/registry"
)

const (
	homeAuthority = "com.example.home"
	fakeAuthority = "com.example.fake"
)

// fixture is a bridge over a registry with a local tree rooted in a temp
// directory and a scripted fake provider.
type fixture struct {
	bridge   *Bridge
	boundary *Boundary
	dir      string
	tree     location.Location
	fake     *fakeProvider
	fakeTree location.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	tp, err := local.NewTree("home", dir)
	if err != nil {
		t.Fatalf("NewTree error: %v", err)
	}
	reg := registry.New(nil)
	reg.Register(homeAuthority, tp)
	fake := newFakeProvider()
	reg.Register(fakeAuthority, fake)
	t.Cleanup(func() { reg.Close() })

	b := New(reg)
	return &fixture{
		bridge:   b,
		boundary: NewBoundary(b),
		dir:      dir,
		tree:     location.Tree(homeAuthority, tp.RootID()),
		fake:     fake,
		fakeTree: location.Tree(fakeAuthority, "root"),
	}
}

// doc returns the managed location of a path below the local tree root.
func (f *fixture) doc(t *testing.T, rel string) location.Location {
	t.Helper()
	loc, err := location.DocumentUsingTree(f.tree, provider.PathID("home", rel))
	if err != nil {
		t.Fatalf("DocumentUsingTree error: %v", err)
	}
	return loc
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

// fakeChild is one scripted cursor entry.
type fakeChild struct {
	row   provider.Row
	err   error
	panic bool
}

func fakeFile(id string, size int64) fakeChild {
	return fakeChild{row: provider.Row{DocumentID: id, DisplayName: id, MimeType: "application/octet-stream", Size: size, LastModified: 1000}}
}

func fakeDir(id string) fakeChild {
	return fakeChild{row: provider.Row{DocumentID: id, DisplayName: id, MimeType: constants.MimeTypeDirectory}}
}

// fakeProvider serves scripted listings and in-memory documents that are
// not backed by OS files.
type fakeProvider struct {
	children  map[string][]fakeChild
	listErr   map[string]error
	contents  map[string][]byte
	rows      map[string]provider.Row
	readErr   map[string]error
	panicOpen bool
	deleted   []string
	cursors   []*fakeCursor
	aborted   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		children: make(map[string][]fakeChild),
		listErr:  make(map[string]error),
		contents: make(map[string][]byte),
		rows:     make(map[string]provider.Row),
		readErr:  make(map[string]error),
	}
}

func (p *fakeProvider) Type() string { return "fake" }

func (p *fakeProvider) OpenDocument(ctx context.Context, id string, mode provider.Mode) (provider.Document, error) {
	if p.panicOpen {
		panic("provider exploded")
	}
	if !mode.ReadOnly() {
		return &stagedDocument{p: p, id: id}, nil
	}
	data, ok := p.contents[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	var r io.Reader = bytes.NewReader(data)
	if err := p.readErr[id]; err != nil {
		r = io.MultiReader(io.LimitReader(r, 1), &failingReader{err: err})
	}
	return &memDocument{r: r}, nil
}

func (p *fakeProvider) QueryDocument(ctx context.Context, id string) (provider.Row, error) {
	row, ok := p.rows[id]
	if !ok {
		return provider.Row{}, os.ErrNotExist
	}
	return row, nil
}

func (p *fakeProvider) QueryChildDocuments(ctx context.Context, parentID string) (provider.Cursor, error) {
	if err := p.listErr[parentID]; err != nil {
		return nil, err
	}
	c := &fakeCursor{entries: p.children[parentID], pos: -1}
	p.cursors = append(p.cursors, c)
	return c, nil
}

func (p *fakeProvider) DeleteDocument(ctx context.Context, id string) (int, error) {
	if _, ok := p.contents[id]; !ok {
		return 0, nil
	}
	delete(p.contents, id)
	p.deleted = append(p.deleted, id)
	return 1, nil
}

func (p *fakeProvider) Close() error { return nil }

type fakeCursor struct {
	entries []fakeChild
	pos     int
	closed  bool
}

func (c *fakeCursor) Next() bool {
	c.pos++
	return c.pos < len(c.entries)
}

func (c *fakeCursor) Row() (provider.Row, error) {
	e := c.entries[c.pos]
	if e.panic {
		panic("bad row " + e.row.DocumentID)
	}
	return e.row, e.err
}

func (c *fakeCursor) Err() error   { return nil }
func (c *fakeCursor) Close() error { c.closed = true; return nil }

type memDocument struct{ r io.Reader }

func (d *memDocument) Read(b []byte) (int, error) { return d.r.Read(b) }
func (d *memDocument) Write([]byte) (int, error)  { return 0, errors.New("read-only") }
func (d *memDocument) Close() error               { return nil }

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

// stagedDocument commits its content on Close, the way object stores do.
type stagedDocument struct {
	p    *fakeProvider
	id   string
	buf  bytes.Buffer
	done bool
}

func (d *stagedDocument) Read([]byte) (int, error)    { return 0, errors.New("write-only") }
func (d *stagedDocument) Write(b []byte) (int, error) { return d.buf.Write(b) }

func (d *stagedDocument) Close() error {
	if !d.done {
		d.done = true
		d.p.contents[d.id] = append([]byte(nil), d.buf.Bytes()...)
	}
	return nil
}

func (d *stagedDocument) Abort() error {
	d.done = true
	d.p.aborted = append(d.p.aborted, d.id)
	return nil
}

func resultIDs(results []FindResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocumentID
	}
	return ids
}
