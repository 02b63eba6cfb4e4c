package bridge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/logging"
	"docbridge/internal/provider"
)

func TestWriteReadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testCases := []struct {
		name string
		loc  location.Location
		size int
		max  uint64
	}{
		{"managed exact max", f.doc(t, "card.mcd"), 128, 128},
		{"managed unbounded", f.doc(t, "big.bin"), 3*1024*1024 + 7, 0},
		{"direct one byte", location.Direct(filepath.Join(f.dir, "one.bin")), 1, 1},
		{"direct spanning chunks", location.Direct(filepath.Join(f.dir, "chunks.bin")), 1024*1024 + 1, 2 * 1024 * 1024},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xA5, 0x5A, 0x01}, tc.size/3+1)[:tc.size]
			if err := f.bridge.WriteAll(ctx, tc.loc, data); err != nil {
				t.Fatalf("WriteAll error: %v", err)
			}
			got, err := f.bridge.ReadAll(ctx, tc.loc, tc.max)
			if err != nil {
				t.Fatalf("ReadAll error: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
			}
		})
	}
}

func TestWriteTruncatesPreviousContent(t *testing.T) {
	f := newFixture(t)
	loc := f.doc(t, "save.sav")
	if !f.boundary.WriteAll(loc.String(), []byte("long previous content")) {
		t.Fatalf("first write failed")
	}
	if !f.boundary.WriteAll(loc.String(), []byte("short")) {
		t.Fatalf("second write failed")
	}
	if got := f.boundary.ReadAll(loc.String(), 0); string(got) != "short" {
		t.Fatalf("content = %q", got)
	}
}

func TestEmptyDocumentReadsAsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := f.doc(t, "empty.bin")
	if err := f.bridge.WriteAll(ctx, loc, nil); err != nil {
		t.Fatalf("empty WriteAll should succeed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "empty.bin")); err != nil {
		t.Fatalf("empty write must create the document: %v", err)
	}
	for _, max := range []uint64{0, 1, 1 << 20} {
		if _, err := f.bridge.ReadAll(ctx, loc, max); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("ReadAll(max=%d) on empty document = %v, want ErrNotFound", max, err)
		}
		if data := f.boundary.ReadAll(loc.String(), max); data != nil {
			t.Fatalf("boundary ReadAll(max=%d) = %v, want nil", max, data)
		}
	}
}

func TestOversizeReadIsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "ten.bin", "0123456789")
	loc := f.doc(t, "ten.bin")

	if _, err := f.bridge.ReadAll(ctx, loc, 9); !errors.Is(err, apperrors.ErrSizeExceeded) {
		t.Fatalf("ReadAll(max=9) = %v, want ErrSizeExceeded", err)
	}
	if data := f.boundary.ReadAll(loc.String(), 9); data != nil {
		t.Fatalf("oversize read must not be truncated, got %q", data)
	}
	if data := f.boundary.ReadAll(loc.String(), 10); string(data) != "0123456789" {
		t.Fatalf("ReadAll(max=10) = %q", data)
	}
}

func TestReadMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testCases := []location.Location{
		f.doc(t, "missing.bin"),
		location.Direct(filepath.Join(f.dir, "missing.bin")),
		location.Document("com.example.unknown", "x:y"),
	}
	for _, loc := range testCases {
		if _, err := f.bridge.ReadAll(ctx, loc, 0); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("ReadAll(%s) = %v, want ErrNotFound", loc, err)
		}
	}
	if f.boundary.ReadAll("", 0) != nil {
		t.Fatalf("empty location must read as absent")
	}
}

func TestWriteToUnknownAuthority(t *testing.T) {
	f := newFixture(t)
	err := f.bridge.WriteAll(context.Background(), location.Document("com.example.unknown", "x"), []byte("x"))
	if !errors.Is(err, apperrors.ErrNotFound) || !errors.Is(err, apperrors.ErrUnknownAuthority) {
		t.Fatalf("WriteAll = %v", err)
	}
}

func TestDeleteDirect(t *testing.T) {
	f := newFixture(t)
	sub := filepath.Join(f.dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	file := f.write(t, "file.bin", "x")

	if f.boundary.Delete(sub) {
		t.Fatalf("deleting a directory must return false")
	}
	if fi, err := os.Stat(sub); err != nil || !fi.IsDir() {
		t.Fatalf("directory must survive: %v", err)
	}
	if !f.boundary.Delete(file) {
		t.Fatalf("deleting a regular file must succeed")
	}
	if f.boundary.Delete(file) {
		t.Fatalf("deleting a missing file must return false")
	}
}

func TestDeleteManaged(t *testing.T) {
	f := newFixture(t)
	f.write(t, "sub/x.bin", "x")
	if !f.boundary.Delete(f.doc(t, "sub").String()) {
		t.Fatalf("managed delete of a directory document should succeed")
	}
	if f.boundary.Delete(f.doc(t, "sub").String()) {
		t.Fatalf("second delete must report no rows")
	}

	f.fake.contents["doc1"] = []byte("x")
	loc := location.Document(fakeAuthority, "doc1").String()
	if !f.boundary.Delete(loc) || f.boundary.Delete(loc) {
		t.Fatalf("fake delete should succeed exactly once")
	}
	if f.boundary.Delete("content:///broken") {
		t.Fatalf("malformed location must not delete")
	}
}

func TestDisplayName(t *testing.T) {
	f := newFixture(t)
	f.write(t, "games/disc.cue", "x")

	name, ok := f.boundary.DisplayName(f.doc(t, "games/disc.cue").String())
	if !ok || name != "disc.cue" {
		t.Fatalf("managed DisplayName = %q, %v", name, ok)
	}
	name, ok = f.boundary.DisplayName(filepath.Join(f.dir, "games"))
	if !ok || name != "games" {
		t.Fatalf("direct DisplayName = %q, %v", name, ok)
	}
	if _, ok := f.boundary.DisplayName(f.doc(t, "nope").String()); ok {
		t.Fatalf("missing document must have no display name")
	}

	f.fake.rows["nameless"] = provider.Row{DocumentID: "nameless"}
	_, err := f.bridge.DisplayName(context.Background(), location.Document(fakeAuthority, "nameless"))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("empty display name column = %v, want ErrNotFound", err)
	}
}

func TestStatAndExists(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bios/scph1001.bin", "0123")

	sd, ok := f.boundary.Stat(f.doc(t, "bios/scph1001.bin").String())
	if !ok || sd.Size != 4 || sd.Attributes != 0 || sd.ModifiedTime == 0 {
		t.Fatalf("Stat = %+v, %v", sd, ok)
	}
	if !f.boundary.FileExists(f.doc(t, "bios/scph1001.bin").String()) {
		t.Fatalf("FileExists false for a file")
	}
	if f.boundary.FileExists(f.doc(t, "bios").String()) {
		t.Fatalf("FileExists true for a directory")
	}
	if !f.boundary.DirectoryExists(filepath.Join(f.dir, "bios")) {
		t.Fatalf("DirectoryExists false for a directory")
	}
	if f.boundary.DirectoryExists(f.doc(t, "missing").String()) {
		t.Fatalf("DirectoryExists true for a missing document")
	}
}

func TestReadString(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "bom.txt", "\xef\xbb\xbfhello")
	f.write(t, "bad.txt", "\xff\xfe")

	s, err := f.bridge.ReadString(ctx, f.doc(t, "bom.txt"), 0)
	if err != nil || s != "hello" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	if _, err := f.bridge.ReadString(ctx, f.doc(t, "bad.txt"), 0); !errors.Is(err, apperrors.ErrReadFailure) {
		t.Fatalf("invalid UTF-8 = %v, want ErrReadFailure", err)
	}
	if _, ok := f.boundary.ReadString(f.doc(t, "bad.txt").String(), 0); ok {
		t.Fatalf("boundary ReadString must fail on invalid UTF-8")
	}
}

func TestBoundaryRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer logging.Replace(zap.New(core))()

	f := newFixture(t)
	f.fake.panicOpen = true
	loc := location.Document(fakeAuthority, "any").String()

	if data := f.boundary.ReadAll(loc, 0); data != nil {
		t.Fatalf("ReadAll after panic = %v", data)
	}
	if f.boundary.WriteAll(loc, []byte("x")) {
		t.Fatalf("WriteAll after panic reported success")
	}
	if fd := f.boundary.OpenDescriptor(loc, "r"); fd != InvalidDescriptor {
		t.Fatalf("OpenDescriptor after panic = %d", fd)
	}
	if n := logs.FilterMessage("panic in bridge operation").Len(); n != 3 {
		t.Fatalf("expected 3 logged panics, got %d", n)
	}

	// The bridge stays usable.
	f.write(t, "ok.bin", "ok")
	if got := f.boundary.ReadAll(f.doc(t, "ok.bin").String(), 0); string(got) != "ok" {
		t.Fatalf("ReadAll after recovered panic = %q", got)
	}
}

func TestBoundaryLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer logging.Replace(zap.New(core))()

	f := newFixture(t)
	f.boundary.ReadAll(f.doc(t, "missing").String(), 0)
	f.boundary.ReadAll("ftp://host/x", 0)

	if logs.FilterMessage("bridge operation returned no result").Len() != 1 {
		t.Fatalf("missing document should log once at debug")
	}
	warned := logs.FilterMessage("bridge operation failed").All()
	if len(warned) != 1 || warned[0].Level != zapcore.WarnLevel {
		t.Fatalf("malformed location should log a warning, got %v", warned)
	}
}

func TestLeafNameBoundary(t *testing.T) {
	bd := NewBoundary(New(nil))
	if got := bd.LeafName("content://x/tree/1%3Asub%2Ffile.bin"); got != "file.bin" {
		t.Fatalf("LeafName = %q", got)
	}
	if got := bd.LeafName("/a/b/"); got != "/a/b/" {
		t.Fatalf("LeafName = %q", got)
	}
}

func TestCopyAcrossProviders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.contents["remote.mcd"] = []byte("memory card")
	dst := f.doc(t, "cards/local.mcd")
	if err := os.MkdirAll(filepath.Join(f.dir, "cards"), 0o755); err != nil {
		t.Fatal(err)
	}

	n, err := f.bridge.Copy(ctx, location.Document(fakeAuthority, "remote.mcd"), dst)
	if err != nil || n != int64(len("memory card")) {
		t.Fatalf("Copy = %d, %v", n, err)
	}
	if got := f.boundary.ReadAll(dst.String(), 0); string(got) != "memory card" {
		t.Fatalf("copied content = %q", got)
	}

	if _, err := f.bridge.Copy(ctx, f.doc(t, "missing"), dst); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("Copy from missing = %v, want ErrNotFound", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := f.bridge.Copy(canceled, dst, location.Direct(filepath.Join(f.dir, "c.mcd"))); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled Copy = %v", err)
	}
}

func TestCopyOntoItselfKeepsContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host := f.write(t, "saves/slot1.sav", "precious save data")

	testCases := []struct {
		name     string
		src, dst location.Location
	}{
		{"same managed location", f.doc(t, "saves/slot1.sav"), f.doc(t, "saves/slot1.sav")},
		{"same direct path", location.Direct(host), location.Direct(host)},
		{"uncleaned direct path", location.Direct(host), location.Direct(f.dir + "/saves/./slot1.sav")},
		{"managed and direct", f.doc(t, "saves/slot1.sav"), location.Direct(host)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := f.bridge.Copy(ctx, tc.src, tc.dst)
			if !errors.Is(err, apperrors.ErrWriteFailure) || n != 0 {
				t.Fatalf("Copy = %d, %v, want ErrWriteFailure", n, err)
			}
			if data, err := os.ReadFile(host); err != nil || string(data) != "precious save data" {
				t.Fatalf("content after Copy = %q, %v", data, err)
			}
		})
	}

	f.fake.contents["remote.mcd"] = []byte("card")
	remote := location.Document(fakeAuthority, "remote.mcd")
	if _, err := f.bridge.Copy(ctx, remote, remote); !errors.Is(err, apperrors.ErrWriteFailure) {
		t.Fatalf("Copy onto itself = %v", err)
	}
	if string(f.fake.contents["remote.mcd"]) != "card" {
		t.Fatalf("content after Copy = %q", f.fake.contents["remote.mcd"])
	}
}

func TestFailedCopyDiscardsStagedDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.contents["src.mcd"] = []byte("new content")
	f.fake.readErr["src.mcd"] = errors.New("connection reset")
	f.fake.contents["dst.mcd"] = []byte("old content")

	_, err := f.bridge.Copy(ctx, location.Document(fakeAuthority, "src.mcd"), location.Document(fakeAuthority, "dst.mcd"))
	if !errors.Is(err, apperrors.ErrReadFailure) {
		t.Fatalf("Copy = %v, want ErrReadFailure", err)
	}
	if got := string(f.fake.contents["dst.mcd"]); got != "old content" {
		t.Fatalf("destination after failed copy = %q", got)
	}
	if len(f.fake.aborted) != 1 || f.fake.aborted[0] != "dst.mcd" {
		t.Fatalf("aborted = %v", f.fake.aborted)
	}

	f.fake.readErr = map[string]error{}
	if _, err := f.bridge.Copy(ctx, location.Document(fakeAuthority, "src.mcd"), location.Document(fakeAuthority, "dst.mcd")); err != nil {
		t.Fatalf("Copy error: %v", err)
	}
	if got := string(f.fake.contents["dst.mcd"]); got != "new content" {
		t.Fatalf("destination after copy = %q", got)
	}
}
