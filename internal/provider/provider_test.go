package provider

import (
	"errors"
	"os"
	"testing"
	"time"

	"docbridge/internal/constants"
)

func TestParseMode(t *testing.T) {
	testCases := []struct {
		mode     string
		flag     int
		readOnly bool
	}{
		{"r", os.O_RDONLY, true},
		{"w", os.O_WRONLY | os.O_CREATE | os.O_TRUNC, false},
		{"wt", os.O_WRONLY | os.O_CREATE | os.O_TRUNC, false},
		{"wa", os.O_WRONLY | os.O_CREATE | os.O_APPEND, false},
		{"rw", os.O_RDWR | os.O_CREATE, false},
		{"rwt", os.O_RDWR | os.O_CREATE | os.O_TRUNC, false},
	}

	for _, tc := range testCases {
		t.Run(tc.mode, func(t *testing.T) {
			m, err := ParseMode(tc.mode)
			if err != nil {
				t.Fatalf("ParseMode(%q) error: %v", tc.mode, err)
			}
			if m.Flag() != tc.flag {
				t.Errorf("ParseMode(%q).Flag() = %#x, want %#x", tc.mode, m.Flag(), tc.flag)
			}
			if m.ReadOnly() != tc.readOnly {
				t.Errorf("ParseMode(%q).ReadOnly() = %v", tc.mode, m.ReadOnly())
			}
		})
	}

	for _, bad := range []string{"", "x", "ra", "W"} {
		if _, err := ParseMode(bad); err == nil {
			t.Errorf("ParseMode(%q) expected error", bad)
		}
	}
}

func TestSplitPathID(t *testing.T) {
	testCases := []struct {
		id   string
		root string
		rel  string
		ok   bool
	}{
		{"home:", "home", ".", true},
		{"home:games/disc.bin", "home", "games/disc.bin", true},
		{"home:games/", "home", "games", true},
		{"home:../etc", "", "", false},
		{"home:/abs", "", "", false},
		{"home:a//b", "", "", false},
		{"noroot", "", "", false},
	}
	for _, tc := range testCases {
		root, rel, err := SplitPathID(tc.id)
		if (err == nil) != tc.ok {
			t.Fatalf("SplitPathID(%q) err = %v, want ok=%v", tc.id, err, tc.ok)
		}
		if tc.ok && (root != tc.root || rel != tc.rel) {
			t.Errorf("SplitPathID(%q) = %q, %q", tc.id, root, rel)
		}
	}
}

func TestChildPathID(t *testing.T) {
	id, err := ChildPathID("home:", "a")
	if err != nil || id != "home:a" {
		t.Fatalf("ChildPathID(root) = %q, %v", id, err)
	}
	id, err = ChildPathID("home:a", "b.txt")
	if err != nil || id != "home:a/b.txt" {
		t.Fatalf("ChildPathID(nested) = %q, %v", id, err)
	}
}

func TestRowsCursor(t *testing.T) {
	rows := []Row{{DocumentID: "a"}, {DocumentID: "b"}}
	c := RowsCursor(rows)
	var got []string
	for c.Next() {
		r, err := c.Row()
		if err != nil {
			t.Fatalf("Row error: %v", err)
		}
		got = append(got, r.DocumentID)
	}
	if c.Next() {
		t.Fatalf("cursor must not restart")
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected rows %v", got)
	}
	if err := c.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestSliceCursorCloseRunsOnce(t *testing.T) {
	calls := 0
	c := NewSliceCursor(1, func(int) (Row, error) { return Row{}, errors.New("bad row") }, func() error {
		calls++
		return nil
	})
	if !c.Next() {
		t.Fatalf("expected one entry")
	}
	if _, err := c.Row(); err == nil {
		t.Fatalf("expected per-row error")
	}
	_ = c.Close()
	_ = c.Close()
	if calls != 1 {
		t.Fatalf("close hook ran %d times", calls)
	}
}

func TestRowHelpers(t *testing.T) {
	if MimeTypeFor("x", true) != constants.MimeTypeDirectory {
		t.Fatalf("directory mime mismatch")
	}
	if MimeTypeFor("blob.unknownext", false) != "application/octet-stream" {
		t.Fatalf("unknown extension should fall back to octet-stream")
	}
	if !(Row{MimeType: constants.MimeTypeDirectory}).IsDirectory() {
		t.Fatalf("IsDirectory false for directory row")
	}
	if Millis(time.Time{}) != 0 {
		t.Fatalf("zero time should map to 0")
	}
	ts := time.UnixMilli(1700000000123)
	if Millis(ts) != 1700000000123 {
		t.Fatalf("Millis = %d", Millis(ts))
	}
}
