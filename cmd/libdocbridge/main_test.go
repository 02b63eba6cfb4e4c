//go:build cgo

package main

import (
	"context"
	"errors"
	"math"
	"testing"

	"docbridge/internal/app"
)

func TestFallbackBoundaryIsReused(t *testing.T) {
	calls := 0
	openApp = func(ctx context.Context, opts app.Options) (*app.App, error) {
		calls++
		return nil, errors.New("config unreadable")
	}
	t.Cleanup(func() {
		docbridge_shutdown()
		openApp = app.Open
	})

	first := boundary()
	second := boundary()
	if first == nil || first != second {
		t.Fatalf("fallback boundary not reused: %p, %p", first, second)
	}
	if calls != 1 {
		t.Fatalf("app opened %d times, want 1", calls)
	}
	if got := first.LeafName("/saves/slot1.sav"); got != "slot1.sav" {
		t.Fatalf("fallback LeafName = %q", got)
	}

	// A shutdown drops the fallback so the next call retries.
	docbridge_shutdown()
	boundary()
	if calls != 2 {
		t.Fatalf("app opened %d times after shutdown, want 2", calls)
	}
}

func TestGoLength(t *testing.T) {
	testCases := []struct {
		in   uint64
		want int
		ok   bool
	}{
		{0, 0, true},
		{4096, 4096, true},
		{math.MaxInt32, math.MaxInt32, true},
		{math.MaxInt32 + 1, 0, false},
		{math.MaxUint64, 0, false},
	}
	for _, tc := range testCases {
		got, ok := goLength(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("goLength(%d) = %d, %v, want %d, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
