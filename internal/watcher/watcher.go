// Package watcher reports changes below a location by polling the tree
// enumerator and diffing successive snapshots.
package watcher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"docbridge/internal/bridge"
	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/logging"
	"docbridge/internal/metrics"
)

// ChangeEvent classifies a change.
type ChangeEvent int

const (
	ChangeFileAdded ChangeEvent = iota + 1
	ChangeFileRemoved
	ChangeFileModified
)

func (e ChangeEvent) String() string {
	switch e {
	case ChangeFileAdded:
		return "added"
	case ChangeFileRemoved:
		return "removed"
	case ChangeFileModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change is one detected difference. Result is the newest known state of
// the document; for removals it is the last state seen.
type Change struct {
	Event  ChangeEvent
	Result bridge.FindResult
}

// Finder is the part of the bridge the notifier polls.
type Finder interface {
	FindFiles(ctx context.Context, root location.Location, flags bridge.FindFlags) ([]bridge.FindResult, error)
}

// ChangeNotifier watches the tree a root location belongs to.
type ChangeNotifier struct {
	finder   Finder
	root     location.Location
	flags    bridge.FindFlags
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex // protects previous
	previous map[string]bridge.FindResult

	pending  chan []Change
	stopChan chan struct{}
	done     sync.WaitGroup
	running  bool
}

// NewChangeNotifier creates a notifier for root. recursive selects whether
// descendants of subdirectories are watched. A zero interval uses the
// default polling interval.
func NewChangeNotifier(finder Finder, root location.Location, recursive bool, interval time.Duration) *ChangeNotifier {
	flags := bridge.FindFiles | bridge.FindFolders
	if recursive {
		flags |= bridge.FindRecursive
	}
	if interval <= 0 {
		interval = constants.WatcherInterval
	}
	return &ChangeNotifier{
		finder:   finder,
		root:     root,
		flags:    flags,
		interval: interval,
		logger:   logging.Named("watcher"),
		previous: make(map[string]bridge.FindResult),
		pending:  make(chan []Change, constants.WatcherBufferSize),
	}
}

// Start takes the initial snapshot and begins polling until Stop or until
// ctx is done.
func (cn *ChangeNotifier) Start(ctx context.Context) error {
	if cn.running {
		return nil
	}
	current, err := cn.snapshot(ctx)
	if err != nil {
		return apperrors.NewWatcherError("start", cn.root.String(), "initial snapshot failed", err)
	}
	cn.mu.Lock()
	cn.previous = current
	cn.mu.Unlock()

	cn.running = true
	cn.stopChan = make(chan struct{})
	stop := cn.stopChan
	ticker := time.NewTicker(cn.interval)
	cn.done.Add(1)
	go func() {
		defer cn.done.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cn.checkForChanges(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop ends polling. Changes already detected remain available to
// EnumerateChanges.
func (cn *ChangeNotifier) Stop() {
	if !cn.running {
		return
	}
	cn.running = false
	close(cn.stopChan)
	cn.done.Wait()
}

// EnumerateChanges hands every pending change to cb in detection order and
// returns how many were delivered. It never blocks.
func (cn *ChangeNotifier) EnumerateChanges(cb func(Change)) int {
	n := 0
	for {
		select {
		case batch := <-cn.pending:
			for _, c := range batch {
				cb(c)
				n++
			}
		default:
			return n
		}
	}
}

// snapshot enumerates the watched tree. An empty tree is an empty snapshot,
// not an error; a root that could not be listed is.
func (cn *ChangeNotifier) snapshot(ctx context.Context) (map[string]bridge.FindResult, error) {
	results, err := cn.finder.FindFiles(ctx, cn.root, cn.flags)
	if err != nil && (!errors.Is(err, apperrors.ErrNoResults) || errors.Is(err, apperrors.ErrRootUnavailable)) {
		return nil, err
	}
	current := make(map[string]bridge.FindResult, len(results))
	for _, r := range results {
		current[r.Location] = r
	}
	return current, nil
}

// checkForChanges polls once and queues what changed. The stored snapshot
// only advances when the batch was queued, so a full queue delays changes
// instead of losing them.
func (cn *ChangeNotifier) checkForChanges(ctx context.Context) {
	current, err := cn.snapshot(ctx)
	if err != nil {
		cn.logger.Debug("poll failed", logging.Location(cn.root.String()), zap.Error(err))
		return
	}
	changes := cn.detectChanges(current)
	if len(changes) == 0 {
		return
	}

	select {
	case cn.pending <- changes:
		cn.mu.Lock()
		cn.previous = current
		cn.mu.Unlock()
		for _, c := range changes {
			metrics.RecordWatcherChange(c.Event.String())
		}
	default:
		cn.logger.Debug("change queue full, retrying next poll", zap.Int("changes", len(changes)))
	}
}

// detectChanges compares current with the stored snapshot. Changes are
// grouped as added, removed, modified and sorted by location in each group.
func (cn *ChangeNotifier) detectChanges(current map[string]bridge.FindResult) []Change {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	var added, removed, modified []Change
	for loc, r := range current {
		prev, ok := cn.previous[loc]
		switch {
		case !ok:
			added = append(added, Change{Event: ChangeFileAdded, Result: r})
		case prev.Size != r.Size || prev.ModifiedTime != r.ModifiedTime:
			modified = append(modified, Change{Event: ChangeFileModified, Result: r})
		}
	}
	for loc, r := range cn.previous {
		if _, ok := current[loc]; !ok {
			removed = append(removed, Change{Event: ChangeFileRemoved, Result: r})
		}
	}

	changes := make([]Change, 0, len(added)+len(removed)+len(modified))
	for _, group := range [][]Change{added, removed, modified} {
		sort.Slice(group, func(i, j int) bool { return group[i].Result.Location < group[j].Result.Location })
		changes = append(changes, group...)
	}
	return changes
}
