package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/logging"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
)

// FindOptions controls an enumeration.
type FindOptions struct {
	Flags FindFlags
	// Pattern, if set, is a doublestar glob matched against each child's
	// display name. It filters which results are emitted; directories are
	// still descended into when they do not match.
	Pattern string
}

// FindFiles enumerates the tree root belongs to. See Find.
func (b *Bridge) FindFiles(ctx context.Context, root location.Location, flags FindFlags) ([]FindResult, error) {
	return b.Find(ctx, root, FindOptions{Flags: flags})
}

// Find walks the document tree that root belongs to, starting at the tree's
// root document, in pre-order: each directory is emitted (with FindFolders)
// before its descendants, which are visited (with FindRecursive) before the
// next sibling. Results keep discovery order.
//
// A child that fails to decode, or a subtree whose listing fails, is skipped
// without affecting its siblings or results already collected. An
// enumeration that yields nothing fails with ErrNoResults; when the root
// listing itself failed, the error also matches ErrRootUnavailable.
func (b *Bridge) Find(ctx context.Context, root location.Location, opts FindOptions) (results []FindResult, err error) {
	defer observe("find_files", time.Now(), &err)

	treeID, err := root.TreeDocumentID()
	if err != nil {
		return nil, apperrors.NewFindError(root.String(), "not a tree location", err)
	}
	p, err := b.resolver.Provider(root)
	if err != nil {
		return nil, apperrors.NewFindError(root.String(), "no provider", err)
	}
	if opts.Pattern != "" && !doublestar.ValidatePattern(opts.Pattern) {
		return nil, apperrors.NewFindError(root.String(), fmt.Sprintf("invalid pattern %q", opts.Pattern), nil)
	}

	w := &walker{ctx: ctx, p: p, tree: root, opts: opts}
	w.walk(treeID)
	if len(w.results) == 0 {
		if w.rootErr != nil {
			return nil, apperrors.NewFindError(root.String(), "root listing failed",
				apperrors.Join(apperrors.ErrRootUnavailable, w.rootErr))
		}
		return nil, apperrors.NewFindError(root.String(), "no results", nil)
	}
	return w.results, nil
}

type walker struct {
	ctx     context.Context
	p       provider.Provider
	tree    location.Location
	opts    FindOptions
	results []FindResult
	depth   int
	rootErr error
}

// walk lists parentID and visits each child. A failed listing ends this
// subtree only.
func (w *walker) walk(parentID string) {
	w.depth++
	defer func() { w.depth-- }()

	start := time.Now()
	cursor, err := w.p.QueryChildDocuments(w.ctx, parentID)
	metrics.RecordProviderQuery(w.p.Type(), time.Since(start))
	if err != nil {
		w.listFailed(parentID, err)
		return
	}
	defer cursor.Close()

	for cursor.Next() {
		w.visit(cursor)
	}
	if err := cursor.Err(); err != nil {
		w.listFailed(parentID, err)
	}
}

func (w *walker) listFailed(parentID string, err error) {
	if w.depth == 1 {
		w.rootErr = err
	}
	w.skip(parentID, err)
}

// visit handles the child under the cursor. Any failure, including a panic
// in a provider, drops this child (and what is left of its subtree) only.
func (w *walker) visit(cursor provider.Cursor) {
	defer func() {
		if r := recover(); r != nil {
			w.skip("", fmt.Errorf("panic: %v", r))
		}
	}()

	row, err := cursor.Row()
	if err != nil {
		w.skip("", err)
		return
	}
	loc, err := location.DocumentUsingTree(w.tree, row.DocumentID)
	if err != nil {
		w.skip(row.DocumentID, err)
		return
	}

	res := FindResult{
		DocumentID:   row.DocumentID,
		Location:     loc.String(),
		Size:         clampUint(row.Size),
		ModifiedTime: clampUint(row.LastModified),
	}
	if row.IsDirectory() {
		res.Attributes = AttributeDirectory
		if w.opts.Flags.Has(FindFolders) && w.match(row.DisplayName) {
			w.emit(res)
		}
		if w.opts.Flags.Has(FindRecursive) {
			w.walk(row.DocumentID)
		}
		return
	}
	if w.opts.Flags.Has(FindFiles) && w.match(row.DisplayName) {
		w.emit(res)
	}
}

func (w *walker) match(name string) bool {
	if w.opts.Pattern == "" {
		return true
	}
	ok, err := doublestar.Match(w.opts.Pattern, name)
	return err == nil && ok
}

func (w *walker) emit(res FindResult) {
	w.results = append(w.results, res)
	metrics.RecordFindResult(res.IsDirectory())
}

func (w *walker) skip(documentID string, err error) {
	metrics.RecordFindSkipped()
	logging.Debug("find: skipping child",
		logging.Location(w.tree.String()),
		logging.String("document_id", documentID),
		logging.Err(err))
}
