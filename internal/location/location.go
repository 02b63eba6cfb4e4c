// Package location parses and builds the caller-visible addresses of the
// bridge. A Location is either a direct filesystem path (optionally a file:
// URI) or a managed content: URI naming a document inside a provider tree.
package location

import (
	"net/url"
	"strings"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
)

// Kind tags which address space a Location belongs to.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindDirect
	KindManaged
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindManaged:
		return "managed"
	default:
		return "invalid"
	}
}

// Location is an immutable reference to a storage object. Two locations are
// equal when their encoded strings are equal.
//
// Direct locations carry a filesystem path. Managed locations carry the
// provider authority and the decoded path segments of the URI, e.g.
// content://auth/tree/<tree>/document/<doc> has segments
// [tree, <tree>, document, <doc>].
type Location struct {
	kind      Kind
	raw       string
	path      string
	authority string
	segments  []string
}

// Parse classifies s and decodes its scheme-specific payload.
func Parse(s string) (Location, error) {
	if s == "" {
		return Location{}, apperrors.NewLocationError("parse", s, "empty location", nil)
	}

	scheme, ok := schemeOf(s)
	if !ok {
		return Direct(s), nil
	}

	switch strings.ToLower(scheme) {
	case constants.SchemeFile:
		u, err := url.Parse(s)
		if err != nil {
			return Location{}, apperrors.NewLocationError("parse", s, "invalid file uri", err)
		}
		if u.Path == "" {
			return Location{}, apperrors.NewLocationError("parse", s, "file uri without path", nil)
		}
		return Location{kind: KindDirect, raw: s, path: u.Path}, nil
	case constants.SchemeContent:
		u, err := url.Parse(s)
		if err != nil {
			return Location{}, apperrors.NewLocationError("parse", s, "invalid content uri", err)
		}
		if u.Host == "" {
			return Location{}, apperrors.NewLocationError("parse", s, "content uri without authority", nil)
		}
		segs, err := splitSegments(u.EscapedPath())
		if err != nil {
			return Location{}, apperrors.NewLocationError("parse", s, "invalid path encoding", err)
		}
		return Location{kind: KindManaged, raw: s, authority: u.Host, segments: segs}, nil
	default:
		return Location{}, apperrors.NewLocationError("parse", s, "unsupported scheme "+scheme, nil)
	}
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Location {
	loc, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// Direct returns a direct location for a filesystem path.
func Direct(path string) Location {
	return Location{kind: KindDirect, raw: path, path: path}
}

// Tree returns the managed location of a granted tree root.
func Tree(authority, treeDocumentID string) Location {
	return managed(authority, constants.PathTree, treeDocumentID)
}

// Document returns a managed location addressing a document outside any tree.
func Document(authority, documentID string) Location {
	return managed(authority, constants.PathDocument, documentID)
}

// DocumentUsingTree returns the location of documentID under the tree that
// tree belongs to.
func DocumentUsingTree(tree Location, documentID string) (Location, error) {
	treeID, err := tree.TreeDocumentID()
	if err != nil {
		return Location{}, err
	}
	return managed(tree.authority, constants.PathTree, treeID, constants.PathDocument, documentID), nil
}

// ChildDocumentsUsingTree returns the query location listing the children of
// parentDocumentID under the tree that tree belongs to.
func ChildDocumentsUsingTree(tree Location, parentDocumentID string) (Location, error) {
	treeID, err := tree.TreeDocumentID()
	if err != nil {
		return Location{}, err
	}
	return managed(tree.authority, constants.PathTree, treeID,
		constants.PathDocument, parentDocumentID, constants.PathChildren), nil
}

func managed(authority string, segments ...string) Location {
	var b strings.Builder
	b.WriteString(constants.SchemeContent)
	b.WriteString("://")
	b.WriteString(authority)
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(Encode(seg))
	}
	return Location{kind: KindManaged, raw: b.String(), authority: authority, segments: segments}
}

// Kind reports the address space of the location.
func (l Location) Kind() Kind { return l.kind }

// IsZero reports whether l is the zero Location.
func (l Location) IsZero() bool { return l.kind == KindInvalid }

// String returns the encoded form.
func (l Location) String() string { return l.raw }

// Equal compares encoded forms.
func (l Location) Equal(o Location) bool { return l.raw == o.raw }

// Path returns the filesystem path of a direct location, or "".
func (l Location) Path() string { return l.path }

// Authority returns the provider authority of a managed location, or "".
func (l Location) Authority() string { return l.authority }

// IsTree reports whether l was derived from a tree grant.
func (l Location) IsTree() bool {
	return l.kind == KindManaged && len(l.segments) >= 2 && l.segments[0] == constants.PathTree
}

// TreeDocumentID returns the document ID of the tree root l belongs to.
func (l Location) TreeDocumentID() (string, error) {
	if !l.IsTree() {
		return "", apperrors.NewLocationError("tree_document_id", l.raw, "not a tree location", nil)
	}
	return l.segments[1], nil
}

// DocumentID returns the document l addresses.
func (l Location) DocumentID() (string, error) {
	if l.kind == KindManaged {
		if l.IsTree() && len(l.segments) >= 4 && l.segments[2] == constants.PathDocument {
			return l.segments[3], nil
		}
		if len(l.segments) >= 2 && l.segments[0] == constants.PathDocument {
			return l.segments[1], nil
		}
	}
	return "", apperrors.NewLocationError("document_id", l.raw, "not a document location", nil)
}

// schemeOf returns the URI scheme of s if it has one. Single-letter schemes
// are treated as drive letters, not schemes.
func schemeOf(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			return s[:i], i > 1
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return "", false
}

// splitSegments splits an escaped URI path into decoded, non-empty segments.
func splitSegments(escaped string) ([]string, error) {
	parts := strings.Split(escaped, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		dec, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		segs = append(segs, dec)
	}
	return segs, nil
}
