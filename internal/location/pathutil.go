package location

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// Encode percent-encodes a document ID for use as one URI path segment.
// Only ASCII letters, digits and _-!.~'()* are left as-is, so separators
// inside IDs (':' and '/') are always escaped.
func Encode(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(buf)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_-!.~'()*", c) >= 0
}

// LeafName returns the file name component of a path or location string.
// URI forms are reduced to their last decoded path segment first; then the
// text after the last '/' is returned, unless that '/' is the first or the
// last character, in which case the string is returned unchanged.
// It never fails.
func LeafName(p string) string {
	if strings.HasPrefix(p, "content:/") || strings.HasPrefix(p, "file:/") {
		if seg, ok := lastPathSegment(p); ok {
			p = seg
		}
	}

	lastSlash := strings.LastIndexByte(p, '/')
	if lastSlash > 0 && lastSlash < len(p)-1 {
		return p[lastSlash+1:]
	}
	return p
}

func lastPathSegment(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	segs, err := splitSegments(u.EscapedPath())
	if err != nil || len(segs) == 0 {
		return "", false
	}
	return segs[len(segs)-1], true
}
