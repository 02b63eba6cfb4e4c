package provider

import (
	"fmt"
	"io/fs"
	"strings"
)

// Path-based providers (local, smb, archive) name documents "<root>:<rel>",
// where rel is a slash-separated path below the provider root and "" is the
// root itself.

// PathID joins a root name and a relative path into a document ID.
func PathID(root, rel string) string {
	if rel == "." {
		rel = ""
	}
	return root + ":" + rel
}

// SplitPathID splits a document ID into its root and validated relative path.
// The root directory is returned as ".".
func SplitPathID(id string) (root, rel string, err error) {
	i := strings.IndexByte(id, ':')
	if i < 0 {
		return "", "", fmt.Errorf("document id %q has no root", id)
	}
	root, rel = id[:i], strings.TrimSuffix(id[i+1:], "/")
	if rel == "" {
		rel = "."
	}
	if !fs.ValidPath(rel) {
		return "", "", fmt.Errorf("document id %q escapes its root", id)
	}
	return root, rel, nil
}

// ChildPathID returns the ID of name inside the directory parentID.
func ChildPathID(parentID, name string) (string, error) {
	root, rel, err := SplitPathID(parentID)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return PathID(root, name), nil
	}
	return PathID(root, rel+"/"+name), nil
}
