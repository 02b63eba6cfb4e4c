package bridge

// FindFlags selects what an enumeration emits and whether it descends.
type FindFlags uint32

const (
	FindRecursive FindFlags = 1 << iota
	// FindRelativePaths is accepted for compatibility and has no effect.
	FindRelativePaths
	// FindHiddenFiles is accepted for compatibility and has no effect.
	FindHiddenFiles
	FindFolders
	FindFiles
	// FindKeepArray asks FindFilesInto to append to the caller's slice
	// instead of replacing its contents.
	FindKeepArray
)

// Has reports whether every bit of f2 is set in f.
func (f FindFlags) Has(f2 FindFlags) bool { return f&f2 == f2 }

// File attribute bits carried by FindResult and StatData.
const (
	AttributeDirectory uint32 = 1 << iota
	AttributeReadOnly
	AttributeCompressed
)

// FindResult describes one document discovered by an enumeration.
type FindResult struct {
	// DocumentID is the provider's identifier of the child.
	DocumentID string
	// Location is the managed location of the child under the enumerated tree.
	Location     string
	Size         uint64
	ModifiedTime uint64 // epoch milliseconds
	Attributes   uint32
}

// IsDirectory reports whether the result carries AttributeDirectory.
func (r FindResult) IsDirectory() bool { return r.Attributes&AttributeDirectory != 0 }

// StatData is the metadata of one location.
type StatData struct {
	Attributes   uint32
	ModifiedTime uint64 // epoch milliseconds
	Size         uint64
}
