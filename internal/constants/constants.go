package constants

import "time"

// Application constants
const (
	ApplicationName  = "docbridge"
	ApplicationTitle = "Document Tree Bridge"
)

// Location schemes
const (
	SchemeContent = "content"
	SchemeFile    = "file"
)

// Document tree path segments used by managed locations
const (
	PathTree     = "tree"
	PathDocument = "document"
	PathChildren = "children"
)

// MimeTypeDirectory marks a directory row in a provider query.
const MimeTypeDirectory = "vnd.android.document/directory"

// Content I/O
const (
	// ReadBufferSize is the chunk size used when draining a read stream.
	ReadBufferSize = 512 * 1024
	// DefaultMaxReadSize is the read ceiling used by the CLI when none is given.
	DefaultMaxReadSize = 64 * 1024 * 1024
	// DefaultOpenMode is the mode used by WriteAll.
	DefaultOpenMode = "w"
)

// Change notifier constants
const (
	WatcherInterval   = 2 * time.Second
	WatcherBufferSize = 10
)

// SMB constants
const (
	SMBPort        = "445"
	SMBDialTimeout = 5 * time.Second
)

// Cursor batch sizes
const (
	LocalReadDirBatch = 64
	S3ListPageSize    = 1000
)

// Configuration constants
const (
	ConfigFileName     = "config.json"
	EnvConfigPath      = "DOCBRIDGE_CONFIG"
	EnvLogLevel        = "DOCBRIDGE_LOG_LEVEL"
	EnvLogFormat       = "DOCBRIDGE_LOG_FORMAT"
	EnvMetricsAddr     = "DOCBRIDGE_METRICS_ADDR"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	KeyringServiceName = "docbridge.smb"
)
