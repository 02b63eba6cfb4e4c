package provider

import (
	"fmt"
	"os"
)

// Mode is a parsed open mode.
type Mode struct {
	Read     bool
	Write    bool
	Truncate bool
	Append   bool
}

// Common modes.
var (
	ModeRead  = Mode{Read: true}
	ModeWrite = Mode{Write: true, Truncate: true}
)

// ParseMode interprets the conventional open-mode vocabulary:
// "r", "w" (same as "wt"), "wt", "wa", "rw", "rwt".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "w", "wt":
		return ModeWrite, nil
	case "wa":
		return Mode{Write: true, Append: true}, nil
	case "rw":
		return Mode{Read: true, Write: true}, nil
	case "rwt":
		return Mode{Read: true, Write: true, Truncate: true}, nil
	default:
		return Mode{}, fmt.Errorf("invalid open mode %q", s)
	}
}

// ReadOnly reports whether the mode never writes.
func (m Mode) ReadOnly() bool { return m.Read && !m.Write }

// Flag converts the mode to os.OpenFile flags. Every writing mode creates
// the file when missing.
func (m Mode) Flag() int {
	var flag int
	switch {
	case m.Read && m.Write:
		flag = os.O_RDWR
	case m.Write:
		flag = os.O_WRONLY
	default:
		return os.O_RDONLY
	}
	flag |= os.O_CREATE
	if m.Truncate {
		flag |= os.O_TRUNC
	}
	if m.Append {
		flag |= os.O_APPEND
	}
	return flag
}

func (m Mode) String() string {
	switch {
	case m.Read && m.Write && m.Truncate:
		return "rwt"
	case m.Read && m.Write:
		return "rw"
	case m.Write && m.Append:
		return "wa"
	case m.Write:
		return "wt"
	default:
		return "r"
	}
}
