package provider

// Cursor is a lazy, finite, non-restartable sequence of rows. A failure to
// decode one row is reported by Row and affects only that row; a failure to
// advance is reported by Err once Next returns false.
type Cursor interface {
	Next() bool
	Row() (Row, error)
	Err() error
	Close() error
}

// RowFunc decodes the i-th entry of a materialized listing.
type RowFunc func(i int) (Row, error)

// SliceCursor iterates a listing that was fetched in one round trip.
type SliceCursor struct {
	n      int
	pos    int
	decode RowFunc
	onDone func() error
}

// NewSliceCursor returns a cursor over n entries decoded lazily by decode.
// onClose, if non-nil, runs exactly once on Close.
func NewSliceCursor(n int, decode RowFunc, onClose func() error) *SliceCursor {
	return &SliceCursor{n: n, pos: -1, decode: decode, onDone: onClose}
}

// RowsCursor is a SliceCursor over already-built rows.
func RowsCursor(rows []Row) *SliceCursor {
	return NewSliceCursor(len(rows), func(i int) (Row, error) { return rows[i], nil }, nil)
}

func (c *SliceCursor) Next() bool {
	if c.pos+1 >= c.n {
		c.pos = c.n
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Row() (Row, error) { return c.decode(c.pos) }

func (c *SliceCursor) Err() error { return nil }

func (c *SliceCursor) Close() error {
	if c.onDone == nil {
		return nil
	}
	fn := c.onDone
	c.onDone = nil
	return fn()
}
