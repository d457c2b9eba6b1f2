// Package iostream provides a reference-counted readable stream.
//
// A Shared stream may be held by several owners at once, for example a part
// describing its body and a reader that is still draining it. Each owner
// calls Release when done; the last Release closes the underlying reader.
package iostream

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrReleased is returned by Read after the last reference was released.
var ErrReleased = errors.New("iostream: stream released")

type Shared struct {
	r         io.Reader
	refs      atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// Share wraps r with a reference count of one held by the caller.
func Share(r io.Reader) *Shared {
	s := &Shared{r: r}
	s.refs.Store(1)
	return s
}

// Retain adds a reference and returns s.
func (s *Shared) Retain() *Shared {
	if s.refs.Add(1) <= 1 {
		s.refs.Add(-1)
		panic("iostream: retain after release")
	}
	return s
}

// Release drops a reference. Dropping the last one closes the underlying
// reader if it is an io.Closer and returns the close error.
func (s *Shared) Release() error {
	n := s.refs.Add(-1)
	if n < 0 {
		s.refs.Add(1)
		panic("iostream: release without reference")
	}
	if n > 0 {
		return nil
	}
	s.closeOnce.Do(func() {
		if c, ok := s.r.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}

// Refs reports the current number of references.
func (s *Shared) Refs() int { return int(s.refs.Load()) }

func (s *Shared) Read(p []byte) (int, error) {
	if s.refs.Load() <= 0 {
		return 0, ErrReleased
	}
	return s.r.Read(p)
}
