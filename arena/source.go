package arena

import "github.com/cockroachdb/errors"

// Source supplies the raw memory behind blocks and large allocations.
// Release receives exactly the slice returned by Acquire.
type Source interface {
	Acquire(size int) ([]byte, error)
	Release(b []byte) error
}

// HeapSource takes memory from the Go heap. Release is a no-op; the
// collector reclaims the slice once the arena drops it.
type HeapSource struct{}

// Acquire returns a zeroed slice of size bytes.
func (HeapSource) Acquire(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrBadSize, "acquire %d bytes", size)
	}
	return make([]byte, size), nil
}

// Release does nothing.
func (HeapSource) Release([]byte) error {
	return nil
}

// LimitSource caps the number of bytes outstanding from another Source.
// It bounds the memory a single connection may pin and is the usual way to
// exercise allocation failure.
type LimitSource struct {
	src   Source
	limit int
	used  int
}

// NewLimitSource wraps src with a budget of limit bytes. A nil src means
// the Go heap.
func NewLimitSource(src Source, limit int) *LimitSource {
	if src == nil {
		src = HeapSource{}
	}
	return &LimitSource{src: src, limit: limit}
}

// Acquire fails with ErrNoMemory once the budget would be exceeded.
func (s *LimitSource) Acquire(size int) ([]byte, error) {
	if size > s.limit-s.used {
		return nil, errors.Wrapf(ErrNoMemory, "limit %d bytes, %d in use, %d requested", s.limit, s.used, size)
	}
	b, err := s.src.Acquire(size)
	if err != nil {
		return nil, err
	}
	s.used += len(b)
	return b, nil
}

// Release returns b to the wrapped source and credits the budget.
func (s *LimitSource) Release(b []byte) error {
	s.used -= len(b)
	return s.src.Release(b)
}

// Used returns the bytes currently outstanding.
func (s *LimitSource) Used() int {
	return s.used
}
