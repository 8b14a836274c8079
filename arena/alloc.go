package arena

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Alloc returns a zeroed *T owned by the arena. The pointer is valid until
// the arena is reset or destroyed.
//
// A pointer-free T is carved from arena bytes. A T holding pointers lives in
// a per-type slab owned by the arena, so the collector keeps seeing what it
// references.
func Alloc[T any](a *Arena) (*T, error) {
	s := slabFor[T](a)
	if s.flat {
		var zero T
		size := int(unsafe.Sizeof(zero))
		if size == 0 {
			return new(T), nil
		}
		b, err := a.allocFor(size, int(unsafe.Alignof(zero)))
		if err != nil {
			return nil, err
		}
		clear(b)
		return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
	}
	return s.next(), nil
}

// AllocSlice allocates n elements of T from the arena. Elements of a
// pointer-free T are not initialized; other element types come zeroed.
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrBadSize, "make slice of %d elements", n)
	}
	s := slabFor[T](a)
	if n == 0 {
		return []T{}, nil
	}
	if s.flat {
		var zero T
		elem := int(unsafe.Sizeof(zero))
		if elem == 0 {
			return make([]T, n), nil
		}
		if n > math.MaxInt/elem {
			return nil, errors.Wrapf(ErrBadSize, "make slice of %d elements of %d bytes", n, elem)
		}
		b, err := a.allocFor(n*elem, int(unsafe.Alignof(zero)))
		if err != nil {
			return nil, err
		}
		return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
	}
	return s.slice(n), nil
}

// Recycle parks p in the arena's recycling slot for T so a later Recycled
// call can hand it out again. The slot is emptied by Reset and Destroy.
func Recycle[T any](a *Arena, p *T) {
	if p == nil {
		return
	}
	s := slabFor[T](a)
	s.free = append(s.free, p)
}

// Recycled pops a zeroed *T from the recycling slot, or returns nil when
// the slot is empty.
func Recycled[T any](a *Arena) *T {
	s := slabFor[T](a)
	n := len(s.free)
	if n == 0 {
		return nil
	}
	p := s.free[n-1]
	s.free[n-1] = nil
	s.free = s.free[:n-1]
	var zero T
	*p = zero
	return p
}

// allocFor serves n bytes aligned for a type of alignment align.
func (a *Arena) allocFor(n, align int) ([]byte, error) {
	align = max(align, a.platform.Alignment)
	if n <= a.max {
		return a.allocSmall(n, align)
	}
	return a.allocLarge(n)
}

type slabber interface {
	reset()
	release()
}

// slab hands out T values from chunks sized like an arena block.
type slab[T any] struct {
	flat   bool // T holds no pointers
	width  int  // elements per chunk
	chunks [][]T
	cur    int
	off    int
	big    [][]T // oversized slices, dropped on reset
	free   []*T
}

func slabFor[T any](a *Arena) *slab[T] {
	a.panicIfDestroyed()
	t := reflect.TypeFor[T]()
	if s, ok := a.slabs[t]; ok {
		return s.(*slab[T])
	}
	s := &slab[T]{flat: pointerFree(t), width: 64}
	if size := int(t.Size()); size > 0 {
		s.width = max(1, a.size/size)
	}
	a.slabs[t] = s
	return s
}

func (s *slab[T]) next() *T {
	for s.cur < len(s.chunks) {
		c := s.chunks[s.cur]
		if s.off < len(c) {
			p := &c[s.off]
			s.off++
			return p
		}
		s.cur++
		s.off = 0
	}
	s.chunks = append(s.chunks, make([]T, s.width))
	s.off = 1
	return &s.chunks[s.cur][0]
}

func (s *slab[T]) slice(n int) []T {
	if n > s.width {
		b := make([]T, n)
		s.big = append(s.big, b)
		return b
	}
	for s.cur < len(s.chunks) {
		c := s.chunks[s.cur]
		if len(c)-s.off >= n {
			p := c[s.off : s.off+n : s.off+n]
			s.off += n
			return p
		}
		s.cur++
		s.off = 0
	}
	s.chunks = append(s.chunks, make([]T, s.width))
	s.off = n
	return s.chunks[s.cur][:n:n]
}

func (s *slab[T]) reset() {
	for i := 0; i < len(s.chunks) && i <= s.cur; i++ {
		clear(s.chunks[i])
	}
	s.cur, s.off = 0, 0
	s.big = nil
	clear(s.free)
	s.free = s.free[:0]
}

func (s *slab[T]) release() {
	s.chunks, s.big, s.free = nil, nil, nil
	s.cur, s.off = 0, 0
}

// pointerFree reports whether values of t contain no pointers and may
// therefore live in arena bytes.
func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
