// Package list implements an append-only segmented list whose segments
// are allocated from an arena.
//
// A List grows by whole segments of fixed capacity, so pushing never moves
// or copies existing elements. Elements can only be walked forward, segment
// by segment:
//
//	for p := l.First(); p != nil; p = p.Next() {
//		for i := range p.Elts() {
//			use(&p.Elts()[i])
//		}
//	}
package list

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
)

// ErrBadCapacity indicates a segment capacity below one.
var ErrBadCapacity = errors.New("list: segment capacity must be positive")

// Part is one segment of a List.
type Part[T any] struct {
	elts  []T // capacity-long storage
	nelts int // used entries
	next  *Part[T]
}

// Elts returns the used entries of the segment.
func (p *Part[T]) Elts() []T {
	return p.elts[:p.nelts]
}

// Next returns the following segment, or nil for the last one.
func (p *Part[T]) Next() *Part[T] {
	return p.next
}

// List is a sequence of segments of nalloc elements each. Only the last
// segment may be partially filled.
type List[T any] struct {
	last   *Part[T]
	part   Part[T]
	nalloc int
	pool   *arena.Arena
}

// New creates a list whose segments hold n elements.
func New[T any](a *arena.Arena, n int) (*List[T], error) {
	l, err := arena.Alloc[List[T]](a)
	if err != nil {
		return nil, err
	}
	if err := l.Init(a, n); err != nil {
		return nil, err
	}
	return l, nil
}

// Init sets up a list header that already exists, for example one embedded
// in a larger record, and allocates its first segment.
func (l *List[T]) Init(a *arena.Arena, n int) error {
	if n < 1 {
		return errors.Wrapf(ErrBadCapacity, "capacity %d", n)
	}
	elts, err := arena.AllocSlice[T](a, n)
	if err != nil {
		return err
	}
	l.part = Part[T]{elts: elts}
	l.last = &l.part
	l.nalloc = n
	l.pool = a
	return nil
}

// Push returns a slot for one more element. The slot is not zeroed when T
// holds no pointers. A full last segment is followed by a new one of the
// same capacity.
func (l *List[T]) Push() (*T, error) {
	last := l.last
	if last.nelts == l.nalloc {
		p, err := arena.Alloc[Part[T]](l.pool)
		if err != nil {
			return nil, err
		}
		p.elts, err = arena.AllocSlice[T](l.pool, l.nalloc)
		if err != nil {
			return nil, err
		}
		l.last.next = p
		l.last = p
		last = p
	}
	elt := &last.elts[last.nelts]
	last.nelts++
	return elt, nil
}

// First returns the first segment.
func (l *List[T]) First() *Part[T] {
	return &l.part
}

// Cap returns the capacity of every segment.
func (l *List[T]) Cap() int {
	return l.nalloc
}

// Len returns the number of pushed elements.
func (l *List[T]) Len() int {
	n := 0
	for p := &l.part; p != nil; p = p.next {
		n += p.nelts
	}
	return n
}

// All yields every element in push order.
func (l *List[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for p := &l.part; p != nil; p = p.next {
			for i := 0; i < p.nelts; i++ {
				if !yield(&p.elts[i]) {
					return
				}
			}
		}
	}
}
