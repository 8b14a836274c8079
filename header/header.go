// Package header stores parsed header fields in a segmented list owned by
// the connection arena.
package header

import (
	"bytes"
	"iter"

	"github.com/cespare/xxhash/v2"
	"github.com/pavanmanishd/netbuf/arena"
	"github.com/pavanmanishd/netbuf/list"
)

// DefaultCap is the segment capacity used for request headers.
const DefaultCap = 20

// Entry is one header field. Key and Value keep the bytes as received;
// LowcaseKey and Hash are used for lookups.
type Entry struct {
	Hash       uint64
	Key        []byte
	Value      []byte
	LowcaseKey []byte
}

// Table is an insertion-ordered set of header fields. Repeated names are
// kept as separate entries.
type Table struct {
	l    list.List[Entry]
	pool *arena.Arena
}

// NewTable creates a table whose list segments hold n entries.
func NewTable(a *arena.Arena, n int) (*Table, error) {
	t, err := arena.Alloc[Table](a)
	if err != nil {
		return nil, err
	}
	if err := t.l.Init(a, n); err != nil {
		return nil, err
	}
	t.pool = a
	return t, nil
}

// Add copies key and value into the arena and appends them.
func (t *Table) Add(key, value []byte) (*Entry, error) {
	kv, err := t.pool.AllocUnaligned(2*len(key) + len(value))
	if err != nil {
		return nil, err
	}
	k := kv[:len(key):len(key)]
	lk := kv[len(key) : 2*len(key) : 2*len(key)]
	v := kv[2*len(key):]
	copy(k, key)
	copy(v, value)
	lowcase(lk, key)

	e, err := t.l.Push()
	if err != nil {
		return nil, err
	}
	*e = Entry{Hash: xxhash.Sum64(lk), Key: k, Value: v, LowcaseKey: lk}
	return e, nil
}

// Get returns the first entry whose name matches name case-insensitively.
func (t *Table) Get(name string) *Entry {
	for e := range t.Values(name) {
		return e
	}
	return nil
}

// Values yields every entry named name, in insertion order.
func (t *Table) Values(name string) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		lk := make([]byte, len(name))
		lowcase(lk, []byte(name))
		h := xxhash.Sum64(lk)
		for e := range t.l.All() {
			if e.Hash == h && bytes.Equal(e.LowcaseKey, lk) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// All yields every entry in insertion order.
func (t *Table) All() iter.Seq[*Entry] {
	return t.l.All()
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.l.Len()
}

func lowcase(dst, src []byte) {
	for i, c := range src {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		dst[i] = c
	}
}
