// Package buf implements buffer descriptors and the chains that carry them
// from a content producer to the network writer.
//
// A Buf describes a span of memory, a span of a file, or both; a Chain is a
// singly linked list of links pointing at Bufs. Links are allocated from the
// connection arena and recycled through its recycling slot. Producers keep
// free and busy chains and call UpdateChains after every write attempt, so
// drained buffers are reused rather than reallocated.
package buf

import (
	"os"

	"github.com/pavanmanishd/netbuf/arena"
)

// Tag identifies the owner that allocated a Buf. UpdateChains only moves
// buffers carrying the caller's tag onto its free chain.
type Tag string

// Flags describe what a Buf holds and how downstream stages must treat it.
type Flags uint16

const (
	Temporary   Flags = 1 << iota // memory may be changed in place
	Memory                        // memory is read-only, e.g. cached content
	Mmap                          // memory is a read-only file mapping
	Recycled                      // buffer returns to its owner once drained
	InFile                        // file span is valid
	Flush                         // downstream must flush before going on
	Sync                          // synchronization point, no payload
	LastBuf                       // last buffer of the stream
	LastInChain                   // last buffer of this chain
	LastShadow                    // last view sharing the Shadow storage
	TempFile                      // file is a temporary file
)

// Buf is a buffer descriptor. Mem is the whole allocation; Mem[Pos:Last] is
// the unread data. FilePos and FileLast bound the unread part of File.
type Buf struct {
	Mem  []byte
	Pos  int
	Last int

	File     *os.File
	FilePos  int64
	FileLast int64

	Tag    Tag
	Shadow *Buf // buffer whose storage this one shares
	Flags  Flags
}

// InMemory reports whether the data is in Mem.
func (b *Buf) InMemory() bool {
	return b.Flags&(Temporary|Memory|Mmap) != 0
}

// InMemoryOnly reports whether the data is in Mem and not backed by a file.
func (b *Buf) InMemoryOnly() bool {
	return b.InMemory() && b.Flags&InFile == 0
}

// Special reports whether b is a pure control marker: a flush, sync or
// end-of-stream signal with no payload. Special buffers must still be
// forwarded.
func (b *Buf) Special() bool {
	return b.Flags&(Flush|LastBuf|Sync) != 0 && !b.InMemory() && b.Flags&InFile == 0
}

// SyncOnly reports whether b carries nothing but the Sync flag.
func (b *Buf) SyncOnly() bool {
	return b.Flags&Sync != 0 && !b.InMemory() && b.Flags&(InFile|Flush|LastBuf) == 0
}

// Size returns the unread bytes: the memory span when b is in memory, the
// file span otherwise.
func (b *Buf) Size() int64 {
	if b.InMemory() {
		return int64(b.Last - b.Pos)
	}
	return b.FileLast - b.FilePos
}

// Bytes returns the unread memory span.
func (b *Buf) Bytes() []byte {
	return b.Mem[b.Pos:b.Last]
}

// Room returns how many bytes can still be appended to Mem.
func (b *Buf) Room() int {
	return len(b.Mem) - b.Last
}

// Append copies as much of p as fits after Last and returns the count.
func (b *Buf) Append(p []byte) int {
	n := copy(b.Mem[b.Last:], p)
	b.Last += n
	return n
}

// CreateTempBuf returns a writable buffer of size bytes from the arena,
// empty and flagged Temporary.
func CreateTempBuf(a *arena.Arena, size int) (*Buf, error) {
	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	mem, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	b.Mem = mem
	b.Flags = Temporary
	return b, nil
}

// NewMemBuf wraps p, which must outlive the arena's use of it, as a
// read-only buffer holding all of p. Nothing is copied.
func NewMemBuf(a *arena.Arena, p []byte) (*Buf, error) {
	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	b.Mem = p
	b.Last = len(p)
	b.Flags = Memory
	return b, nil
}

// NewFileBuf describes bytes [pos, last) of f.
func NewFileBuf(a *arena.Arena, f *os.File, pos, last int64) (*Buf, error) {
	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	b.File = f
	b.FilePos = pos
	b.FileLast = last
	b.Flags = InFile
	return b, nil
}

// NewSpecial returns a payload-free marker buffer carrying flags, which
// should be some of Flush, Sync and LastBuf.
func NewSpecial(a *arena.Arena, flags Flags) (*Buf, error) {
	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	b.Flags = flags
	return b, nil
}

// ShadowOf returns a read-only view of src's unread data that shares its
// storage. The view points back at src through Shadow and is marked as the
// last shadow; consuming the view does not move src's cursors.
func ShadowOf(a *arena.Arena, src *Buf) (*Buf, error) {
	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	*b = *src
	b.Shadow = src
	b.Tag = ""
	b.Flags &^= Temporary | Recycled
	if src.Flags&Temporary != 0 {
		b.Flags |= Memory
	}
	b.Flags |= LastShadow
	return b, nil
}
