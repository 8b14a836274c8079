package buf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavanmanishd/netbuf/arena"
	"github.com/stretchr/testify/require"
)

func newArena(t testing.TB) *arena.Arena {
	t.Helper()
	a, err := arena.New(arena.DefaultSize)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a
}

// memChain builds a chain of read-only memory buffers, one per part.
func memChain(t testing.TB, a *arena.Arena, parts ...string) *Chain {
	t.Helper()
	var head *Chain
	ll := &head
	for _, p := range parts {
		b, err := NewMemBuf(a, []byte(p))
		require.NoError(t, err)
		cl, err := AllocChainLink(a)
		require.NoError(t, err)
		cl.Buf = b
		*ll = cl
		ll = &cl.Next
	}
	return head
}

// link wraps b in a single chain link.
func link(t testing.TB, a *arena.Arena, b *Buf) *Chain {
	t.Helper()
	cl, err := AllocChainLink(a)
	require.NoError(t, err)
	cl.Buf = b
	return cl
}

func tempFile(t testing.TB, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// sink is a Filter that records and consumes what it receives unless
// stalled. A stalled sink keeps its input and returns ErrAgain.
type sink struct {
	data    bytes.Buffer
	stall   bool
	calls   int
	seen    []*Buf
	pending []*Buf
}

func (s *sink) filter(in *Chain) error {
	s.calls++
	for cl := in; cl != nil; cl = cl.Next {
		s.seen = append(s.seen, cl.Buf)
		s.pending = append(s.pending, cl.Buf)
	}
	if s.stall {
		return ErrAgain
	}
	for _, b := range s.pending {
		if b.InMemory() {
			s.data.Write(b.Bytes())
			b.Pos = b.Last
		}
		if b.Flags&InFile != 0 {
			if !b.InMemory() {
				p := make([]byte, b.FileLast-b.FilePos)
				b.File.ReadAt(p, b.FilePos)
				s.data.Write(p)
			}
			b.FilePos = b.FileLast
		}
	}
	s.pending = nil
	return nil
}

// bufsOf returns the buffers of a chain in order.
func bufsOf(in *Chain) []*Buf {
	var bufs []*Buf
	for cl := in; cl != nil; cl = cl.Next {
		bufs = append(bufs, cl.Buf)
	}
	return bufs
}
