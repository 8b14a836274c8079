package buf

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
)

// Chain is one link of a buffer chain. Links and buffers are separate
// allocations, so one Buf may appear in several chains at once.
type Chain struct {
	Buf  *Buf
	Next *Chain
}

// Bufs is a buffer budget: Num buffers of Size bytes each.
type Bufs struct {
	Num  int
	Size int
}

// AllocChainLink returns a link from the arena's recycling slot, or a new
// one from the arena when the slot is empty.
func AllocChainLink(a *arena.Arena) (*Chain, error) {
	if cl := arena.Recycled[Chain](a); cl != nil {
		return cl, nil
	}
	return arena.Alloc[Chain](a)
}

// FreeChainLink returns cl to the arena's recycling slot. The buffer it
// points at is not touched.
func FreeChainLink(a *arena.Arena, cl *Chain) {
	cl.Buf, cl.Next = nil, nil
	arena.Recycle(a, cl)
}

// CreateChainOfBufs builds one chain holding, for each budget in order,
// Num writable buffers of Size bytes carved from a single allocation.
// On failure the partial chain is left to the arena.
func CreateChainOfBufs(a *arena.Arena, budgets ...Bufs) (*Chain, error) {
	var head *Chain
	ll := &head

	for _, bs := range budgets {
		if bs.Num < 1 || bs.Size < 1 || bs.Num > math.MaxInt/bs.Size {
			return nil, errors.Wrapf(ErrBadBufs, "%d buffers of %d bytes", bs.Num, bs.Size)
		}
		mem, err := a.Alloc(bs.Num * bs.Size)
		if err != nil {
			return nil, err
		}
		for i := 0; i < bs.Num; i++ {
			b, err := arena.Alloc[Buf](a)
			if err != nil {
				return nil, err
			}
			b.Mem = mem[i*bs.Size : (i+1)*bs.Size : (i+1)*bs.Size]
			b.Flags = Temporary

			cl, err := AllocChainLink(a)
			if err != nil {
				return nil, err
			}
			cl.Buf = b
			*ll = cl
			ll = &cl.Next
		}
	}
	return head, nil
}

// AddCopy appends to *chain one new link per link of in, sharing the
// buffers. If a link cannot be allocated *chain is left as it was.
func AddCopy(a *arena.Arena, chain **Chain, in *Chain) error {
	var head, tail *Chain
	for ; in != nil; in = in.Next {
		cl, err := AllocChainLink(a)
		if err != nil {
			for head != nil {
				next := head.Next
				FreeChainLink(a, head)
				head = next
			}
			return err
		}
		cl.Buf = in.Buf
		if tail == nil {
			head = cl
		} else {
			tail.Next = cl
		}
		tail = cl
	}
	if head == nil {
		return nil
	}

	ll := chain
	for *ll != nil {
		ll = &(*ll).Next
	}
	*ll = head
	return nil
}

// Size returns the unread bytes of every buffer in the chain.
func Size(in *Chain) int64 {
	var size int64
	for cl := in; cl != nil; cl = cl.Next {
		size += cl.Buf.Size()
	}
	return size
}

// Len returns the number of links in the chain.
func Len(in *Chain) int {
	n := 0
	for cl := in; cl != nil; cl = cl.Next {
		n++
	}
	return n
}

// UpdateSent marks sent bytes of the chain as consumed, advancing the
// cursors of the buffers they came from, and returns the first link that
// still has unread data. Empty and special buffers are stepped over.
func UpdateSent(in *Chain, sent int64) *Chain {
	cl := in
	for ; cl != nil; cl = cl.Next {
		b := cl.Buf
		size := b.Size()
		if size == 0 {
			continue
		}
		if sent == 0 {
			break
		}
		if sent >= size {
			sent -= size
			if b.InMemory() {
				b.Pos = b.Last
			}
			if b.Flags&InFile != 0 {
				b.FilePos = b.FileLast
			}
			continue
		}
		if b.InMemory() {
			b.Pos += int(sent)
		}
		if b.Flags&InFile != 0 {
			b.FilePos += sent
		}
		break
	}
	return cl
}
