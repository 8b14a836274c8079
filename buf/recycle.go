package buf

import "github.com/pavanmanishd/netbuf/arena"

// GetFreeBuf pops the head of *free with its cursors rewound to the start
// of its memory. When *free is empty it returns a new link holding a zeroed
// Buf.
func GetFreeBuf(a *arena.Arena, free **Chain) (*Chain, error) {
	if cl := *free; cl != nil {
		*free = cl.Next
		cl.Next = nil
		cl.Buf.Pos, cl.Buf.Last = 0, 0
		return cl, nil
	}

	cl, err := AllocChainLink(a)
	if err != nil {
		return nil, err
	}
	b, err := arena.Alloc[Buf](a)
	if err != nil {
		FreeChainLink(a, cl)
		return nil, err
	}
	cl.Buf = b
	return cl, nil
}

// UpdateChains is called by a producer after every write attempt.
//
// It detaches drained buffers from the front of *busy, stopping at the
// first one with unread data since buffers drain in order. Drained buffers
// tagged tag are rewound and moved, in their busy order, to the front of
// *free; drained buffers of other owners are dropped and their links go
// back to the arena. Finally *out, if any, is appended to *busy and *out is
// set to nil. out may be nil.
func UpdateChains(a *arena.Arena, free, busy, out **Chain, tag Tag) {
	var head, tail *Chain

	for *busy != nil {
		cl := *busy
		if cl.Buf.Size() != 0 {
			break
		}
		*busy = cl.Next

		if cl.Buf.Tag != tag {
			FreeChainLink(a, cl)
			continue
		}

		cl.Buf.Pos, cl.Buf.Last = 0, 0
		cl.Next = nil
		if tail == nil {
			head = cl
		} else {
			tail.Next = cl
		}
		tail = cl
	}

	if head != nil {
		tail.Next = *free
		*free = head
	}

	if out == nil || *out == nil {
		return
	}
	ll := busy
	for *ll != nil {
		ll = &(*ll).Next
	}
	*ll = *out
	*out = nil
}
