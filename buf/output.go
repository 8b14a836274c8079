package buf

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
)

// DefaultTag marks buffers allocated by an OutputChain without a Tag.
const DefaultTag Tag = "output_chain"

// OutputChain sits between a content producer and the next filter. It
// copies small in-memory buffers (and file data, when NeedInMemory is set)
// into at most Bufs.Num buffers of Bufs.Size bytes, passes every other
// buffer through untouched, and hands the result to Filter in order.
//
// Buffers it allocates are tagged Tag and recycled once the downstream
// stage has drained them, so a connection never holds more than the budget
// in coalescing buffers.
type OutputChain struct {
	Arena        *arena.Arena
	Bufs         Bufs
	Tag          Tag
	NeedInMemory bool
	Filter       func(in *Chain) error

	buf       *Chain // buffer being filled
	in        *Chain
	free      *Chain
	busy      *Chain
	allocated int
}

// Output queues in and forwards as much as the buffer budget allows.
//
// A partly filled buffer is kept for the next call unless a Flush, Sync or
// LastBuf flag passes through it; Output(nil) flushes it and gives the
// downstream filter a chance to retry. Output returns ErrAgain when input
// remains queued because every buffer is still busy downstream, and passes
// on ErrAgain from Filter.
func (ctx *OutputChain) Output(in *Chain) error {
	if ctx.Bufs.Num < 1 || ctx.Bufs.Size < 1 {
		return errors.Wrapf(ErrBadBufs, "%d buffers of %d bytes", ctx.Bufs.Num, ctx.Bufs.Size)
	}
	if ctx.Tag == "" {
		ctx.Tag = DefaultTag
	}

	if in != nil {
		if err := AddCopy(ctx.Arena, &ctx.in, in); err != nil {
			return err
		}
	}
	flush := in == nil

	var last error
	for {
		out, err := ctx.collect(flush)
		if err != nil && !errors.Is(err, ErrNoBuffer) {
			return err
		}

		if out == nil {
			if !flush {
				if ctx.in != nil {
					return ErrAgain
				}
				return last
			}

			last = ctx.Filter(nil)
			if last != nil && !errors.Is(last, ErrAgain) {
				return last
			}
			UpdateChains(ctx.Arena, &ctx.free, &ctx.busy, nil, ctx.Tag)
			if ctx.in == nil {
				return last
			}
			if ctx.free == nil {
				return ErrAgain
			}
			// downstream drained a buffer, keep copying
			continue
		}

		last = ctx.Filter(out)
		if last != nil && !errors.Is(last, ErrAgain) {
			return last
		}
		UpdateChains(ctx.Arena, &ctx.free, &ctx.busy, &out, ctx.Tag)

		if ctx.in == nil {
			return last
		}
	}
}

// Busy reports whether buffers handed downstream are not drained yet.
func (ctx *OutputChain) Busy() bool {
	UpdateChains(ctx.Arena, &ctx.free, &ctx.busy, nil, ctx.Tag)
	return ctx.busy != nil
}

// collect moves queued input to a new out chain, copying what needs
// copying. It stops early with ErrNoBuffer when the budget is exhausted;
// whatever was collected so far is still returned.
func (ctx *OutputChain) collect(flush bool) (*Chain, error) {
	var out *Chain
	ll := &out
	emit := func(cl *Chain) {
		cl.Next = nil
		*ll = cl
		ll = &cl.Next
	}

	for ctx.in != nil {
		cl := ctx.in
		b := cl.Buf

		if !ctx.needCopy(b) {
			if ctx.buf != nil {
				emit(ctx.buf)
				ctx.buf = nil
			}
			ctx.in = cl.Next
			emit(cl)
			continue
		}

		if ctx.buf == nil {
			nb, err := ctx.getBuf()
			if err != nil {
				return out, err
			}
			ctx.buf = nb
		}

		dst := ctx.buf.Buf
		if err := copyBuf(dst, b); err != nil {
			return out, err
		}
		if b.Size() == 0 {
			dst.Flags |= b.Flags & (Flush | Sync | LastBuf)
			ctx.in = cl.Next
			FreeChainLink(ctx.Arena, cl)
		}
		if dst.Room() == 0 || dst.Flags&(Flush|Sync|LastBuf) != 0 {
			emit(ctx.buf)
			ctx.buf = nil
		}
	}

	if flush && ctx.buf != nil {
		emit(ctx.buf)
		ctx.buf = nil
	}
	return out, nil
}

// needCopy reports whether b is coalesced rather than passed through.
func (ctx *OutputChain) needCopy(b *Buf) bool {
	size := b.Size()
	if size == 0 || b.Special() {
		return false
	}
	if b.InMemory() {
		return size < int64(ctx.Bufs.Size)
	}
	return b.Flags&InFile != 0 && ctx.NeedInMemory
}

// getBuf takes a drained buffer from the free chain or allocates one while
// the budget allows.
func (ctx *OutputChain) getBuf() (*Chain, error) {
	if ctx.free == nil {
		UpdateChains(ctx.Arena, &ctx.free, &ctx.busy, nil, ctx.Tag)
	}
	if ctx.free != nil {
		cl, err := GetFreeBuf(ctx.Arena, &ctx.free)
		if err != nil {
			return nil, err
		}
		cl.Buf.Flags = Temporary | Recycled
		return cl, nil
	}

	if ctx.allocated >= ctx.Bufs.Num {
		return nil, ErrNoBuffer
	}
	b, err := CreateTempBuf(ctx.Arena, ctx.Bufs.Size)
	if err != nil {
		return nil, err
	}
	b.Tag = ctx.Tag
	b.Flags |= Recycled

	cl, err := AllocChainLink(ctx.Arena)
	if err != nil {
		return nil, err
	}
	cl.Buf = b
	ctx.allocated++
	return cl, nil
}

// copyBuf moves as much of src's unread data as fits into dst.
func copyBuf(dst, src *Buf) error {
	size := min(src.Size(), int64(dst.Room()))
	if size == 0 {
		return nil
	}

	if src.InMemory() {
		n := copy(dst.Mem[dst.Last:], src.Mem[src.Pos:src.Pos+int(size)])
		dst.Last += n
		src.Pos += n
		if src.Flags&InFile != 0 {
			src.FilePos += int64(n)
		}
		return nil
	}

	n, err := src.File.ReadAt(dst.Mem[dst.Last:dst.Last+int(size)], src.FilePos)
	if int64(n) < size {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return errors.Wrapf(err, "buf: read %s at %d", src.File.Name(), src.FilePos)
	}
	dst.Last += n
	src.FilePos += int64(n)
	return nil
}
