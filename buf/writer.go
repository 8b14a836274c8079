package buf

import (
	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
)

// Transport moves bytes from the front of a chain to the peer.
//
// SendChain writes at most limit bytes when limit is positive and returns
// how many bytes it wrote. It must not move any buffer cursor. ErrAgain
// reports that the transport cannot take more now; the count is still
// valid. Any other error is fatal for the connection.
type Transport interface {
	SendChain(in *Chain, limit int64) (int64, error)
}

// ChainWriter queues chains for a Transport and drains them in order.
// Chains the transport could not take yet stay queued for the next Write.
type ChainWriter struct {
	Arena     *arena.Arena
	Transport Transport
	Limit     int64 // bytes offered per Write, 0 for no limit

	out  *Chain
	last **Chain
	sent int64
}

// NewChainWriter returns a writer sending through t with a per-call limit.
func NewChainWriter(a *arena.Arena, t Transport, limit int64) *ChainWriter {
	w := &ChainWriter{Arena: a, Transport: t, Limit: limit}
	w.last = &w.out
	return w
}

// Write queues in and sends as much of the queue as the transport and the
// limit allow. It returns nil once the queue is drained, ErrAgain when data
// remains, or the transport's fatal error. in may be nil to retry.
func (w *ChainWriter) Write(in *Chain) error {
	if w.last == nil {
		w.last = &w.out
	}
	for ; in != nil; in = in.Next {
		cl, err := AllocChainLink(w.Arena)
		if err != nil {
			return err
		}
		cl.Buf = in.Buf
		*w.last = cl
		w.last = &cl.Next
	}

	budget := w.Limit
	for {
		w.drop()
		if w.out == nil {
			return nil
		}

		var limit int64
		if w.Limit > 0 {
			if budget <= 0 {
				return ErrAgain
			}
			limit = budget
		}

		n, err := w.Transport.SendChain(w.out, limit)
		if n > 0 {
			w.sent += n
			budget -= n
			UpdateSent(w.out, n)
		}
		if err != nil {
			w.drop()
			if errors.Is(err, ErrAgain) {
				if w.out == nil {
					return nil
				}
				return ErrAgain
			}
			return errors.Wrap(err, "buf: send chain")
		}
		if n == 0 {
			return ErrAgain
		}
	}
}

// Pending reports whether queued data is waiting for the transport.
func (w *ChainWriter) Pending() bool {
	w.drop()
	return w.out != nil
}

// Sent returns the bytes written over the writer's lifetime.
func (w *ChainWriter) Sent() int64 {
	return w.sent
}

// drop releases drained links at the front of the queue.
func (w *ChainWriter) drop() {
	for w.out != nil && w.out.Buf.Size() == 0 {
		cl := w.out
		w.out = cl.Next
		FreeChainLink(w.Arena, cl)
	}
	if w.out == nil {
		w.last = &w.out
	}
}
