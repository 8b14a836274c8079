//go:build linux || darwin

package buf

import (
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// DefaultIOVMax is how many memory spans one writev call gathers.
const DefaultIOVMax = 64

// FDTransport sends chains to a non-blocking file descriptor, gathering
// runs of memory buffers with writev and handing file spans to sendfile.
// EAGAIN is reported as ErrAgain.
type FDTransport struct {
	FD     int
	IOVMax int
}

// SendChain writes from the front of in until limit bytes are sent, the
// descriptor would block, or the chain ends.
func (t FDTransport) SendChain(in *Chain, limit int64) (int64, error) {
	iovMax := t.IOVMax
	if iovMax <= 0 {
		iovMax = DefaultIOVMax
	}

	var sent int64
	cl := in
	for cl != nil {
		if limit > 0 && sent >= limit {
			break
		}
		b := cl.Buf
		if b.Size() == 0 {
			cl = cl.Next
			continue
		}

		if !b.InMemory() {
			size := b.Size()
			if limit > 0 && size > limit-sent {
				size = limit - sent
			}
			n, err := t.sendfile(b, size)
			sent += n
			if err != nil {
				return sent, err
			}
			if n < size {
				return sent, ErrAgain
			}
			cl = cl.Next
			continue
		}

		iovs := make([][]byte, 0, iovMax)
		var size int64
		for ; cl != nil && len(iovs) < iovMax; cl = cl.Next {
			b := cl.Buf
			if b.Size() == 0 {
				continue
			}
			if !b.InMemory() {
				break
			}
			p := b.Bytes()
			if limit > 0 && int64(len(p)) > limit-sent-size {
				p = p[:limit-sent-size]
			}
			iovs = append(iovs, p)
			size += int64(len(p))
			if limit > 0 && sent+size >= limit {
				cl = cl.Next
				break
			}
		}

		n, err := t.writev(iovs)
		sent += n
		if err != nil {
			return sent, err
		}
		if n < size {
			return sent, ErrAgain
		}
	}
	return sent, nil
}

func (t FDTransport) writev(iovs [][]byte) (int64, error) {
	for {
		n, err := unix.Writev(t.FD, iovs)
		switch {
		case err == nil:
			return int64(n), nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrAgain
		default:
			return 0, errors.Wrap(err, "writev")
		}
	}
}

func (t FDTransport) sendfile(b *Buf, size int64) (int64, error) {
	off := b.FilePos
	for {
		n, err := unix.Sendfile(t.FD, int(b.File.Fd()), &off, int(size))
		switch {
		case err == nil && n == 0 && size > 0:
			return 0, errors.Wrapf(io.ErrUnexpectedEOF, "buf: file %s was truncated at %d", b.File.Name(), b.FilePos)
		case err == nil:
			return int64(n), nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if n > 0 {
				return int64(n), nil
			}
			return 0, ErrAgain
		default:
			return 0, errors.Wrap(err, "sendfile")
		}
	}
}
