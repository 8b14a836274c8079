package buf

import (
	"io"

	"github.com/cockroachdb/errors"
)

// WriterTransport sends chains to an io.Writer. File spans are streamed
// through an io.SectionReader so the file offset is never moved.
type WriterTransport struct {
	W io.Writer
}

// SendChain writes buffers in order until limit bytes are written or the
// chain ends.
func (t WriterTransport) SendChain(in *Chain, limit int64) (int64, error) {
	var sent int64
	for cl := in; cl != nil; cl = cl.Next {
		if limit > 0 && sent >= limit {
			break
		}
		b := cl.Buf
		size := b.Size()
		if size == 0 {
			continue
		}
		if limit > 0 && size > limit-sent {
			size = limit - sent
		}

		var n int64
		var err error
		if b.InMemory() {
			var m int
			m, err = t.W.Write(b.Mem[b.Pos : b.Pos+int(size)])
			n = int64(m)
		} else {
			n, err = io.Copy(t.W, io.NewSectionReader(b.File, b.FilePos, size))
			if err == nil && n < size {
				err = errors.Wrapf(io.ErrUnexpectedEOF, "buf: file %s was truncated at %d", b.File.Name(), b.FilePos+n)
			}
		}
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}
