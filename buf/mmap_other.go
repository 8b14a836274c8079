//go:build !unix

package buf

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
)

// MapFile reads n bytes of f starting at off into arena memory where file
// mappings are not available. The buffer is flagged Memory and InFile.
func MapFile(a *arena.Arena, f *os.File, off, n int64) (*Buf, error) {
	if n <= 0 || off < 0 {
		return nil, errors.Wrapf(arena.ErrBadSize, "map %d bytes at %d", n, off)
	}
	mem, err := a.AllocUnaligned(int(n))
	if err != nil {
		return nil, err
	}
	if _, err := f.ReadAt(mem, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "read %s", f.Name())
	}

	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	b.Mem = mem
	b.Last = int(n)
	b.File = f
	b.FilePos = off
	b.FileLast = off + n
	b.Flags = Memory | InFile
	return b, nil
}
