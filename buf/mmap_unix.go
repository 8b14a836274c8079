//go:build unix

package buf

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
	"golang.org/x/sys/unix"
)

// MapFile maps n bytes of f starting at off read-only and returns a buffer
// flagged Mmap and InFile over them. The mapping is removed when the arena
// is destroyed.
func MapFile(a *arena.Arena, f *os.File, off, n int64) (*Buf, error) {
	if n <= 0 || off < 0 {
		return nil, errors.Wrapf(arena.ErrBadSize, "map %d bytes at %d", n, off)
	}
	page := int64(unix.Getpagesize())
	aligned := off &^ (page - 1)
	delta := int(off - aligned)

	data, err := unix.Mmap(int(f.Fd()), aligned, delta+int(n), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", f.Name())
	}

	c, err := a.AddCleanup(0)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	log := a.Logger()
	c.Data = data
	c.Handler = func(d any) {
		if err := unix.Munmap(d.([]byte)); err != nil {
			log.Error("buf: munmap failed", "name", f.Name(), "err", err)
		}
	}

	b, err := arena.Alloc[Buf](a)
	if err != nil {
		return nil, err
	}
	b.Mem = data[delta : delta+int(n) : delta+int(n)]
	b.Last = int(n)
	b.File = f
	b.FilePos = off
	b.FileLast = off + n
	b.Flags = Mmap | InFile
	return b, nil
}
