//go:build unix

package arena

import "golang.org/x/sys/unix"

// MmapSource backs blocks with anonymous private mappings, keeping arena
// memory outside the Go heap. Only pointer-free data may live there, which
// is all the byte allocation paths hand out.
type MmapSource struct{}

// Acquire maps size bytes of zeroed anonymous memory.
func (MmapSource) Acquire(size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// Release unmaps b.
func (MmapSource) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munmap(b)
}
