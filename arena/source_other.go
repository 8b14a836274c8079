//go:build !unix

package arena

// MmapSource falls back to the Go heap where anonymous mappings are not
// available.
type MmapSource struct{}

// Acquire returns a zeroed heap slice.
func (MmapSource) Acquire(size int) ([]byte, error) {
	return HeapSource{}.Acquire(size)
}

// Release does nothing.
func (MmapSource) Release([]byte) error {
	return nil
}
