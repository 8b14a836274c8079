package arena

import (
	"bytes"
	"fmt"
	"log/slog"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// recordingSource is a heap source that logs every call into a shared
// event list.
type recordingSource struct {
	events   *[]string
	acquired int
	released int
}

func newRecordingSource() *recordingSource {
	return &recordingSource{events: new([]string)}
}

func (s *recordingSource) Acquire(size int) ([]byte, error) {
	s.acquired++
	*s.events = append(*s.events, fmt.Sprintf("acquire %d", size))
	return make([]byte, size), nil
}

func (s *recordingSource) Release(b []byte) error {
	s.released++
	*s.events = append(*s.events, fmt.Sprintf("release %d", len(b)))
	return nil
}

// testPlatform pins the page size so ceilings do not depend on the host.
var testPlatform = Platform{PageSize: 4096, Alignment: 8}

func newTestArena(t testing.TB, size int, opts ...Option) *Arena {
	t.Helper()
	a, err := New(size, append([]Option{WithPlatform(testPlatform)}, opts...)...)
	require.NoError(t, err)
	return a
}

// newCaptureLogger returns a logger writing error records to buf.
func newCaptureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelError}))
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// overlaps reports whether two non-empty slices share memory.
func overlaps(x, y []byte) bool {
	xs, ys := addr(x), addr(y)
	return xs < ys+uintptr(len(y)) && ys < xs+uintptr(len(x))
}

// inBlock reports whether b lies entirely inside one of a's blocks.
func inBlock(a *Arena, b []byte) bool {
	for i := range a.blocks {
		blk := a.blocks[i].buf
		if addr(b) >= addr(blk) && addr(b)+uintptr(len(b)) <= addr(blk)+uintptr(len(blk)) {
			return true
		}
	}
	return false
}

func largeNodes(a *Arena) int {
	n := 0
	for l := a.large; l != nil; l = l.next {
		n++
	}
	return n
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
