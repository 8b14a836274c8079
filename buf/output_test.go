package buf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputCoalesce(t *testing.T) {
	a := newArena(t)
	s := &sink{}
	ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 2, Size: 16}, Filter: s.filter}

	in := memChain(t, a, "ab", "cd", "ef")
	in.Next.Next.Buf.Flags |= LastBuf
	src := bufsOf(in)

	require.NoError(t, ctx.Output(in))
	assert.Equal(t, "abcdef", s.data.String())
	assert.Equal(t, 1, s.calls)
	require.Len(t, s.seen, 1)

	b := s.seen[0]
	assert.Equal(t, DefaultTag, ctx.Tag)
	assert.Equal(t, DefaultTag, b.Tag)
	assert.Equal(t, Temporary|Recycled|LastBuf, b.Flags)
	for _, sb := range src {
		assert.Zero(t, sb.Size(), "source buffers are consumed")
	}
	assert.False(t, ctx.Busy())
}

func TestOutputHoldsPartial(t *testing.T) {
	a := newArena(t)
	s := &sink{}
	ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 1, Size: 16}, Tag: "gzip", Filter: s.filter}

	require.NoError(t, ctx.Output(memChain(t, a, "abc")))
	assert.Zero(t, s.calls, "partly filled buffer is kept")

	require.NoError(t, ctx.Output(memChain(t, a, "def")))
	assert.Zero(t, s.calls)

	require.NoError(t, ctx.Output(nil))
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, "abcdef", s.data.String())
	assert.Equal(t, Tag("gzip"), s.seen[0].Tag)
}

func TestOutputPassThrough(t *testing.T) {
	a := newArena(t)
	s := &sink{}
	ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 2, Size: 4}, Filter: s.filter}

	in := memChain(t, a, "ab", "0123456789", "cd")
	big := in.Next.Buf
	in.Next.Next.Buf.Flags |= LastBuf

	require.NoError(t, ctx.Output(in))
	assert.Equal(t, "ab0123456789cd", s.data.String())
	require.Len(t, s.seen, 3)
	assert.Same(t, big, s.seen[1], "large buffers are not copied")
	assert.Equal(t, 2, ctx.allocated)
}

func TestOutputSpecial(t *testing.T) {
	a := newArena(t)
	s := &sink{}
	ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 1, Size: 16}, Filter: s.filter}

	flush, err := NewSpecial(a, Flush)
	require.NoError(t, err)
	in := memChain(t, a, "abc")
	in.Next = link(t, a, flush)

	require.NoError(t, ctx.Output(in))
	require.Len(t, s.seen, 2)
	assert.Equal(t, "abc", s.data.String())
	assert.Same(t, flush, s.seen[1], "markers follow the data they close")
}

func TestOutputBudget(t *testing.T) {
	a := newArena(t)
	s := &sink{stall: true}
	ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 1, Size: 4}, Filter: s.filter}

	err := ctx.Output(memChain(t, a, "abc", "def"))
	assert.ErrorIs(t, err, ErrAgain)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, 1, ctx.allocated)
	assert.True(t, ctx.Busy())

	// still stalled: nothing moves
	assert.ErrorIs(t, ctx.Output(nil), ErrAgain)
	assert.Equal(t, 1, ctx.allocated)
	assert.Zero(t, s.data.Len())

	s.stall = false
	require.NoError(t, ctx.Output(nil))
	assert.Equal(t, "abcdef", s.data.String())
	assert.Equal(t, 1, ctx.allocated, "the drained buffer was reused")

	var filled []*Buf
	for _, b := range s.seen {
		if b.Tag == DefaultTag {
			filled = append(filled, b)
		}
	}
	require.NotEmpty(t, filled)
	for _, b := range filled {
		assert.Same(t, filled[0], b)
	}
}

func TestOutputNeedInMemory(t *testing.T) {
	const content = "hello world"

	tests := []struct {
		name         string
		needInMemory bool
		copied       bool
	}{
		{"file passed through", false, false},
		{"file read into memory", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newArena(t)
			f := tempFile(t, []byte(content))
			fb, err := NewFileBuf(a, f, 0, int64(len(content)))
			require.NoError(t, err)
			fb.Flags |= LastBuf

			s := &sink{}
			ctx := &OutputChain{
				Arena:        a,
				Bufs:         Bufs{Num: 1, Size: 64},
				NeedInMemory: tt.needInMemory,
				Filter:       s.filter,
			}
			require.NoError(t, ctx.Output(link(t, a, fb)))

			assert.Equal(t, content, s.data.String())
			require.Len(t, s.seen, 1)
			if tt.copied {
				assert.NotSame(t, fb, s.seen[0])
				assert.True(t, s.seen[0].InMemoryOnly())
			} else {
				assert.Same(t, fb, s.seen[0])
			}
			assert.Equal(t, fb.FileLast, fb.FilePos)
		})
	}
}

func TestOutputShortFile(t *testing.T) {
	a := newArena(t)
	f := tempFile(t, []byte("short"))
	fb, err := NewFileBuf(a, f, 0, 50)
	require.NoError(t, err)

	s := &sink{}
	ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 1, Size: 64}, NeedInMemory: true, Filter: s.filter}
	err = ctx.Output(link(t, a, fb))
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestOutputBadBufs(t *testing.T) {
	a := newArena(t)
	s := &sink{}

	for _, bs := range []Bufs{{}, {Num: 1}, {Size: 1}} {
		ctx := &OutputChain{Arena: a, Bufs: bs, Filter: s.filter}
		err := ctx.Output(memChain(t, a, "x"))
		assert.True(t, errors.Is(err, ErrBadBufs), "%+v: got %v", bs, err)
	}
	assert.Zero(t, s.calls)
}

func TestOutputFilterError(t *testing.T) {
	a := newArena(t)
	boom := errors.New("filter failed")
	ctx := &OutputChain{
		Arena:  a,
		Bufs:   Bufs{Num: 1, Size: 8},
		Filter: func(*Chain) error { return boom },
	}

	in := memChain(t, a, "abc")
	in.Buf.Flags |= Flush
	err := ctx.Output(in)
	assert.True(t, errors.Is(err, boom))
}

func TestOutputToChainWriter(t *testing.T) {
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, fmt.Sprintf("part%02d,", i))
	}
	parts = append(parts, strings.Repeat("X", 100), "tail")
	want := strings.Join(parts, "")

	for _, limit := range []int64{0, 1, 5, 64} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			a := newArena(t)
			var out bytes.Buffer
			w := NewChainWriter(a, WriterTransport{W: &out}, limit)
			ctx := &OutputChain{Arena: a, Bufs: Bufs{Num: 2, Size: 8}, Filter: w.Write}

			in := memChain(t, a, parts...)
			last := in
			for last.Next != nil {
				last = last.Next
			}
			last.Buf.Flags |= LastBuf

			err := ctx.Output(in)
			for i := 0; errors.Is(err, ErrAgain); i++ {
				require.Less(t, i, 10000, "no progress")
				err = ctx.Output(nil)
			}
			require.NoError(t, err)

			assert.Equal(t, want, out.String())
			assert.LessOrEqual(t, ctx.allocated, 2)
			assert.False(t, w.Pending())
			assert.False(t, ctx.Busy())
		})
	}
}
