package buf

import (
	"fmt"
	"testing"

	"github.com/pavanmanishd/netbuf/arena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTag Tag = "test"

// tagged returns a link to a tagged temporary buffer holding n unread bytes.
func tagged(t *testing.T, a *arena.Arena, tag Tag, n int) *Chain {
	t.Helper()
	b, err := CreateTempBuf(a, 16)
	require.NoError(t, err)
	b.Last = n
	b.Tag = tag
	return link(t, a, b)
}

func chainOf(links ...*Chain) *Chain {
	for i := 1; i < len(links); i++ {
		links[i-1].Next = links[i]
	}
	if len(links) == 0 {
		return nil
	}
	return links[0]
}

func TestGetFreeBuf(t *testing.T) {
	a := newArena(t)

	first := tagged(t, a, testTag, 0)
	first.Buf.Pos, first.Buf.Last = 5, 9
	second := tagged(t, a, testTag, 0)
	free := chainOf(first, second)

	cl, err := GetFreeBuf(a, &free)
	require.NoError(t, err)
	assert.Same(t, first, cl)
	assert.Nil(t, cl.Next)
	assert.Zero(t, cl.Buf.Pos)
	assert.Zero(t, cl.Buf.Last)
	assert.Same(t, second, free)

	_, err = GetFreeBuf(a, &free)
	require.NoError(t, err)
	assert.Nil(t, free)

	cl, err = GetFreeBuf(a, &free)
	require.NoError(t, err)
	require.NotNil(t, cl.Buf)
	assert.Equal(t, Buf{}, *cl.Buf, "empty free chain yields a zeroed buffer")
}

func TestUpdateChains(t *testing.T) {
	// busy holds k buffers, the first j of them drained
	for _, k := range []int{0, 1, 3, 5} {
		for j := 0; j <= k; j++ {
			t.Run(fmt.Sprintf("busy=%d/drained=%d", k, j), func(t *testing.T) {
				a := newArena(t)

				var busyLinks []*Chain
				for i := 0; i < k; i++ {
					n := 4
					if i < j {
						n = 0
					}
					busyLinks = append(busyLinks, tagged(t, a, testTag, n))
				}
				freeLinks := []*Chain{tagged(t, a, testTag, 0), tagged(t, a, testTag, 0)}
				outLinks := []*Chain{tagged(t, a, testTag, 4), tagged(t, a, "other", 2)}

				busyBufs := bufsOf(chainOf(busyLinks...))
				freeBufs := bufsOf(chainOf(freeLinks...))
				outBufs := bufsOf(chainOf(outLinks...))

				free := chainOf(freeLinks...)
				busy := chainOf(busyLinks...)
				out := chainOf(outLinks...)
				UpdateChains(a, &free, &busy, &out, testTag)

				assert.Nil(t, out)

				wantFree := append(append([]*Buf{}, busyBufs[:j]...), freeBufs...)
				assert.Equal(t, wantFree, bufsOf(free))

				wantBusy := append(append([]*Buf{}, busyBufs[j:]...), outBufs...)
				assert.Equal(t, wantBusy, bufsOf(busy))

				for _, b := range busyBufs[:j] {
					assert.Zero(t, b.Pos)
					assert.Zero(t, b.Last)
				}
			})
		}
	}
}

func TestUpdateChainsStopsAtUnread(t *testing.T) {
	a := newArena(t)

	drained := tagged(t, a, testTag, 0)
	unread := tagged(t, a, testTag, 3)
	behind := tagged(t, a, testTag, 0)

	var free *Chain
	busy := chainOf(drained, unread, behind)
	UpdateChains(a, &free, &busy, nil, testTag)

	assert.Equal(t, []*Buf{drained.Buf}, bufsOf(free))
	assert.Equal(t, []*Buf{unread.Buf, behind.Buf}, bufsOf(busy), "a drained buffer behind unread data stays busy")
}

func TestUpdateChainsForeignTag(t *testing.T) {
	a := newArena(t)

	foreign := tagged(t, a, "upstream", 0)
	own := tagged(t, a, testTag, 0)

	var free *Chain
	busy := chainOf(foreign, own)
	UpdateChains(a, &free, &busy, nil, testTag)

	assert.Nil(t, busy)
	assert.Equal(t, []*Buf{own.Buf}, bufsOf(free))

	// the foreign link went back to the arena
	assert.Same(t, foreign, arena.Recycled[Chain](a))
}

func TestUpdateChainsEmptyOut(t *testing.T) {
	a := newArena(t)

	unread := tagged(t, a, testTag, 1)
	var free, out *Chain
	busy := unread
	UpdateChains(a, &free, &busy, &out, testTag)

	assert.Same(t, unread, busy)
	assert.Nil(t, free)
}
