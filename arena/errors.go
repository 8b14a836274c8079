package arena

import "github.com/cockroachdb/errors"

var (
	// ErrNoMemory indicates that the backing Source could not supply memory.
	// It fails the single allocation; the caller decides whether the owning
	// request or connection can go on.
	ErrNoMemory = errors.New("arena: allocation failed")

	// ErrBadSize indicates a negative size or an arena smaller than its header.
	ErrBadSize = errors.New("arena: bad size")

	// ErrBadAlignment indicates an alignment that is not a power of two.
	ErrBadAlignment = errors.New("arena: alignment must be a power of two")
)

// noMemory marks err as ErrNoMemory while keeping the Source's cause.
func noMemory(err error, size int) error {
	return errors.Mark(errors.Wrapf(err, "arena: acquire %d bytes", size), ErrNoMemory)
}
