package buf

import "github.com/cockroachdb/errors"

var (
	// ErrAgain reports that the transport would block. The caller retries
	// once the transport is writable; nothing is lost.
	ErrAgain = errors.New("buf: transport would block")

	// ErrNoBuffer reports that every buffer of an output budget is still
	// busy downstream.
	ErrNoBuffer = errors.New("buf: all buffers busy")

	// ErrBadBufs indicates a buffer budget with a non-positive count or size.
	ErrBadBufs = errors.New("buf: bad buffer budget")
)
