package arena

import (
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
)

// Cleanup is a handler run once by Destroy. Handler and Data are set by the
// caller after AddCleanup returns.
type Cleanup struct {
	Handler func(data any)
	Data    any
	next    *Cleanup
}

// AddCleanup registers a cleanup record. When size is positive, Data is set
// to size bytes allocated from the arena; otherwise Data is nil. Records run
// at Destroy in the order they were added. Reset does not run them.
//
// The record itself stays valid across Reset, but a byte payload is arena
// memory and is handed out again after Reset like any other allocation.
func (a *Arena) AddCleanup(size int) (*Cleanup, error) {
	a.panicIfDestroyed()

	c := &Cleanup{}
	if size > 0 {
		d, err := a.Alloc(size)
		if err != nil {
			return nil, err
		}
		c.Data = d
	}

	if a.cleanupTail == nil {
		a.cleanup = c
	} else {
		a.cleanupTail.next = c
	}
	a.cleanupTail = c

	a.log.Debug("arena: add cleanup", "size", size)
	return c, nil
}

// OnDestroy registers fn to run at Destroy.
func (a *Arena) OnDestroy(fn func()) error {
	c, err := a.AddCleanup(0)
	if err != nil {
		return err
	}
	c.Handler = func(any) { fn() }
	return nil
}

// FileCleanup is the payload of a cleanup registered by AddFileCleanup.
type FileCleanup struct {
	File   *os.File
	Name   string
	Remove bool // unlink Name before closing

	a *Arena
}

// AddFileCleanup registers f to be closed at Destroy. With remove set the
// file is unlinked first, which is how temporary files are disposed of.
func (a *Arena) AddFileCleanup(f *os.File, remove bool) (*Cleanup, error) {
	c, err := a.AddCleanup(0)
	if err != nil {
		return nil, err
	}
	c.Data = &FileCleanup{File: f, Name: f.Name(), Remove: remove, a: a}
	if remove {
		c.Handler = deleteFile
	} else {
		c.Handler = closeFile
	}
	return c, nil
}

// RunFileCleanup runs the close cleanup registered for f now and disarms it,
// so Destroy does not close f a second time. Cleanups registered with
// remove set are left for Destroy.
func (a *Arena) RunFileCleanup(f *os.File) {
	a.panicIfDestroyed()
	for c := a.cleanup; c != nil; c = c.next {
		fc, ok := c.Data.(*FileCleanup)
		if !ok || fc.File != f || fc.Remove || c.Handler == nil {
			continue
		}
		c.Handler(fc)
		c.Handler = nil
		return
	}
}

func closeFile(data any) {
	fc := data.(*FileCleanup)
	fc.a.log.Debug("arena: file cleanup", "name", fc.Name)
	if err := fc.File.Close(); err != nil {
		fc.a.log.Error("arena: close file failed", "name", fc.Name, "err", err)
	}
}

func deleteFile(data any) {
	fc := data.(*FileCleanup)
	fc.a.log.Debug("arena: file cleanup", "name", fc.Name, "remove", true)
	if err := os.Remove(fc.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fc.a.log.Error("arena: remove file failed", "name", fc.Name, "err", err)
	}
	if err := fc.File.Close(); err != nil {
		fc.a.log.Error("arena: close file failed", "name", fc.Name, "err", err)
	}
}
