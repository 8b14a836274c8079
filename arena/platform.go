package arena

import "unsafe"

// Platform describes the capabilities an arena is sized against.
type Platform struct {
	PageSize  int    // small allocation ceiling is PageSize-1 at most
	Alignment int    // alignment of Alloc results
	Source    Source // backing memory
}

// DefaultPlatform returns the host page size, pointer alignment and the Go
// heap as backing source.
func DefaultPlatform() Platform {
	return Platform{
		PageSize:  pageSize(),
		Alignment: int(unsafe.Sizeof(uintptr(0))),
		Source:    HeapSource{},
	}
}
