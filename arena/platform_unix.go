//go:build unix

package arena

import "golang.org/x/sys/unix"

func pageSize() int {
	return unix.Getpagesize()
}
