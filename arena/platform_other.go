//go:build !unix

package arena

import "os"

func pageSize() int {
	return os.Getpagesize()
}
