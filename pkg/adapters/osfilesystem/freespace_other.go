//go:build !unix && !windows

package osfilesystem

import "errors"

func freeSpace(string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
