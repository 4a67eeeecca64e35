// Package osfilesystem implements ports.FileSystem on the local disk.
package osfilesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/karaexport/pkg/ports"
)

// ErrNotRegular is returned by Size for directories and other non-regular files.
var ErrNotRegular = errors.New("osfilesystem: not a regular file")

const (
	dirMode  = 0o755
	fileMode = 0o644
)

type FileSystem struct{}

func New() *FileSystem {
	return &FileSystem{}
}

// WriteFile writes to a temporary file in the target directory and renames
// it into place, so summaries and stats are either complete or absent.
func (*FileSystem) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (*FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, dirMode)
}

func (*FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (*FileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (*FileSystem) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	return info.Size(), nil
}

// FreeSpace measures the nearest existing ancestor of path, since the
// output directory may not have been created yet.
func (*FileSystem) FreeSpace(path string) (uint64, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return freeSpace(dir)
}

var _ ports.FileSystem = (*FileSystem)(nil)
