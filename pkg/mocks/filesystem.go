package mocks

import (
	"fmt"
	"io/fs"
	"sync"

	"github.com/user/karaexport/pkg/ports"
)

// FileSystem is an in-memory ports.FileSystem. The Func hooks override the
// default behaviour for error injection.
type FileSystem struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]bool
	removed []string

	WriteFileFunc func(path string, data []byte) error
	MkdirAllFunc  func(path string) error
	ExistsFunc    func(path string) (bool, error)
	RemoveFunc    func(path string) error
	FreeSpaceFunc func(path string) (uint64, error)

	// Free is returned by FreeSpace when FreeSpaceFunc is nil.
	Free uint64
}

// NewFileSystem returns an empty file system with 1 TiB free.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
		Free:  1 << 40,
	}
}

func (m *FileSystem) WriteFile(path string, data []byte) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(path, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *FileSystem) MkdirAll(path string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path)
	}
	m.AddDir(path)
	return nil
}

func (m *FileSystem) Exists(path string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, isFile := m.files[path]
	return isFile || m.dirs[path], nil
}

func (m *FileSystem) Remove(path string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok && !m.dirs[path] {
		return fmt.Errorf("remove %s: %w", path, fs.ErrNotExist)
	}
	delete(m.files, path)
	delete(m.dirs, path)
	m.removed = append(m.removed, path)
	return nil
}

func (m *FileSystem) Size(path string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return 0, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
	}
	return int64(len(data)), nil
}

func (m *FileSystem) FreeSpace(path string) (uint64, error) {
	if m.FreeSpaceFunc != nil {
		return m.FreeSpaceFunc(path)
	}
	return m.Free, nil
}

// AddDir marks a directory as existing.
func (m *FileSystem) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
}

// GetFile returns what was written to path.
func (m *FileSystem) GetFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// Removed lists the paths passed to a successful Remove, in order.
func (m *FileSystem) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

var _ ports.FileSystem = (*FileSystem)(nil)
