package ports

// FileSystem is the file access an export needs: pre-flight checks on the
// output location, cleanup of partial output, verification and the debug
// and summary artifacts written next to it.
type FileSystem interface {
	// WriteFile writes data to path, creating parent directories. A reader
	// never observes a partially written file.
	WriteFile(path string, data []byte) error

	MkdirAll(path string) error

	// Exists reports whether path exists. Errors other than "not found"
	// are returned as-is.
	Exists(path string) (bool, error)

	Remove(path string) error

	// Size returns the size of a regular file.
	Size(path string) (int64, error)

	// FreeSpace returns the bytes available to unprivileged users on the
	// volume that holds, or would hold, path.
	FreeSpace(path string) (uint64, error)
}
