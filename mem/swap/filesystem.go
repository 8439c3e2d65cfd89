// Package swap provides the per-process backing store that holds the full
// image of an address space, and the file systems it can live on.
package swap

import (
	"fmt"
	"os"
	"path/filepath"
)

// A File is an open backing-store file.
type File interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
	Close() error
}

// A FileSystem creates, opens and removes backing-store files.
type FileSystem interface {
	// Create makes a file of size bytes, replacing any file of that name.
	Create(name string, size int64) error

	// Open opens an existing file for reading and writing.
	Open(name string) (File, error)

	// Remove deletes a file.
	Remove(name string) error
}

// ZeroFiller is implemented by file systems that guarantee newly created
// files read back as zeros. Backing stores on other file systems zero the
// ranges they do not load explicitly.
type ZeroFiller interface {
	ZeroFilled() bool
}

// OSFileSystem keeps backing-store files in a host directory.
type OSFileSystem struct {
	dir string
}

// NewOSFileSystem creates the directory if needed and returns a file system
// rooted there.
func NewOSFileSystem(dir string) (*OSFileSystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating swap directory %s: %w", dir, err)
	}

	return &OSFileSystem{dir: dir}, nil
}

// Dir returns the directory holding the files.
func (fs *OSFileSystem) Dir() string {
	return fs.dir
}

func (fs *OSFileSystem) path(name string) string {
	return filepath.Join(fs.dir, filepath.Base(name))
}

// Create makes a sparse file of size bytes.
func (fs *OSFileSystem) Create(name string, size int64) error {
	f, err := os.OpenFile(fs.path(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := f.Truncate(size); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Open opens an existing file.
func (fs *OSFileSystem) Open(name string) (File, error) {
	f, err := os.OpenFile(fs.path(name), os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Remove deletes a file.
func (fs *OSFileSystem) Remove(name string) error {
	return os.Remove(fs.path(name))
}

// ZeroFilled reports that truncated files read back as zeros.
func (*OSFileSystem) ZeroFilled() bool {
	return true
}
