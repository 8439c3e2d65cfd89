package kernel

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// An Executable is an opened program file.
type Executable interface {
	io.ReaderAt
	io.Closer
}

// A Loader opens programs by name.
type Loader interface {
	Open(name string) (Executable, error)
}

// OSLoader opens programs from a host directory. An empty Dir means the
// working directory.
type OSLoader struct {
	Dir string
}

// Open opens the named file.
func (l OSLoader) Open(name string) (Executable, error) {
	path := name
	if l.Dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(l.Dir, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// MemLoader serves programs held in memory, keyed by name.
type MemLoader map[string][]byte

type memExecutable struct {
	*bytes.Reader
}

func (memExecutable) Close() error {
	return nil
}

// Open returns the program stored under name.
func (l MemLoader) Open(name string) (Executable, error) {
	image, found := l[name]
	if !found {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}

	return memExecutable{bytes.NewReader(image)}, nil
}
