package swap

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrFileNotFound is returned when opening or removing a missing file.
var ErrFileNotFound = errors.New("file not found")

// MemFileSystem keeps files in memory. Each file stores its data in units
// that are only allocated when written, so large sparse swap files cost
// nothing until pages are written back.
type MemFileSystem struct {
	sync.Mutex
	unitSize int64
	files    map[string]*memFile
}

// NewMemFileSystem creates an empty in-memory file system.
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{
		unitSize: 4096,
		files:    make(map[string]*memFile),
	}
}

// Create makes a zero-filled file of size bytes.
func (fs *MemFileSystem) Create(name string, size int64) error {
	if size < 0 {
		return fmt.Errorf("negative file size %d", size)
	}

	fs.Lock()
	defer fs.Unlock()

	fs.files[name] = &memFile{
		unitSize: fs.unitSize,
		size:     size,
		units:    make(map[int64][]byte),
	}

	return nil
}

// Open returns a handle to an existing file.
func (fs *MemFileSystem) Open(name string) (File, error) {
	fs.Lock()
	defer fs.Unlock()

	f, found := fs.files[name]
	if !found {
		return nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}

	return &memHandle{file: f}, nil
}

// Remove deletes a file. Open handles keep working on the removed data.
func (fs *MemFileSystem) Remove(name string) error {
	fs.Lock()
	defer fs.Unlock()

	if _, found := fs.files[name]; !found {
		return fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}

	delete(fs.files, name)

	return nil
}

// Exists tells if a file is present.
func (fs *MemFileSystem) Exists(name string) bool {
	fs.Lock()
	defer fs.Unlock()

	_, found := fs.files[name]

	return found
}

// Names lists the files present.
func (fs *MemFileSystem) Names() []string {
	fs.Lock()
	defer fs.Unlock()

	names := make([]string, 0, len(fs.files))
	for name := range fs.files {
		names = append(names, name)
	}

	return names
}

// ZeroFilled reports that new files read back as zeros.
func (*MemFileSystem) ZeroFilled() bool {
	return true
}

type memFile struct {
	sync.Mutex
	unitSize int64
	size     int64
	units    map[int64][]byte
}

func (f *memFile) parseAddress(addr int64) (baseAddr, inUnitAddr int64) {
	inUnitAddr = addr % f.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// clip limits an access to the file size. Accesses are never extended.
func (f *memFile) clip(p []byte, off int64) (int64, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}

	if off >= f.size {
		return 0, nil
	}

	length := int64(len(p))
	if off+length > f.size {
		length = f.size - off
	}

	return length, nil
}

func (f *memFile) readAt(p []byte, off int64) (int, error) {
	f.Lock()
	defer f.Unlock()

	length, err := f.clip(p, off)
	if err != nil {
		return 0, err
	}

	done := int64(0)
	for done < length {
		baseAddr, inUnitAddr := f.parseAddress(off + done)
		n := min(length-done, f.unitSize-inUnitAddr)

		if unit, found := f.units[baseAddr]; found {
			copy(p[done:done+n], unit[inUnitAddr:inUnitAddr+n])
		} else {
			clear(p[done : done+n])
		}

		done += n
	}

	if length < int64(len(p)) {
		return int(length), io.EOF
	}

	return int(length), nil
}

func (f *memFile) writeAt(p []byte, off int64) (int, error) {
	f.Lock()
	defer f.Unlock()

	length, err := f.clip(p, off)
	if err != nil {
		return 0, err
	}

	done := int64(0)
	for done < length {
		baseAddr, inUnitAddr := f.parseAddress(off + done)
		n := min(length-done, f.unitSize-inUnitAddr)

		unit, found := f.units[baseAddr]
		if !found {
			unit = make([]byte, f.unitSize)
			f.units[baseAddr] = unit
		}

		copy(unit[inUnitAddr:inUnitAddr+n], p[done:done+n])
		done += n
	}

	if length < int64(len(p)) {
		return int(length), io.ErrShortWrite
	}

	return int(length), nil
}

type memHandle struct {
	file   *memFile
	closed bool
}

var errClosed = errors.New("file already closed")

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	if h.closed {
		return 0, errClosed
	}

	return h.file.readAt(p, off)
}

func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	if h.closed {
		return 0, errClosed
	}

	return h.file.writeAt(p, off)
}

func (h *memHandle) Close() error {
	if h.closed {
		return errClosed
	}

	h.closed = true

	return nil
}
