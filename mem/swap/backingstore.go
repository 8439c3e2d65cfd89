package swap

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Stats counts the I/O issued to a backing store.
type Stats struct {
	Reads        int
	Writes       int
	BytesRead    int64
	BytesWritten int64
}

// A BackingStore is the swap file of one address space. Every access moves
// exactly the requested number of bytes or fails with vm.ErrBackingStoreIO.
type BackingStore struct {
	fs       FileSystem
	name     string
	file     File
	pageSize int
	size     int64
	stats    Stats
	removed  bool
}

// Create makes a backing store of numPages pages named name and opens it.
func Create(
	fs FileSystem,
	name string,
	numPages, pageSize int,
) (*BackingStore, error) {
	size := int64(numPages) * int64(pageSize)

	if err := fs.Create(name, size); err != nil {
		return nil, fmt.Errorf("creating %s: %w: %w",
			name, vm.ErrBackingStoreCreateFailed, err)
	}

	file, err := fs.Open(name)
	if err != nil {
		removeErr := fs.Remove(name)
		return nil, fmt.Errorf("opening %s: %w: %w",
			name, vm.ErrBackingStoreCreateFailed, errors.Join(err, removeErr))
	}

	s := &BackingStore{
		fs:       fs,
		name:     name,
		file:     file,
		pageSize: pageSize,
		size:     size,
	}

	return s, nil
}

// Name returns the file name of the store.
func (s *BackingStore) Name() string {
	return s.name
}

// Size returns the size of the store in bytes.
func (s *BackingStore) Size() int64 {
	return s.size
}

// PageSize returns the page size the store was created with.
func (s *BackingStore) PageSize() int {
	return s.pageSize
}

// Stats returns the I/O counters.
func (s *BackingStore) Stats() Stats {
	return s.stats
}

// ZeroFilled tells if the file system guarantees new files read as zeros.
func (s *BackingStore) ZeroFilled() bool {
	zf, ok := s.fs.(ZeroFiller)
	return ok && zf.ZeroFilled()
}

func (s *BackingStore) checkBounds(length int, off int64) error {
	if off < 0 || off+int64(length) > s.size {
		return fmt.Errorf("%s: %d bytes at offset %d beyond size %d: %w",
			s.name, length, off, s.size, vm.ErrBackingStoreIO)
	}

	return nil
}

// ReadAt fills p from offset off.
func (s *BackingStore) ReadAt(p []byte, off int64) error {
	if err := s.checkBounds(len(p), off); err != nil {
		return err
	}

	n, err := s.file.ReadAt(p, off)
	s.stats.Reads++
	s.stats.BytesRead += int64(n)

	if n != len(p) {
		return fmt.Errorf("%s: read %d of %d bytes at offset %d: %w",
			s.name, n, len(p), off, errors.Join(vm.ErrBackingStoreIO, err))
	}

	return nil
}

// WriteAt stores p at offset off.
func (s *BackingStore) WriteAt(p []byte, off int64) error {
	if err := s.checkBounds(len(p), off); err != nil {
		return err
	}

	n, err := s.file.WriteAt(p, off)
	s.stats.Writes++
	s.stats.BytesWritten += int64(n)

	if n != len(p) || err != nil {
		return fmt.Errorf("%s: wrote %d of %d bytes at offset %d: %w",
			s.name, n, len(p), off, errors.Join(vm.ErrBackingStoreIO, err))
	}

	return nil
}

// ReadPage copies page vPage into dst, which must be one page long.
func (s *BackingStore) ReadPage(vPage int, dst []byte) error {
	s.mustBePage(dst)
	return s.ReadAt(dst, int64(vPage)*int64(s.pageSize))
}

// WritePage stores src, which must be one page long, as page vPage.
func (s *BackingStore) WritePage(vPage int, src []byte) error {
	s.mustBePage(src)
	return s.WriteAt(src, int64(vPage)*int64(s.pageSize))
}

func (s *BackingStore) mustBePage(buf []byte) {
	if len(buf) != s.pageSize {
		panic(fmt.Sprintf("page buffer of %d bytes, page size is %d",
			len(buf), s.pageSize))
	}
}

// Zero writes length zero bytes from offset off, one page at a time.
func (s *BackingStore) Zero(off, length int64) error {
	zeros := make([]byte, s.pageSize)

	for length > 0 {
		n := min(length, int64(len(zeros)))
		if err := s.WriteAt(zeros[:n], off); err != nil {
			return err
		}

		off += n
		length -= n
	}

	return nil
}

// Destroy closes the file and removes it from the file system. Calling it
// again does nothing.
func (s *BackingStore) Destroy() error {
	if s.removed {
		return nil
	}

	s.removed = true

	return errors.Join(s.file.Close(), s.fs.Remove(s.name))
}
