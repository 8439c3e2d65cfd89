package swap

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vmsim/mem/vm"
)

// shortFile moves one byte less than asked.
type shortFile struct{}

func (shortFile) ReadAt(p []byte, _ int64) (int, error)  { return len(p) - 1, nil }
func (shortFile) WriteAt(p []byte, _ int64) (int, error) { return len(p) - 1, nil }
func (shortFile) Close() error                           { return nil }

type shortFileSystem struct {
	*MemFileSystem
}

func (shortFileSystem) Open(string) (File, error) { return shortFile{}, nil }

type brokenFileSystem struct {
	*MemFileSystem
}

func (brokenFileSystem) Create(string, int64) error {
	return errors.New("disk full")
}

var _ = Describe("BackingStore", func() {
	var (
		fs    *MemFileSystem
		store *BackingStore
	)

	BeforeEach(func() {
		var err error
		fs = NewMemFileSystem()
		store, err = Create(fs, "1.swap", 4, 128)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should size the file to whole pages", func() {
		Expect(store.Size()).To(Equal(int64(512)))
		Expect(store.Name()).To(Equal("1.swap"))
		Expect(store.ZeroFilled()).To(BeTrue())
	})

	It("should round trip a page", func() {
		page := make([]byte, 128)
		for i := range page {
			page[i] = byte(i)
		}

		Expect(store.WritePage(2, page)).To(Succeed())

		back := make([]byte, 128)
		Expect(store.ReadPage(2, back)).To(Succeed())
		Expect(back).To(Equal(page))
		Expect(store.Stats().Writes).To(Equal(1))
		Expect(store.Stats().Reads).To(Equal(1))
	})

	It("should reject accesses past the end", func() {
		err := store.ReadPage(4, make([]byte, 128))

		Expect(err).To(MatchError(vm.ErrBackingStoreIO))
	})

	It("should zero a range", func() {
		Expect(store.WriteAt([]byte{9, 9, 9}, 300)).To(Succeed())

		Expect(store.Zero(200, 300)).To(Succeed())

		buf := make([]byte, 3)
		Expect(store.ReadAt(buf, 300)).To(Succeed())
		Expect(buf).To(Equal([]byte{0, 0, 0}))
	})

	It("should remove the file on destroy, once", func() {
		Expect(store.Destroy()).To(Succeed())
		Expect(fs.Exists("1.swap")).To(BeFalse())

		Expect(store.Destroy()).To(Succeed())
	})

	It("should turn short transfers into errors", func() {
		short, err := Create(shortFileSystem{fs}, "2.swap", 1, 128)
		Expect(err).NotTo(HaveOccurred())

		Expect(short.ReadPage(0, make([]byte, 128))).
			To(MatchError(vm.ErrBackingStoreIO))
		Expect(short.WritePage(0, make([]byte, 128))).
			To(MatchError(vm.ErrBackingStoreIO))
	})

	It("should report create failures", func() {
		_, err := Create(brokenFileSystem{fs}, "3.swap", 1, 128)

		Expect(err).To(MatchError(vm.ErrBackingStoreCreateFailed))
	})
})
