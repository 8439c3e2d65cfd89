package kernel

import (
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/machine"
	"github.com/sarchlab/vmsim/mem/frame"
	"github.com/sarchlab/vmsim/mem/swap"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addrspace"
	"github.com/sarchlab/vmsim/mem/vm/pagefault"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// A Builder can build kernels.
type Builder struct {
	config config.Config
	loader Loader
	fs     swap.FileSystem
	logger *log.Logger
}

// MakeBuilder returns a Builder with the default configuration, programs
// loaded from the working directory, and logging to stderr.
func MakeBuilder() Builder {
	return Builder{
		config: config.Default(),
		loader: OSLoader{},
		logger: log.New(os.Stderr, "", 0),
	}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(c config.Config) Builder {
	b.config = c
	return b
}

// WithLoader sets where programs are loaded from.
func (b Builder) WithLoader(l Loader) Builder {
	b.loader = l
	return b
}

// WithFileSystem sets where swap files are kept, overriding the SwapDir
// setting.
func (b Builder) WithFileSystem(fs swap.FileSystem) Builder {
	b.fs = fs
	return b
}

// WithLogger sets the logger banners and verbose output go to. A nil logger
// discards them.
func (b Builder) WithLogger(l *log.Logger) Builder {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}

	b.logger = l

	return b
}

// Build creates a kernel with all frames free and no process.
func (b Builder) Build() (*Kernel, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	fs, err := b.fileSystem()
	if err != nil {
		return nil, err
	}

	c := b.config
	rng := rand.New(rand.NewSource(c.Seed))

	victimFinder, err := replacement.New(c.Policy, rng)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		config:    c,
		loader:    b.loader,
		fs:        fs,
		logger:    b.logger,
		machine:   machine.NewSimple(c.NumPhysPages, c.PageSize),
		allocator: frame.NewAllocator(c.NumPhysPages),
		owners:    frame.NewOwnershipTable(c.NumPhysPages),
		processes: make(map[vm.PID]*Process),
		nextPID:   1,
	}

	k.handler = pagefault.MakeBuilder().
		WithPageSize(c.PageSize).
		WithFrameAllocator(k.allocator).
		WithOwnershipTable(k.owners).
		WithVictimFinder(victimFinder).
		WithOwnerResolver(k).
		Build("PageFaultHandler")

	if c.Verbose {
		k.handler.AcceptHook(pagefault.NewLogHook(k.logger))
	}

	k.spaceBuilder = addrspace.MakeBuilder().
		WithPageSize(c.PageSize).
		WithStackSize(c.UserStackSize).
		WithLayout(c.Layout).
		WithTwoLevelShape(c.OuterTableSize, c.InnerTableSize).
		WithFileSystem(fs).
		WithMachine(k.machine).
		WithFrameAllocator(k.allocator).
		WithOwnershipTable(k.owners).
		WithReleaseCallback(k.handler.Release)

	k.machine.SetFaultHandler(k.HandlePageFault)

	return k, nil
}

func (b Builder) fileSystem() (swap.FileSystem, error) {
	if b.fs != nil {
		return b.fs, nil
	}

	if b.config.SwapDir == "" {
		return swap.NewMemFileSystem(), nil
	}

	return swap.NewOSFileSystem(b.config.SwapDir)
}
