package plot

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"gitlab.com/NebulousLabs/errors"

	"github.com/raslllos/subspace-1/build"
	"github.com/raslllos/subspace-1/persist"
	"github.com/raslllos/subspace-1/plot/metrics"
	"github.com/raslllos/subspace-1/plot/rpcface"
	modulesync "github.com/raslllos/subspace-1/sync"
)

const plotDataFilename = "plot.bin"
const metadataFilename = "metadata.bin"
const logFilename = "plot.log"

// State is the per-plot lifecycle state (spec.md §4.6).
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateStopping
	StateStopped
)

// Options configures Open. The identity key store, node RPC client and
// piece getter are all out-of-scope collaborators supplied by the caller
// (spec.md §1).
type Options struct {
	Dir               string
	AllocatedSpace    uint64
	MaxPiecesInSector uint16
	GenesisHash       [32]byte

	// IdentityPassphrase derives the key that protects the identity file's
	// secret key at rest (plot/identity.go); it is never itself persisted.
	IdentityPassphrase string

	NodeClient  rpcface.NodeClient
	PieceGetter rpcface.PieceGetter

	// PlottingPermit is the externally owned counting semaphore that
	// throttles concurrent sector builds across all disks (spec.md §5).
	PlottingPermit *semaphore.Weighted

	// DiskPermit is the reserved-for-future-use per-disk concurrency
	// limiter (spec.md §5, open question). Constructed and stored but not
	// consulted by this implementation; see DESIGN.md.
	DiskPermit *semaphore.Weighted

	// Metrics is optional; when nil, the plot simply skips instrumentation.
	Metrics *metrics.Metrics
}

// Plot is a single-disk plot: its identity, on-disk state, and the three
// pipelines that operate on it.
type Plot struct {
	dir        string
	descriptor Descriptor
	identity   *FileIdentity

	meta *metadataStore
	vec  *sectorVector

	plotFile     *os.File
	plotWritable []byte // writable mmap, used only by plotting
	plotReadOnly []byte // read-only mmap, used by farming
	plotForRead  []byte // separate read-only mmap, used by reading

	targetSectorCount uint64
	sectorSize        uint64

	nodeClient  rpcface.NodeClient
	pieceGetter rpcface.PieceGetter

	plottingPermit *semaphore.Weighted
	diskPermit     *semaphore.Weighted

	log *persist.Logger
	tg  modulesync.ThreadGroup

	state int32

	errOnce sync.Once
	errCh   chan error

	startOnce sync.Once
	startChan chan struct{}

	// slotChanValue is the one-slot mailbox that models a zero-capacity
	// send-or-drop channel (spec.md §9); the forwarder sends with
	// select+default, so a full mailbox means the slot is stale.
	slotChanValue chan rpcface.SlotInfo

	readRequests chan readRequest

	slotsSkipped int64

	events  *eventHub
	metrics *metrics.Metrics
}

// Open opens an existing plot directory or creates a new plot in it,
// validating every descriptor field against opts and performing the eight
// steps of spec.md §4.1.
func Open(opts Options) (_ *Plot, err error) {
	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, errors.AddContext(err, "could not create plot directory")
	}

	identity, err := OpenOrCreateFileIdentity(opts.Dir, opts.IdentityPassphrase)
	if err != nil {
		return nil, errors.AddContext(err, "could not load or create plot identity")
	}
	pk := identity.PublicKey()

	desc, err := loadDescriptor(opts.Dir)
	if err != nil {
		return nil, err
	}
	if desc != nil {
		if desc.AllocatedSpace != opts.AllocatedSpace {
			return nil, ErrCantResize
		}
		if desc.GenesisHash != opts.GenesisHash {
			return nil, ErrWrongChain
		}
		if desc.PublicKey != pk {
			return nil, ErrIdentityMismatch
		}
		if desc.PiecesInSector > opts.MaxPiecesInSector {
			return nil, ErrInvalidPiecesInSector
		}
	} else {
		targetSectorCount := TargetSectorCount(opts.AllocatedSpace, opts.MaxPiecesInSector)
		if targetSectorCount == 0 {
			return nil, ErrInsufficientAllocatedSpace
		}
		d := Descriptor{
			PlotId:           NewPlotId(),
			GenesisHash:      opts.GenesisHash,
			PublicKey:        pk,
			FirstSectorIndex: deriveFirstSectorIndex(),
			PiecesInSector:   opts.MaxPiecesInSector,
			AllocatedSpace:   opts.AllocatedSpace,
		}
		if err := saveDescriptor(opts.Dir, d); err != nil {
			return nil, errors.AddContext(err, "could not persist new plot descriptor")
		}
		desc = &d
	}

	p := &Plot{
		dir:            opts.Dir,
		descriptor:     *desc,
		identity:       identity,
		nodeClient:     opts.NodeClient,
		pieceGetter:    opts.PieceGetter,
		plottingPermit: opts.PlottingPermit,
		diskPermit:     opts.DiskPermit,
		errCh:          make(chan error, 1),
		startChan:      make(chan struct{}),
		slotChanValue:  make(chan rpcface.SlotInfo, 1),
		readRequests:   make(chan readRequest, 4096),
		events:         newEventHub(),
		metrics:        opts.Metrics,
	}
	p.targetSectorCount = TargetSectorCount(desc.AllocatedSpace, desc.PiecesInSector)
	p.sectorSize = SectorSize(desc.PiecesInSector)

	defer func() {
		if err != nil {
			err = errors.Compose(err, p.tg.Stop())
		}
	}()

	p.log, err = persist.NewLogger(filepath.Join(p.dir, logFilename))
	if err != nil {
		return nil, errors.AddContext(err, "could not create plot logger")
	}
	p.tg.AfterStop(func() {
		_ = p.log.Close()
	})

	p.meta, err = openMetadataStore(filepath.Join(p.dir, metadataFilename), p.targetSectorCount, desc.PiecesInSector)
	if err != nil {
		return nil, errors.AddContext(err, "could not open metadata store")
	}
	p.tg.AfterStop(func() {
		_ = p.meta.Close()
	})

	sectorCount, err := p.meta.SectorCount()
	if err != nil {
		return nil, err
	}
	if sectorCount > p.targetSectorCount {
		return nil, errors.New("on-disk sector count exceeds target sector count")
	}

	p.vec = &sectorVector{}
	for k := uint64(0); k < sectorCount; k++ {
		m, err := p.meta.ReadRecord(k)
		if err != nil {
			return nil, errors.AddContext(err, "could not load sector metadata vector")
		}
		p.vec.Append(m)
	}

	if err := p.openPlotFile(); err != nil {
		return nil, err
	}
	p.tg.AfterStop(func() {
		_ = p.closePlotFile()
	})

	atomic.StoreInt32(&p.state, int32(StateReady))
	return p, nil
}

// State returns the plot's current lifecycle state.
func (p *Plot) State() State {
	return State(atomic.LoadInt32(&p.state))
}

// Start fires the one-shot start signal observed by all three pipelines
// (spec.md §5). Calling it more than once has no additional effect.
func (p *Plot) Start() {
	p.startOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(StateRunning))
		close(p.startChan)
	})
}

// reportFatal records the first fatal error from any pipeline and begins
// the transition to Stopping; subsequent errors are discarded (spec.md §7).
func (p *Plot) reportFatal(err error) {
	if err == nil {
		return
	}
	p.errOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(StateStopping))
		p.errCh <- err
	})
}

// SlotsSkipped returns the number of slots dropped because the farming
// worker was still busy with the previous slot (spec.md §4.3, testable
// property: end-to-end scenario 3).
func (p *Plot) SlotsSkipped() int64 {
	return atomic.LoadInt64(&p.slotsSkipped)
}

// Descriptor returns a copy of the plot's immutable identity.
func (p *Plot) Descriptor() Descriptor {
	return p.descriptor
}

// openPlotFile opens and preallocates plot.bin, then establishes the three
// memory maps described in spec.md §5: one read-write map used only by the
// plotting pipeline to fill sector windows, and two independent read-only
// maps used by farming and reading respectively, each hinted Random on
// platforms that support it.
func (p *Plot) openPlotFile() error {
	path := filepath.Join(p.dir, plotDataFilename)
	totalSize := int64(p.sectorSize) * int64(p.targetSectorCount)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return errors.AddContext(err, "could not open plot data file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.AddContext(err, "could not stat plot data file")
	}
	if info.Size() < totalSize {
		if err := f.Truncate(totalSize); err != nil {
			f.Close()
			return errors.AddContext(err, "could not preallocate plot data file")
		}
	}

	writable, err := unixMmap(f, totalSize, true)
	if err != nil {
		f.Close()
		return errors.AddContext(err, "could not map plot data file for writing")
	}
	farmingMap, err := unixMmap(f, totalSize, false)
	if err != nil {
		unixMunmap(writable)
		f.Close()
		return errors.AddContext(err, "could not map plot data file for farming")
	}
	readingMap, err := unixMmap(f, totalSize, false)
	if err != nil {
		unixMunmap(writable)
		unixMunmap(farmingMap)
		f.Close()
		return errors.AddContext(err, "could not map plot data file for reading")
	}

	p.plotFile = f
	p.plotWritable = writable
	p.plotReadOnly = farmingMap
	p.plotForRead = readingMap
	return nil
}

func (p *Plot) closePlotFile() error {
	return build.ComposeErrors(
		unixMunmap(p.plotWritable),
		unixMunmap(p.plotReadOnly),
		unixMunmap(p.plotForRead),
		p.plotFile.Close(),
	)
}

// deriveFirstSectorIndex derives a starting sector index from a coarse time
// source: the Unix time in seconds shifted into the high 32 bits, leaving the
// low 32 bits for this plot's sector offsets. Plots created within the same
// second get the same value (spec.md §9, flagged open
// question: a globally-coordinated generator would be preferable).
func deriveFirstSectorIndex() uint64 {
	return uint64(time.Now().Unix()) << 32
}
