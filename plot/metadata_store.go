package plot

import (
	"os"

	"gitlab.com/NebulousLabs/errors"
	"golang.org/x/sys/unix"

	"github.com/raslllos/subspace-1/build"
	"github.com/raslllos/subspace-1/encoding"
)

// headerSize is the fixed encoded size of metadataHeader: encoding.Marshal
// writes every unsigned integer field as 8 bytes, so {version, sectorCount}
// is always 16 bytes regardless of version's declared width.
var headerSize = len(encoding.Marshal(metadataHeader{}))

// sectorMetadataRecordSize returns M, the fixed encoded size of a
// SectorMetadata record for a plot with the given pieces-per-sector. All
// sectors in a plot share the same piece count, so every record is the same
// size, keeping metadata.bin densely packed.
func sectorMetadataRecordSize(piecesInSector uint16) int {
	sample := SectorMetadata{
		PieceIndexes:  make([]uint64, piecesInSector),
		SBucketChunks: make([][]byte, piecesInSector),
	}
	for i := range sample.SBucketChunks {
		sample.SBucketChunks[i] = make([]byte, sBucketChunkSize)
	}
	return len(encoding.Marshal(sample))
}

// metadataStore owns metadata.bin: a memory-mapped fixed header followed by
// a dense array of fixed-size SectorMetadata records (spec.md §3, §4.5).
type metadataStore struct {
	file              *os.File
	data              []byte
	recordSize        int
	targetSectorCount uint64
}

// openMetadataStore opens (creating if necessary) metadata.bin at path,
// sized for targetSectorCount records of piecesInSector pieces each.
func openMetadataStore(path string, targetSectorCount uint64, piecesInSector uint16) (*metadataStore, error) {
	recordSize := sectorMetadataRecordSize(piecesInSector)
	totalSize := int64(ReservedPlotMetadata) + int64(recordSize)*int64(targetSectorCount)

	info, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.AddContext(err, "could not open metadata file")
	}
	if fresh {
		if err := f.Truncate(totalSize); err != nil {
			f.Close()
			return nil, errors.AddContext(err, "could not preallocate metadata file")
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(totalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.AddContext(err, "could not map metadata file")
	}
	// Advisory only; correctness must not depend on it (spec.md §9).
	_ = unix.Madvise(data[ReservedPlotMetadata:], unix.MADV_RANDOM)

	ms := &metadataStore{file: f, data: data, recordSize: recordSize, targetSectorCount: targetSectorCount}

	if fresh {
		if err := ms.writeHeader(metadataHeader{Version: metadataVersion, SectorCount: 0}); err != nil {
			ms.Close()
			return nil, err
		}
	} else {
		h, err := ms.readHeader()
		if err != nil {
			ms.Close()
			return nil, err
		}
		if h.Version != metadataVersion {
			ms.Close()
			return nil, ErrUnexpectedMetadataVersion
		}
	}
	return ms, nil
}

func (ms *metadataStore) readHeader() (metadataHeader, error) {
	var h metadataHeader
	if err := encoding.Unmarshal(ms.data[:headerSize], &h); err != nil {
		return metadataHeader{}, errors.AddContext(err, "could not decode metadata header")
	}
	return h, nil
}

func (ms *metadataStore) writeHeader(h metadataHeader) error {
	copy(ms.data[:headerSize], encoding.Marshal(h))
	return ms.flushRange(0, headerSize)
}

// SectorCount returns the authoritative on-disk count of fully-plotted
// sectors.
func (ms *metadataStore) SectorCount() (uint64, error) {
	h, err := ms.readHeader()
	return h.SectorCount, err
}

// AdvanceSectorCount rewrites the header with a new sector count. Must only
// be called after the corresponding sector and metadata bytes are flushed
// (spec.md §3 invariants).
func (ms *metadataStore) AdvanceSectorCount(n uint64) error {
	return ms.writeHeader(metadataHeader{Version: metadataVersion, SectorCount: n})
}

func (ms *metadataStore) recordOffset(k uint64) int {
	return ReservedPlotMetadata + int(k)*ms.recordSize
}

// RecordWindow returns the writable byte window for record k, for the
// plotting pipeline to fill in place and flush.
func (ms *metadataStore) RecordWindow(k uint64) []byte {
	off := ms.recordOffset(k)
	return ms.data[off : off+ms.recordSize]
}

// WriteRecord encodes m into record k's window.
func (ms *metadataStore) WriteRecord(k uint64, m SectorMetadata) error {
	b := encoding.Marshal(m)
	if len(b) > ms.recordSize {
		return errors.New("encoded sector metadata exceeds the fixed record size")
	}
	window := ms.RecordWindow(k)
	for i := range window {
		window[i] = 0
	}
	copy(window, b)
	return nil
}

// ReadRecord decodes record k.
func (ms *metadataStore) ReadRecord(k uint64) (SectorMetadata, error) {
	var m SectorMetadata
	if err := encoding.Unmarshal(ms.RecordWindow(k), &m); err != nil {
		return SectorMetadata{}, errors.AddContext(err, "could not decode sector metadata record")
	}
	return m, nil
}

// FlushRecord syncs record k's window to disk.
func (ms *metadataStore) FlushRecord(k uint64) error {
	off := ms.recordOffset(k)
	return ms.flushRange(off, ms.recordSize)
}

func (ms *metadataStore) flushRange(off, length int) error {
	return unix.Msync(ms.data[off:off+length], unix.MS_SYNC)
}

// Close unmaps and closes the metadata file.
func (ms *metadataStore) Close() error {
	return build.ComposeErrors(unix.Munmap(ms.data), ms.file.Close())
}
