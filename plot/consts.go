package plot

// ReservedPlotMetadata reserves a fixed region at the start of
// metadata.bin for the header and its future growth. Sector-metadata
// records begin immediately after it.
const ReservedPlotMetadata = 1 << 20 // 1 MiB

// SolutionsLimit is the self-imposed cap on solutions submitted per slot
// (spec.md §4.3, Non-goals: "more than one winning solution per slot").
const SolutionsLimit = 1

// PieceRetryAttempts bounds how many times a single piece fetch is retried
// before a sector build is aborted.
const PieceRetryAttempts = 3

// metadataVersion is the only metadata header version this implementation
// understands. A future version would add a new constant here; the record
// layout below is already shaped to make that a additive change.
const metadataVersion = 0

// pieceSize is the fixed size, in bytes, of one archived piece of chain
// history. It is a protocol constant shared with the node, not something a
// plot negotiates per sector.
const pieceSize = 1 << 20 // 1 MiB

// sBucketChunkSize is the fixed size of each proof-of-space auxiliary chunk
// stored per piece in SectorMetadata.SBucketChunks.
const sBucketChunkSize = 32

// SectorSize returns S, the number of bytes a sector holding
// piecesInSector pieces occupies in plot.bin.
func SectorSize(piecesInSector uint16) uint64 {
	return uint64(piecesInSector) * pieceSize
}

// TargetSectorCount returns the number of sectors that fit in
// allocatedSpace bytes at the given piece count, i.e. ⌊allocatedSpace / S⌋.
func TargetSectorCount(allocatedSpace uint64, piecesInSector uint16) uint64 {
	s := SectorSize(piecesInSector)
	if s == 0 {
		return 0
	}
	return allocatedSpace / s
}
