package plot

import (
	modulesync "github.com/raslllos/subspace-1/sync"
)

// sectorVector is the shared, reader-many/writer-one in-memory mirror of
// the first sectorCount entries of metadata.bin's record array (spec.md
// §3). Only the plotting pipeline appends; farming and reading only read.
type sectorVector struct {
	mu      modulesync.TryRWMutex
	entries []SectorMetadata
}

// Len returns the current vector length under a read lock.
func (v *sectorVector) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// At returns a copy of the entry at index i under a read lock.
func (v *sectorVector) At(i int) (SectorMetadata, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i < 0 || i >= len(v.entries) {
		return SectorMetadata{}, false
	}
	return v.entries[i], true
}

// Snapshot returns the current length and is used by the farming pipeline
// to pin the range of sectors it will audit for one slot (spec.md §4.3
// step 1).
func (v *sectorVector) Snapshot() int {
	return v.Len()
}

// Append pushes a newly plotted sector's metadata. Only the plotting
// pipeline calls this, and only after the sector's bytes and metadata
// record have been durably flushed (spec.md §4.2 step 5).
func (v *sectorVector) Append(m SectorMetadata) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append(v.entries, m)
}
