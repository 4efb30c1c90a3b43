package plot

import (
	"os"

	"golang.org/x/sys/unix"
)

// unixMmap maps f's first length bytes, read-write if writable is true or
// read-only otherwise, and hints MADV_RANDOM (a hint only; correctness
// never depends on it — spec.md §9).
func unixMmap(f *os.File, length int64, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(length), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
	return data, nil
}

func unixMunmap(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}

// unixMsyncAll flushes an entire mapping to disk. Sub-range msync requires
// page-aligned offsets on some platforms; syncing the whole mapping avoids
// that hazard at the cost of some extra flush work per sector.
func unixMsyncAll(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Msync(data, unix.MS_SYNC)
}
