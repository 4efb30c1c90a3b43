// Package persist provides helpers for safely persisting state to disk:
// checksummed JSON snapshots, a startup/shutdown log, and a write-then-rename
// "safe file" primitive. SaveJSON does its own write-then-rename through
// github.com/natefinch/atomic rather than through SafeFile.
package persist

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"gitlab.com/NebulousLabs/fastrand"
)

// RandomSuffix returns a 20-character hex string, useful for disambiguating
// scratch filenames created during the same test run.
func RandomSuffix() string {
	return hex.EncodeToString(fastrand.Bytes(10))
}

// SafeFile wraps an *os.File that is written to a temporary name and only
// takes on its final name once Commit is called, so that a crash or error
// mid-write never leaves the final path holding a torn file.
type SafeFile struct {
	*os.File
	finalName string
}

// NewSafeFile creates a SafeFile that will eventually be renamed to
// finalName. finalName is resolved to an absolute path immediately, so a
// later os.Chdir between NewSafeFile and Commit has no effect on where the
// file ends up.
func NewSafeFile(finalName string) (*SafeFile, error) {
	abs, err := filepath.Abs(finalName)
	if err != nil {
		return nil, err
	}
	tempName := abs + tempSuffix + "-" + RandomSuffix()
	f, err := os.OpenFile(tempName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	return &SafeFile{File: f, finalName: abs}, nil
}

// Commit flushes and closes the temp file and renames it to its final name.
func (sf *SafeFile) Commit() error {
	if err := sf.File.Sync(); err != nil {
		return err
	}
	if err := sf.File.Close(); err != nil {
		return err
	}
	return os.Rename(sf.File.Name(), sf.finalName)
}

// Close closes the temp file. If Commit has not been called, the temp file
// is removed rather than left behind.
func (sf *SafeFile) Close() error {
	name := sf.File.Name()
	err := sf.File.Close()
	if _, statErr := os.Stat(name); statErr == nil {
		os.Remove(name)
	}
	return err
}
