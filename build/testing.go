package build

import (
	"os"
	"path/filepath"
)

var (
	// TestDir is the directory that contains all of the files and folders
	// created during testing.
	TestDir = filepath.Join(os.TempDir(), "subspace-farmer-testing")
)

// TempDir joins the provided directories and prefixes them with the testing
// directory, wiping any stale contents left behind by a previous run.
func TempDir(dirs ...string) string {
	path := filepath.Join(TestDir, filepath.Join(dirs...))
	os.RemoveAll(path)
	return path
}
