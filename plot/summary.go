package plot

import (
	"os"
	"path/filepath"
)

// SummaryStatus classifies one candidate plot directory.
type SummaryStatus int

const (
	// StatusFound means dir holds a readable descriptor.
	StatusFound SummaryStatus = iota
	// StatusNotFound means dir has no descriptor at all.
	StatusNotFound
	// StatusError means dir's descriptor exists but could not be read.
	StatusError
)

// Summary is one entry of a directory scan's result.
type Summary struct {
	Dir        string
	Status     SummaryStatus
	Descriptor Descriptor // zero value unless Status == StatusFound
	Err        error      // non-nil only when Status == StatusError
}

// Found reports dir as holding a valid descriptor.
func Found(d Descriptor, dir string) Summary {
	return Summary{Dir: dir, Status: StatusFound, Descriptor: d}
}

// NotFound reports dir as having no descriptor.
func NotFound(dir string) Summary {
	return Summary{Dir: dir, Status: StatusNotFound}
}

// Error reports dir's descriptor as unreadable.
func Error(dir string, err error) Summary {
	return Summary{Dir: dir, Status: StatusError, Err: err}
}

// CollectSummary scans every immediate subdirectory of root, classifying
// each as holding a plot, not holding one, or failing to decode one
// (spec.md §6 "collect_summary").
func CollectSummary(root string) ([]Summary, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		summaries = append(summaries, summarizeDir(dir))
	}
	return summaries, nil
}

func summarizeDir(dir string) Summary {
	desc, err := loadDescriptor(dir)
	if err != nil {
		return Error(dir, err)
	}
	if desc == nil {
		return NotFound(dir)
	}
	return Found(*desc, dir)
}
