package persist

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a file-backed logger that brackets its output with a STARTUP
// line when opened and a SHUTDOWN line when closed, so that a truncated log
// file is visible as missing its closing marker.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// NewLogger creates a logger that appends to filename, creating it if it
// does not already exist, and writes a STARTUP marker.
func NewLogger(filename string) (*Logger, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.Out = f
	log.SetLevel(logrus.InfoLevel)

	fl := &Logger{Logger: log, file: f}
	fl.Println("STARTUP: Logging has started.")
	return fl, nil
}

// Close writes a SHUTDOWN marker and closes the underlying file.
func (fl *Logger) Close() error {
	fl.Println("SHUTDOWN: Logging has terminated.")
	return fl.file.Close()
}
