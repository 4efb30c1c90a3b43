package persist

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/crypto/blake2b"
)

// persistDir is the directory, relative to a testing temp root, that
// exercises of this package write their scratch files into.
const persistDir = "persist"

// tempSuffix marks a file as a write-in-progress copy; LoadJSON refuses to
// read one directly, since its contents may be torn.
const tempSuffix = ".tmp"

var (
	// ErrBadFilenameSuffix is returned when LoadJSON is asked to load a file
	// ending in tempSuffix.
	ErrBadFilenameSuffix = errors.New("cannot load file with the temp file suffix, preventing accidental corruption")

	// ErrBadVersion is returned when the metadata version of the file on
	// disk does not match the version requested by the caller.
	ErrBadVersion = errors.New("persist metadata version mismatch")

	// ErrBadHeader is returned when the metadata header of the file on disk
	// does not match the header requested by the caller.
	ErrBadHeader = errors.New("persist metadata header mismatch")

	// errChecksumMismatch is returned when a file's embedded checksum does
	// not match the checksum of its payload.
	errChecksumMismatch = errors.New("persist file failed checksum verification")
)

// Metadata identifies the type and version of a persisted object, written
// alongside it so that LoadJSON can refuse to load a file written by a
// different, incompatible version of the struct being persisted.
type Metadata struct {
	Header  string
	Version string
}

// persistFile is the on-disk envelope around a persisted JSON object: the
// identifying metadata, a hex checksum of the marshalled data, and the data
// itself.
type persistFile struct {
	Header   string
	Version  string
	Checksum string
	Data     json.RawMessage
}

// SaveJSON writes object to filename as JSON, tagged with meta and a
// checksum of the encoded data, using a write-rename so that a reader never
// observes a partially written file.
func SaveJSON(meta Metadata, object interface{}, filename string) error {
	data, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("could not marshal persisted object: %w", err)
	}
	sum := blake2b.Sum256(data)
	pf := persistFile{
		Header:   meta.Header,
		Version:  meta.Version,
		Checksum: hex.EncodeToString(sum[:]),
		Data:     data,
	}
	full, err := json.MarshalIndent(pf, "", "\t")
	if err != nil {
		return fmt.Errorf("could not marshal persist envelope: %w", err)
	}
	return atomic.WriteFile(filename, bytes.NewReader(full))
}

// LoadJSON reads the file written by SaveJSON, verifies meta and the
// checksum, and unmarshals the payload into object.
func LoadJSON(meta Metadata, object interface{}, filename string) error {
	if strings.HasSuffix(filename, tempSuffix) {
		return ErrBadFilenameSuffix
	}
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	var pf persistFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("could not parse persist envelope: %w", err)
	}
	if pf.Header != meta.Header {
		return ErrBadHeader
	}
	if pf.Version != meta.Version {
		return ErrBadVersion
	}
	sum := blake2b.Sum256(pf.Data)
	if hex.EncodeToString(sum[:]) != pf.Checksum {
		return errChecksumMismatch
	}
	return json.Unmarshal(pf.Data, object)
}
