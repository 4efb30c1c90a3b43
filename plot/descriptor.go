package plot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gitlab.com/NebulousLabs/errors"
)

const descriptorFilename = "single_disk_plot.json"

// descriptorVariantV0 discriminates the tagged-union descriptor format.
// Only V0 is currently readable; any other value is a fatal decode error
// (spec.md §4.5).
const descriptorVariantV0 = "V0"

// descriptorV0 is the payload of the only currently-supported descriptor
// variant.
type descriptorV0 struct {
	PlotId           PlotId   `json:"plotId"`
	GenesisHash      [32]byte `json:"genesisHash"`
	PublicKey        [32]byte `json:"publicKey"`
	FirstSectorIndex uint64   `json:"firstSectorIndex"`
	PiecesInSector   uint16   `json:"piecesInSector"`
	AllocatedSpace   uint64   `json:"allocatedSpace"`
}

// descriptorEnvelope is the on-disk tagged-union shape: {"variant": "V0",
// ...payload camelCase keys at the top level...}.
type descriptorEnvelope struct {
	Variant string `json:"variant"`
	descriptorV0
}

// Descriptor is the in-memory, variant-erased view of a plot's identity.
type Descriptor struct {
	PlotId           PlotId
	GenesisHash      [32]byte
	PublicKey        [32]byte
	FirstSectorIndex uint64
	PiecesInSector   uint16
	AllocatedSpace   uint64
}

func descriptorPath(dir string) string {
	return filepath.Join(dir, descriptorFilename)
}

// loadDescriptor reads and decodes the descriptor in dir. Returns
// (nil, nil) if no descriptor file exists.
func loadDescriptor(dir string) (*Descriptor, error) {
	raw, err := readFileIfExists(descriptorPath(dir))
	if err != nil {
		return nil, errors.AddContext(err, "could not read plot descriptor")
	}
	if raw == nil {
		return nil, nil
	}
	var env descriptorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Extend(ErrFailedToDecodeDescriptor, err)
	}
	if env.Variant != descriptorVariantV0 {
		return nil, errors.AddContext(ErrFailedToDecodeDescriptor, "unsupported descriptor variant "+env.Variant)
	}
	d := Descriptor(env.descriptorV0)
	return &d, nil
}

// readFileIfExists returns the contents of path, or (nil, nil) if path does
// not exist.
func readFileIfExists(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return b, err
}

// saveDescriptor atomically persists d to dir. Descriptor values are never
// rewritten after creation (spec.md §3 invariants); callers must only call
// this once, at creation.
func saveDescriptor(dir string, d Descriptor) error {
	env := descriptorEnvelope{
		Variant:      descriptorVariantV0,
		descriptorV0: descriptorV0(d),
	}
	b, err := json.MarshalIndent(env, "", "\t")
	if err != nil {
		return errors.AddContext(err, "could not marshal plot descriptor")
	}
	return atomic.WriteFile(descriptorPath(dir), bytes.NewReader(b))
}
