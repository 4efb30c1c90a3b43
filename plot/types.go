package plot

import (
	"github.com/google/uuid"

	"github.com/raslllos/subspace-1/crypto"
)

// PlotId is an opaque 128-bit plot identifier, generated once at creation
// and persisted in the descriptor.
type PlotId uuid.UUID

// NewPlotId generates a fresh, random PlotId.
func NewPlotId() PlotId {
	return PlotId(uuid.New())
}

// String returns the canonical string form used in the descriptor.
func (id PlotId) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler so PlotId round-trips
// through the descriptor's JSON as its canonical string form.
func (id PlotId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PlotId) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = PlotId(u)
	return nil
}

// SectorMetadata is the fixed-size per-sector record persisted in
// metadata.bin, required to audit and prove a sector (spec.md §3, §9
// supplemented fields per SPEC_FULL.md §3).
type SectorMetadata struct {
	PieceIndexes     []uint64 // pieces in the sector, on-disk order
	HistorySize      uint64   // archival history size at plot time
	SBucketChunks    [][]byte // proof-of-space auxiliary table material
	ProofOfSpaceSalt [32]byte // salt mixed into this sector's table derivation
}

// metadataHeader is the fixed-size record at offset 0 of metadata.bin.
type metadataHeader struct {
	Version     uint8
	SectorCount uint64
}

// Identity is the narrow signing interface the farming pipeline consumes to
// produce solution signature components. Open obtains one through
// OpenOrCreateFileIdentity, which generates and stores a FileIdentity in the
// plot directory.
type Identity interface {
	PublicKey() [32]byte
	Sign(data []byte) (crypto.Signature, error)
}

// FileIdentity is a file-backed Identity built on an ed25519 keypair whose
// secret key is persisted encrypted at rest.
type FileIdentity struct {
	sk crypto.SecretKey
	pk crypto.PublicKey
}

// PublicKey returns the identity's public key.
func (fi *FileIdentity) PublicKey() [32]byte {
	var pk [32]byte
	copy(pk[:], fi.pk[:])
	return pk
}

// Sign signs data (expected to already be a hash) with the identity's
// secret key.
func (fi *FileIdentity) Sign(data []byte) (crypto.Signature, error) {
	var h crypto.Hash
	copy(h[:], data)
	return crypto.SignHash(h, fi.sk)
}
