// Package posprove provides the narrow, stable interfaces the plot package
// uses to audit and prove sectors, together with concrete stand-ins built on
// the erasure-coding and Merkle-tree libraries available in this module. The
// real proof-of-space table construction, KZG commitment scheme, and reward
// signing are chain-level black boxes (spec'd, but owned elsewhere); the
// stand-ins here let the plot pipelines be exercised and tested end to end
// without a live chain.
package posprove

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/klauspost/reedsolomon"

	"github.com/raslllos/subspace-1/crypto"
)

// ErrNoCandidate is returned by Prove when chunkOffset lies outside the
// table. Prove does not re-run the audit.
var ErrNoCandidate = errors.New("posprove: chunk is not an audit candidate")

// Tag is the derived per-chunk value compared against a slot's solution
// range during an audit.
type Tag [8]byte

// Table is the proof-of-space table for one sector: one derived Tag per
// piece chunk, in on-disk order.
type Table struct {
	SectorIndex uint64
	Tags        []Tag
}

// ErasureCoder is the black-box erasure-coding interface, with a Reed-Solomon
// implementation from NewErasureCoder. Plotting and proving in this module do
// not call it; Decoder holds one in its Coder field but does not use it.
type ErasureCoder interface {
	// Encode computes parity shards in place; shards[:dataShards] must
	// already be populated and shards[dataShards:] must be correctly sized.
	Encode(shards [][]byte) error

	// Reconstruct fills in any nil shards it can recover; returns an error
	// if too many shards are missing.
	Reconstruct(shards [][]byte) error
}

// NewErasureCoder returns an ErasureCoder backed by Reed-Solomon coding with
// the given data/parity shard counts.
func NewErasureCoder(dataShards, parityShards int) (ErasureCoder, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return reedSolomonCoder{enc}, nil
}

type reedSolomonCoder struct {
	enc reedsolomon.Encoder
}

func (c reedSolomonCoder) Encode(shards [][]byte) error {
	return c.enc.Encode(shards)
}

func (c reedSolomonCoder) Reconstruct(shards [][]byte) error {
	return c.enc.Reconstruct(shards)
}

// BuildTable derives a proof-of-space table for a sector by tagging every
// piece with a keyed hash of the owner's public key, the sector index, the
// piece index, and the piece's content. This is a stand-in for the chain's
// real table construction, which additionally mixes in S-bucket layout
// derived from a per-sector salt; SectorMetadata.ProofOfSpaceSalt is where
// that salt would be threaded in by a full implementation.
func BuildTable(sectorIndex uint64, ownerPublicKey [32]byte, pieces [][]byte) Table {
	tags := make([]Tag, len(pieces))
	for i, piece := range pieces {
		tags[i] = deriveTag(sectorIndex, ownerPublicKey, uint64(i), piece)
	}
	return Table{SectorIndex: sectorIndex, Tags: tags}
}

func deriveTag(sectorIndex uint64, ownerPublicKey [32]byte, pieceIndex uint64, piece []byte) Tag {
	var buf [8]byte
	h := crypto.NewHash()
	binary.LittleEndian.PutUint64(buf[:], sectorIndex)
	h.Write(buf[:])
	h.Write(ownerPublicKey[:])
	binary.LittleEndian.PutUint64(buf[:], pieceIndex)
	h.Write(buf[:])
	h.Write(piece)
	sum := h.Sum(nil)
	var tag Tag
	copy(tag[:], sum[:8])
	return tag
}

// Audit returns the indexes of every chunk in the table whose tag, treated
// as a big-endian uint64, falls within solutionRange of globalChallenge.
func Audit(table Table, globalChallenge [32]byte, solutionRange uint64) []int {
	target := binary.BigEndian.Uint64(globalChallenge[:8])
	var candidates []int
	for i, tag := range table.Tags {
		v := binary.BigEndian.Uint64(tag[:])
		dist := v - target
		if v < target {
			dist = target - v
		}
		if dist <= solutionRange {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

// Proof is the material submitted alongside a solution: a Merkle proof that
// the winning piece is part of the sector, rooted at the sector's commitment.
type Proof struct {
	ChunkOffset int
	Base        [crypto.SegmentSize]byte
	HashSet     []crypto.Hash
}

// Prove builds a Proof for the given audit candidate by constructing a
// Merkle proof of the piece's chunk within the sector's byte range. The
// caller is responsible for having already confirmed chunkOffset is a
// winning candidate against the slot's actual challenge and solution range.
func Prove(table Table, chunkOffset int, sectorBytes []byte) (Proof, error) {
	if chunkOffset < 0 || chunkOffset >= len(table.Tags) {
		return Proof{}, ErrNoCandidate
	}
	base, hashSet, err := crypto.BuildReaderProof(bytes.NewReader(sectorBytes), uint64(chunkOffset))
	if err != nil {
		return Proof{}, err
	}
	return Proof{ChunkOffset: chunkOffset, Base: base, HashSet: hashSet}, nil
}

// VerifyProof checks that a Proof's chunk is part of the sector committed to
// by root.
func VerifyProof(p Proof, numSegments uint64, root crypto.Hash) bool {
	return crypto.VerifySegment(p.Base, p.HashSet, numSegments, uint64(p.ChunkOffset), root)
}

// Decoder extracts a single piece from its sector. DecodePiece reads the
// piece directly from the sector bytes; it does not consult Coder and does no
// erasure-coded reconstruction.
type Decoder struct {
	Coder ErasureCoder
}

// DecodePiece extracts the piece at pieceOffset from sectorBytes, which
// holds piecesInSector pieces of equal size laid out contiguously.
func (d Decoder) DecodePiece(sectorBytes []byte, piecesInSector uint16, pieceOffset uint64) ([]byte, error) {
	if piecesInSector == 0 {
		return nil, errors.New("posprove: sector has zero pieces")
	}
	pieceSize := len(sectorBytes) / int(piecesInSector)
	start := int(pieceOffset) * pieceSize
	end := start + pieceSize
	if start < 0 || end > len(sectorBytes) {
		return nil, errors.New("posprove: piece offset out of range")
	}
	out := make([]byte, pieceSize)
	copy(out, sectorBytes[start:end])
	return out, nil
}
