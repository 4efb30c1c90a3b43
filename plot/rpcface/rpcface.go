// Package rpcface defines the narrow interfaces through which the plot
// package talks to a consensus node and to a piece source. Concrete
// implementations (network RPC clients, DHT-backed piece getters) live
// outside this module; the plot package only depends on these interfaces,
// which keeps it testable with hand-written fakes.
package rpcface

import "context"

// Hash256 is a 32-byte digest, used for genesis hashes and global
// challenges.
type Hash256 [32]byte

// PublicKey is a 32-byte ed25519-style public key identifying a farmer.
type PublicKey [32]byte

// SolutionRange bounds the portion of the tag space that currently wins a
// slot.
type SolutionRange uint64

// PieceIndex identifies one archived piece of chain history.
type PieceIndex uint64

// Piece is one fixed-size chunk of archived blockchain history.
type Piece []byte

// ProtocolInfo carries the chain parameters that can change between sectors,
// such as the piece size or erasure-coding shard counts.
type ProtocolInfo struct {
	RecordedHistorySegmentSize uint64
	PiecesInSegment            uint32
}

// FarmerAppInfo is returned by the node and refreshed before every sector is
// plotted, since protocol parameters may change between calls.
type FarmerAppInfo struct {
	GenesisHash Hash256
	Protocol    ProtocolInfo
	LastNewSlot uint64
}

// SlotInfo is delivered once per consensus slot.
type SlotInfo struct {
	SlotNumber          uint64
	GlobalChallenge     Hash256
	VotingSolutionRange SolutionRange
}

// Solution is a fully materialized winning candidate, ready to submit.
type Solution struct {
	SectorIndex    uint64
	PieceOffset    uint64
	ChunkOffset    uint32
	Tag            [8]byte
	RewardAddress  PublicKey
	ProofOfSpace   []byte
	AuditSignature []byte
}

// SolutionResponse is submitted to the node once per slot, whether or not
// any solutions were found.
type SolutionResponse struct {
	SlotNumber uint64
	Solutions  []Solution
}

// NodeClient is the set of node RPCs the farming pipeline depends on.
type NodeClient interface {
	// FarmerAppInfo fetches the current protocol parameters. Open trusts the
	// caller-supplied genesis hash and does not call this; the plotting
	// pipeline calls it again before every sector, since protocol parameters
	// may change between sectors.
	FarmerAppInfo(ctx context.Context) (FarmerAppInfo, error)

	// SubscribeSlotInfo streams one SlotInfo per consensus slot until ctx is
	// cancelled or the stream fails.
	SubscribeSlotInfo(ctx context.Context) (<-chan SlotInfo, error)

	// SubmitSolutionResponse reports the outcome of a slot. Must be called
	// for every processed slot, including empty responses.
	SubmitSolutionResponse(ctx context.Context, r SolutionResponse) error
}

// PieceGetter fetches pieces of archival history by index, potentially from
// a DHT. Callers are expected to wrap it in their own retry policy.
type PieceGetter interface {
	GetPiece(ctx context.Context, index PieceIndex) (Piece, error)
}
