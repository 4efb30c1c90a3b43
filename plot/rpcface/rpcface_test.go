package rpcface

import (
	"context"
	"testing"
)

// stubNodeClient and stubPieceGetter only exist to pin NodeClient and
// PieceGetter's method sets at compile time; a signature change here should
// be caught the moment this package is built, not downstream in plot.
type stubNodeClient struct{}

func (stubNodeClient) FarmerAppInfo(ctx context.Context) (FarmerAppInfo, error) {
	return FarmerAppInfo{}, nil
}

func (stubNodeClient) SubscribeSlotInfo(ctx context.Context) (<-chan SlotInfo, error) {
	return nil, nil
}

func (stubNodeClient) SubmitSolutionResponse(ctx context.Context, r SolutionResponse) error {
	return nil
}

type stubPieceGetter struct{}

func (stubPieceGetter) GetPiece(ctx context.Context, index PieceIndex) (Piece, error) {
	return nil, nil
}

var (
	_ NodeClient  = stubNodeClient{}
	_ PieceGetter = stubPieceGetter{}
)

// TestSolutionResponseHoldsSolutions checks that a SolutionResponse can carry
// zero or more Solutions without any implicit truncation, since every slot
// must be reported whether or not a solution was found.
func TestSolutionResponseHoldsSolutions(t *testing.T) {
	empty := SolutionResponse{SlotNumber: 1}
	if len(empty.Solutions) != 0 {
		t.Fatalf("zero-value SolutionResponse has %d solutions, want 0", len(empty.Solutions))
	}

	full := SolutionResponse{
		SlotNumber: 2,
		Solutions: []Solution{
			{SectorIndex: 5, PieceOffset: 1, Tag: [8]byte{1, 2}},
			{SectorIndex: 9, PieceOffset: 3, Tag: [8]byte{3, 4}},
		},
	}
	if len(full.Solutions) != 2 {
		t.Fatalf("SolutionResponse has %d solutions, want 2", len(full.Solutions))
	}
	if full.Solutions[0].SectorIndex == full.Solutions[1].SectorIndex {
		t.Fatal("test fixture solutions are not distinct")
	}
}
