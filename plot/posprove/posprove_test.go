package posprove

import (
	"bytes"
	"testing"

	"github.com/raslllos/subspace-1/crypto"
)

func testPieces(n, size int) [][]byte {
	pieces := make([][]byte, n)
	for i := range pieces {
		pieces[i] = bytes.Repeat([]byte{byte(i + 1)}, size)
	}
	return pieces
}

// TestBuildTableDeterministic checks that BuildTable derives the same tags
// for the same inputs and different tags when any input changes.
func TestBuildTableDeterministic(t *testing.T) {
	pk := [32]byte{1, 2, 3}
	pieces := testPieces(4, 64)

	t1 := BuildTable(7, pk, pieces)
	t2 := BuildTable(7, pk, pieces)
	if len(t1.Tags) != len(t2.Tags) {
		t.Fatalf("tag count mismatch: %d vs %d", len(t1.Tags), len(t2.Tags))
	}
	for i := range t1.Tags {
		if t1.Tags[i] != t2.Tags[i] {
			t.Fatalf("tag %d not deterministic", i)
		}
	}

	t3 := BuildTable(8, pk, pieces)
	same := true
	for i := range t1.Tags {
		if t1.Tags[i] != t3.Tags[i] {
			same = false
		}
	}
	if same {
		t.Fatal("changing sector index did not change any tag")
	}
}

// TestAuditFindsExactMatch checks that a tag exactly equal to the challenge
// target is always reported as a candidate, regardless of solution range.
func TestAuditFindsExactMatch(t *testing.T) {
	pk := [32]byte{9}
	pieces := testPieces(8, 32)
	table := BuildTable(1, pk, pieces)

	var challenge [32]byte
	copy(challenge[:8], table.Tags[3][:])

	candidates := Audit(table, challenge, 0)
	found := false
	for _, c := range candidates {
		if c == 3 {
			found = true
		}
	}
	if !found {
		t.Fatal("exact-match tag was not reported as an audit candidate")
	}
}

// TestAuditRangeIsMonotonic checks that widening the solution range never
// shrinks the candidate set.
func TestAuditRangeIsMonotonic(t *testing.T) {
	pk := [32]byte{3}
	pieces := testPieces(16, 32)
	table := BuildTable(2, pk, pieces)
	var challenge [32]byte
	challenge[0] = 0x42

	narrow := Audit(table, challenge, 1<<8)
	wide := Audit(table, challenge, 1<<40)
	if len(wide) < len(narrow) {
		t.Fatalf("widening the solution range shrank the candidate set: %d -> %d", len(narrow), len(wide))
	}
}

// TestProveVerifyRoundTrip checks that a Proof built for a candidate chunk
// verifies against the sector's own Merkle root.
func TestProveVerifyRoundTrip(t *testing.T) {
	pk := [32]byte{5}
	numChunks := 4
	chunkSize := crypto.SegmentSize * 2
	sectorBytes := make([]byte, numChunks*chunkSize)
	for i := range sectorBytes {
		sectorBytes[i] = byte(i)
	}
	pieces := testPieces(numChunks, chunkSize)
	table := BuildTable(3, pk, pieces)

	root, err := crypto.ReaderMerkleRoot(bytes.NewReader(sectorBytes))
	if err != nil {
		t.Fatal(err)
	}

	proof, err := Prove(table, 1, sectorBytes)
	if err != nil {
		t.Fatal(err)
	}
	numSegments := uint64(len(sectorBytes)) / crypto.SegmentSize
	if !VerifyProof(proof, numSegments, root) {
		t.Fatal("proof did not verify against the sector's own root")
	}
}

// TestProveOutOfRange checks that Prove rejects a chunk offset outside the
// table.
func TestProveOutOfRange(t *testing.T) {
	table := Table{SectorIndex: 1, Tags: make([]Tag, 2)}
	if _, err := Prove(table, 5, make([]byte, 128)); err != ErrNoCandidate {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
	if _, err := Prove(table, -1, make([]byte, 128)); err != ErrNoCandidate {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
}

// TestDecodePieceRoundTrip checks that DecodePiece returns exactly the bytes
// written for the requested piece offset.
func TestDecodePieceRoundTrip(t *testing.T) {
	piecesInSector := uint16(4)
	pieceSize := 16
	sectorBytes := make([]byte, int(piecesInSector)*pieceSize)
	for i := 0; i < int(piecesInSector); i++ {
		copy(sectorBytes[i*pieceSize:(i+1)*pieceSize], bytes.Repeat([]byte{byte(i)}, pieceSize))
	}

	d := Decoder{}
	for i := 0; i < int(piecesInSector); i++ {
		got, err := d.DecodePiece(sectorBytes, piecesInSector, uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		want := bytes.Repeat([]byte{byte(i)}, pieceSize)
		if !bytes.Equal(got, want) {
			t.Fatalf("piece %d: got %v, want %v", i, got, want)
		}
	}
}

// TestDecodePieceOutOfRange checks that DecodePiece rejects an out-of-range
// piece offset instead of silently slicing past the sector.
func TestDecodePieceOutOfRange(t *testing.T) {
	d := Decoder{}
	sectorBytes := make([]byte, 64)
	if _, err := d.DecodePiece(sectorBytes, 4, 4); err == nil {
		t.Fatal("expected an error for an out-of-range piece offset")
	}
}
