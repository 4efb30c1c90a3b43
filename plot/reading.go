package plot

import (
	"context"
	"time"

	"github.com/raslllos/subspace-1/plot/posprove"
)

// readRequest is one piece-read request serviced by the reading pipeline
// (spec.md §4.4).
type readRequest struct {
	ctx         context.Context
	sectorIndex uint64
	pieceOffset uint64
	resp        chan []byte
}

// PieceReader is the cloneable handle external callers use to request
// pieces (spec.md §6, "piece_reader() -> PieceReader"). Copies share the
// plot's request queue; the handle has no Close method.
type PieceReader struct {
	p *Plot
}

// PieceReader returns a handle for issuing read requests against p.
func (p *Plot) PieceReader() PieceReader {
	return PieceReader{p: p}
}

// Read requests the piece at (sectorIndex, pieceOffset). The returned
// channel receives exactly one value on success, or is closed with no
// value if the sector is not yet plotted, is out of range, or decoding
// fails.
func (r PieceReader) Read(ctx context.Context, sectorIndex, pieceOffset uint64) (<-chan []byte, error) {
	req := readRequest{
		ctx:         ctx,
		sectorIndex: sectorIndex,
		pieceOffset: pieceOffset,
		resp:        make(chan []byte, 1),
	}
	select {
	case r.p.readRequests <- req:
		return req.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runReading is the dedicated reading worker (spec.md §4.4).
func (p *Plot) runReading(ctx context.Context) error {
	select {
	case <-p.startChan:
	case <-p.tg.StopChan():
		return nil
	}
	for {
		select {
		case <-p.tg.StopChan():
			return nil
		case req := <-p.readRequests:
			p.serveReadRequest(req)
		}
	}
}

func (p *Plot) serveReadRequest(req readRequest) {
	start := time.Now()
	if p.metrics != nil {
		defer func() { p.metrics.ReadLatency.Observe(time.Since(start).Seconds()) }()
	}

	select {
	case <-req.ctx.Done():
		close(req.resp)
		return
	default:
	}

	if req.sectorIndex < p.descriptor.FirstSectorIndex {
		p.log.Println("read request for sector below first_sector_index:", req.sectorIndex)
		close(req.resp)
		return
	}
	offset := req.sectorIndex - p.descriptor.FirstSectorIndex

	if _, ok := p.vec.At(int(offset)); !ok {
		// Sector index >= first_sector_index + sector_count: not yet
		// plotted. The response channel closes with no value (spec.md §8).
		close(req.resp)
		return
	}

	window := p.plotForRead[offset*p.sectorSize : (offset+1)*p.sectorSize]
	decoder := posprove.Decoder{}
	piece, err := decoder.DecodePiece(window, p.descriptor.PiecesInSector, req.pieceOffset)
	if err != nil {
		p.log.Println("could not decode piece", req.pieceOffset, "in sector", req.sectorIndex, ":", err)
		close(req.resp)
		return
	}

	req.resp <- piece
	close(req.resp)
}
