package plot

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"gitlab.com/NebulousLabs/errors"

	"github.com/raslllos/subspace-1/crypto"
	"github.com/raslllos/subspace-1/plot/posprove"
	"github.com/raslllos/subspace-1/plot/rpcface"
)

// runPlotting is the dedicated plotting worker (spec.md §4.2). It awaits
// the start signal, then sequentially fills sectors from the current
// on-disk sector_count up to target_sector_count, gated by the shared
// plotting permit.
func (p *Plot) runPlotting(ctx context.Context) error {
	select {
	case <-p.startChan:
	case <-p.tg.StopChan():
		return nil
	}

	sectorCount, err := p.meta.SectorCount()
	if err != nil {
		return err
	}

	for offset := sectorCount; offset < p.targetSectorCount; offset++ {
		select {
		case <-p.tg.StopChan():
			return nil
		default:
		}

		if err := p.plottingPermit.Acquire(ctx, 1); err != nil {
			// Permit source closed or context cancelled: exit cleanly
			// (spec.md §4.2, "if closed, exit cleanly").
			return nil
		}

		start := time.Now()
		meta, err := p.plotSector(ctx, offset)
		if err != nil {
			p.plottingPermit.Release(1)
			return errors.AddContext(err, "could not plot sector")
		}

		if err := p.finalizeSector(offset, meta); err != nil {
			p.plottingPermit.Release(1)
			return errors.AddContext(err, "could not finalize plotted sector")
		}
		if p.metrics != nil {
			p.metrics.SectorsPlotted.Inc()
			p.metrics.PlottingLatency.Observe(time.Since(start).Seconds())
		}

		p.events.emitSectorPlotted(SectorPlottedEvent{
			Offset:        offset,
			PlottedSector: meta,
			Permit:        p.plottingPermit,
		})
	}
	return nil
}

// plotSector fetches piecesInSector pieces, writes them into the sector's
// writable window, and derives the sector's metadata record (spec.md §4.2
// steps 2-4).
func (p *Plot) plotSector(ctx context.Context, offset uint64) (SectorMetadata, error) {
	sectorIndex := p.descriptor.FirstSectorIndex + offset

	// Protocol parameters may change between sectors; refresh every time.
	info, err := p.nodeClient.FarmerAppInfo(ctx)
	if err != nil {
		return SectorMetadata{}, errors.AddContext(err, "could not fetch farmer app info")
	}

	piecesInSector := p.descriptor.PiecesInSector
	pieces := make([][]byte, piecesInSector)
	pieceIndexes := make([]uint64, piecesInSector)

	for i := 0; i < int(piecesInSector); i++ {
		idx := offset*uint64(piecesInSector) + uint64(i)
		piece, err := p.fetchPieceWithRetry(ctx, rpcface.PieceIndex(idx))
		if err != nil {
			return SectorMetadata{}, errors.AddContext(err, "could not fetch piece for sector")
		}
		pieces[i] = piece
		pieceIndexes[i] = idx
	}

	window := p.plotWritable[offset*p.sectorSize : (offset+1)*p.sectorSize]
	for i, piece := range pieces {
		start := i * pieceSize
		n := copy(window[start:start+pieceSize], piece)
		for j := start + n; j < start+pieceSize; j++ {
			window[j] = 0
		}
	}

	table := posprove.BuildTable(sectorIndex, p.identity.PublicKey(), pieces)
	sbuckets := make([][]byte, len(table.Tags))
	for i, tag := range table.Tags {
		chunk := make([]byte, sBucketChunkSize)
		copy(chunk, tag[:])
		sbuckets[i] = chunk
	}

	salt := crypto.HashAll(sectorIndex, p.identity.PublicKey())

	return SectorMetadata{
		PieceIndexes:     pieceIndexes,
		HistorySize:      info.Protocol.RecordedHistorySegmentSize,
		SBucketChunks:    sbuckets,
		ProofOfSpaceSalt: [32]byte(salt),
	}, nil
}

func (p *Plot) fetchPieceWithRetry(ctx context.Context, index rpcface.PieceIndex) ([]byte, error) {
	var piece rpcface.Piece
	err := retry.Do(
		func() error {
			var err error
			piece, err = p.pieceGetter.GetPiece(ctx, index)
			return err
		},
		retry.Attempts(PieceRetryAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	return []byte(piece), err
}

// finalizeSector flushes the sector's data and metadata windows, then
// advances sector_count and the in-memory vector together, in the order
// required by the durability invariant (spec.md §4.2 step 5).
func (p *Plot) finalizeSector(offset uint64, meta SectorMetadata) error {
	if err := p.meta.WriteRecord(offset, meta); err != nil {
		return err
	}
	if err := unixMsyncAll(p.plotWritable); err != nil {
		return errors.AddContext(err, "could not flush sector data")
	}
	if err := p.meta.FlushRecord(offset); err != nil {
		return errors.AddContext(err, "could not flush sector metadata record")
	}
	if err := p.meta.AdvanceSectorCount(offset + 1); err != nil {
		return errors.AddContext(err, "could not advance sector count")
	}
	p.vec.Append(meta)
	return nil
}
