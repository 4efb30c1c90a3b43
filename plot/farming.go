package plot

import (
	"context"
	"sync/atomic"

	"gitlab.com/NebulousLabs/errors"

	"github.com/raslllos/subspace-1/encoding"
	"github.com/raslllos/subspace-1/plot/posprove"
	"github.com/raslllos/subspace-1/plot/rpcface"
)

// runSlotForwarder subscribes to the node's slot stream and forwards each
// SlotInfo into the farming worker's mailbox, dropping the slot if the
// worker is still busy (spec.md §4.3 "Slot ingress").
func (p *Plot) runSlotForwarder(ctx context.Context) error {
	stream, err := p.nodeClient.SubscribeSlotInfo(ctx)
	if err != nil {
		return errors.Extend(ErrFailedToSubscribeSlotInfo, err)
	}
	for {
		select {
		case <-p.tg.StopChan():
			return nil
		case info, ok := <-stream:
			if !ok {
				return nil
			}
			select {
			case p.slotChanValue <- info:
			default:
				atomic.AddInt64(&p.slotsSkipped, 1)
				if p.metrics != nil {
					p.metrics.SlotsSkipped.Inc()
				}
				p.log.Println("slot", info.SlotNumber, "dropped: farming worker still busy")
			}
		}
	}
}

// runFarming is the dedicated farming worker (spec.md §4.3).
func (p *Plot) runFarming(ctx context.Context) error {
	select {
	case <-p.startChan:
	case <-p.tg.StopChan():
		return nil
	}
	for {
		select {
		case <-p.tg.StopChan():
			return nil
		case info := <-p.slotChanValue:
			if err := p.processSlot(ctx, info); err != nil {
				return err
			}
		}
	}
}

// processSlot audits every plotted sector against the slot's challenge,
// proves any candidates, accumulates up to SolutionsLimit solutions, and
// submits a response regardless of whether any were found.
func (p *Plot) processSlot(ctx context.Context, info rpcface.SlotInfo) error {
	sectorCount := p.vec.Snapshot()

	var solutions []rpcface.Solution

sectors:
	for offset := 0; offset < sectorCount; offset++ {
		meta, ok := p.vec.At(offset)
		if !ok {
			continue
		}
		sectorIndex := p.descriptor.FirstSectorIndex + uint64(offset)
		table := tableFromMetadata(sectorIndex, meta)

		challenge := [32]byte(info.GlobalChallenge)
		candidates := posprove.Audit(table, challenge, uint64(info.VotingSolutionRange))
		if len(candidates) == 0 {
			continue
		}

		window := p.plotReadOnly[uint64(offset)*p.sectorSize : (uint64(offset)+1)*p.sectorSize]
		for _, c := range candidates {
			proof, err := posprove.Prove(table, c, window)
			if err != nil {
				p.log.Println("proving failed for sector", sectorIndex, "candidate", c, ":", err)
				continue
			}
			sig, err := p.identity.Sign(table.Tags[c][:])
			if err != nil {
				p.log.Println("signing failed for sector", sectorIndex, "candidate", c, ":", err)
				continue
			}

			solutions = append(solutions, rpcface.Solution{
				SectorIndex:    sectorIndex,
				PieceOffset:    uint64(c),
				ChunkOffset:    uint32(proof.ChunkOffset),
				Tag:            table.Tags[c],
				RewardAddress:  rpcface.PublicKey(p.identity.PublicKey()),
				ProofOfSpace:   encoding.Marshal(proof),
				AuditSignature: sig[:],
			})

			if len(solutions) >= SolutionsLimit {
				break sectors
			}
		}
		// Within one slot only one sector can be decoded reliably
		// (spec.md §4.3 step 2): stop once a sector has yielded a solution.
		if len(solutions) > 0 {
			break sectors
		}
	}

	resp := rpcface.SolutionResponse{SlotNumber: info.SlotNumber, Solutions: solutions}
	if err := p.nodeClient.SubmitSolutionResponse(ctx, resp); err != nil {
		return errors.Extend(ErrFailedToSubmitSolutionsResponse, err)
	}
	if p.metrics != nil {
		p.metrics.SlotsProcessed.Inc()
		if len(solutions) > 0 {
			p.metrics.SolutionsFound.Add(float64(len(solutions)))
		}
	}
	p.events.emitSolution(SolutionEvent{SlotNumber: info.SlotNumber, Solutions: solutions})
	return nil
}

// tableFromMetadata reconstructs the per-sector audit table from its
// persisted SBucketChunks, each of which carries the chunk's tag in its
// first 8 bytes.
func tableFromMetadata(sectorIndex uint64, meta SectorMetadata) posprove.Table {
	tags := make([]posprove.Tag, len(meta.SBucketChunks))
	for i, chunk := range meta.SBucketChunks {
		copy(tags[i][:], chunk)
	}
	return posprove.Table{SectorIndex: sectorIndex, Tags: tags}
}
