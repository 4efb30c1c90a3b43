package plot

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/raslllos/subspace-1/plot/rpcface"
)

// SectorPlottedEvent is emitted after a sector's bytes and metadata have
// been durably flushed and sector_count advanced (spec.md §4.2 step 5). The
// permit is retained by the subscriber for as long as it wishes to delay
// the next plot; it must release it (Permit.Release(1)) once ready.
type SectorPlottedEvent struct {
	Offset        uint64
	PlottedSector SectorMetadata
	Permit        *semaphore.Weighted
}

// SolutionEvent carries the same Solutions submitted to the node in the
// SolutionResponse for one slot (spec.md §4.3 step 3, §8 scenario 2: "the
// local solution event fires with the same payload").
type SolutionEvent struct {
	SlotNumber uint64
	Solutions  []rpcface.Solution
}

// eventHub fans SectorPlottedEvent and SolutionEvent out to every
// subscriber. Subscribers that fail to keep up simply miss events; this
// matches the teacher's best-effort notification style rather than
// blocking a pipeline on a slow listener.
type eventHub struct {
	mu                  sync.Mutex
	sectorSubscribers   []chan SectorPlottedEvent
	solutionSubscribers []chan SolutionEvent
}

func newEventHub() *eventHub {
	return &eventHub{}
}

// SubscribeSectorPlotted returns a channel that receives every future
// sector_plotted event.
func (p *Plot) SubscribeSectorPlotted() <-chan SectorPlottedEvent {
	p.events.mu.Lock()
	defer p.events.mu.Unlock()
	ch := make(chan SectorPlottedEvent, 8)
	p.events.sectorSubscribers = append(p.events.sectorSubscribers, ch)
	return ch
}

// SubscribeSolutions returns a channel that receives every future solution
// event.
func (p *Plot) SubscribeSolutions() <-chan SolutionEvent {
	p.events.mu.Lock()
	defer p.events.mu.Unlock()
	ch := make(chan SolutionEvent, 8)
	p.events.solutionSubscribers = append(p.events.solutionSubscribers, ch)
	return ch
}

func (h *eventHub) emitSectorPlotted(e SectorPlottedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.sectorSubscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *eventHub) emitSolution(e SolutionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.solutionSubscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
