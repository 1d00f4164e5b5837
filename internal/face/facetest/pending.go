package facetest

import (
	"sync"

	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/ndn"
)

type pendingEntry struct {
	interest *ndn.Interest
	onResp   face.ResponseFunc
	timer    clock.Timer
}

// pendingTable tracks expressed Interests until they resolve. Each entry
// resolves once: the first of Data, Nack or lifetime expiry removes it and
// anything arriving later finds nothing to satisfy.
type pendingTable struct {
	clock clock.Clock

	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*pendingEntry
}

// newPendingTable returns an empty table timing lifetimes with c.
func newPendingTable(c clock.Clock) *pendingTable {
	return &pendingTable{clock: c, entries: make(map[uint64]*pendingEntry)}
}

// Add records i and starts its lifetime timer. The returned id can be
// passed to Remove if sending fails.
func (p *pendingTable) Add(i *ndn.Interest, onResp face.ResponseFunc) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	e := &pendingEntry{interest: i, onResp: onResp}
	p.entries[id] = e
	e.timer = p.clock.AfterFunc(i.EffectiveLifetime(), func() { p.expire(id) })
	return id
}

// Remove drops an entry without resolving it.
func (p *pendingTable) Remove(id uint64) {
	p.mu.Lock()
	e, ok := p.entries[id]
	delete(p.entries, id)
	p.mu.Unlock()
	if ok {
		e.timer.Stop()
	}
}

func (p *pendingTable) expire(id uint64) {
	p.mu.Lock()
	e, ok := p.entries[id]
	delete(p.entries, id)
	p.mu.Unlock()
	if ok {
		e.onResp(face.Response{Kind: face.KindTimeout})
	}
}

// SatisfyData resolves every pending Interest that d matches and returns
// how many there were.
func (p *pendingTable) SatisfyData(d *ndn.Data) int {
	matched := p.take(func(e *pendingEntry) bool { return e.interest.Matches(d) })
	for _, e := range matched {
		e.onResp(face.Response{Kind: face.KindData, Data: d})
	}
	return len(matched)
}

// SatisfyNack resolves the pending Interest with the same name and nonce
// as i. It reports whether one was found.
func (p *pendingTable) SatisfyNack(i *ndn.Interest, reason ndn.NackReason) bool {
	matched := p.take(func(e *pendingEntry) bool {
		return e.interest.Nonce == i.Nonce && e.interest.Name.Equal(i.Name)
	})
	for _, e := range matched {
		e.onResp(face.Response{Kind: face.KindNack, Reason: reason})
	}
	return len(matched) > 0
}

func (p *pendingTable) take(match func(*pendingEntry) bool) []*pendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*pendingEntry
	for id, e := range p.entries {
		if match(e) {
			out = append(out, e)
			delete(p.entries, id)
			e.timer.Stop()
		}
	}
	return out
}

// Len returns the number of unresolved Interests.
func (p *pendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
