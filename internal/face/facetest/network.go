// Package facetest provides an in-memory face.Face for tests.
package facetest

import (
	"sync"

	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/ndn"
)

// Reply is a handler's answer to an expressed Interest.
type Reply struct {
	Data   *ndn.Data
	IsNack bool
	Reason ndn.NackReason
}

// DataReply answers with d.
func DataReply(d *ndn.Data) Reply { return Reply{Data: d} }

// NackReply answers with a network Nack.
func NackReply(reason ndn.NackReason) Reply { return Reply{IsNack: true, Reason: reason} }

// Handler answers an expressed Interest. Returning false drops it, leaving
// the Interest to time out.
type Handler func(i *ndn.Interest) (Reply, bool)

type route struct {
	prefix  ndn.Name
	handler Handler
}

type filter struct {
	prefix     ndn.Name
	onInterest face.InterestFunc
}

// Network is an in-memory face.Face. Interests expressed through it are
// answered by handlers installed with Handle; an Interest no handler
// answers stays pending until its lifetime passes on the Network's clock.
// Handlers and callbacks run synchronously on the caller's goroutine.
type Network struct {
	pit *pendingTable

	mu          sync.Mutex
	routes      []route
	filters     []filter
	registerErr error
	nonce       uint32
	expressed   []*ndn.Interest
	puts        []*ndn.Data
	registered  []ndn.Name
}

// New returns an empty Network timing lifetimes with c.
func New(c clock.Clock) *Network {
	return &Network{pit: newPendingTable(c)}
}

// Handle installs h for Interests under prefix. The earliest installed
// matching handler answers.
func (n *Network) Handle(prefix ndn.Name, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route{prefix: prefix, handler: h})
}

// FailRegistration makes every later Register call fail with err.
func (n *Network) FailRegistration(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registerErr = err
}

// Express implements face.Face.
func (n *Network) Express(i *ndn.Interest, onResponse face.ResponseFunc) error {
	n.mu.Lock()
	if i.Nonce == 0 {
		n.nonce++
		i.Nonce = n.nonce
	}
	n.expressed = append(n.expressed, i)
	var h Handler
	for _, r := range n.routes {
		if r.prefix.IsPrefixOf(i.Name) {
			h = r.handler
			break
		}
	}
	n.mu.Unlock()

	n.pit.Add(i, onResponse)
	if h == nil {
		return nil
	}
	reply, ok := h(i)
	if !ok {
		return nil
	}
	if reply.IsNack {
		n.pit.SatisfyNack(i, reply.Reason)
		return nil
	}
	n.pit.SatisfyData(reply.Data)
	return nil
}

// Put implements face.Face. Put Data satisfies pending Fetch calls.
func (n *Network) Put(d *ndn.Data) error {
	n.mu.Lock()
	n.puts = append(n.puts, d)
	n.mu.Unlock()

	n.pit.SatisfyData(d)
	return nil
}

// Register implements face.Face.
func (n *Network) Register(prefix ndn.Name, onInterest face.InterestFunc, onResult func(error)) {
	n.mu.Lock()
	err := n.registerErr
	if err == nil {
		n.filters = append(n.filters, filter{prefix: prefix, onInterest: onInterest})
		n.registered = append(n.registered, prefix)
	}
	n.mu.Unlock()

	onResult(err)
}

// Inject delivers i to the filters registered under a prefix of its name,
// as if it arrived from the network. It reports whether any filter took it.
func (n *Network) Inject(i *ndn.Interest) bool {
	n.mu.Lock()
	var targets []face.InterestFunc
	for _, f := range n.filters {
		if f.prefix.IsPrefixOf(i.Name) {
			targets = append(targets, f.onInterest)
		}
	}
	n.mu.Unlock()

	for _, fn := range targets {
		fn(i)
	}
	return len(targets) > 0
}

// Fetch plays a remote consumer: it expresses an Interest for name toward
// the registered filters and calls onResponse with the Data a filter Puts,
// or with a timeout.
func (n *Network) Fetch(name ndn.Name, onResponse face.ResponseFunc) {
	n.mu.Lock()
	n.nonce++
	i := &ndn.Interest{Name: name, Nonce: n.nonce}
	n.mu.Unlock()

	n.pit.Add(i, onResponse)
	n.Inject(i)
}

// Expressed returns the Interests expressed so far.
func (n *Network) Expressed() []*ndn.Interest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ndn.Interest(nil), n.expressed...)
}

// Puts returns the Data put so far.
func (n *Network) Puts() []*ndn.Data {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ndn.Data(nil), n.puts...)
}

// Registered returns the prefixes registered so far.
func (n *Network) Registered() []ndn.Name {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ndn.Name(nil), n.registered...)
}

// Pending returns the number of unresolved Interests.
func (n *Network) Pending() int {
	return n.pit.Len()
}
