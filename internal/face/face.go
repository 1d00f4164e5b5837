// Package face connects the collector to a named-data forwarder.
//
// A Face expresses Interests, answers Interests under registered
// prefixes, and puts Data. Every expressed Interest resolves exactly once:
// with Data, with a network Nack, or with a timeout when its lifetime
// passes. Late replies for an already resolved Interest are dropped.
// Callbacks run on the face's own goroutines; callers that need
// serialisation (the collector) hand them to their event loop.
package face

import (
	"fmt"

	"github.com/roach88/datacollector/internal/ndn"
)

// Kind says how an expressed Interest was resolved.
type Kind int

const (
	// KindData means matching Data arrived.
	KindData Kind = iota + 1
	// KindNack means the network returned a Nack.
	KindNack
	// KindTimeout means the Interest lifetime passed without a reply.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindNack:
		return "nack"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Response is the resolution of an expressed Interest.
type Response struct {
	Kind   Kind
	Data   *ndn.Data
	Reason ndn.NackReason
}

// ResponseFunc receives the single resolution of an expressed Interest.
type ResponseFunc func(Response)

// InterestFunc receives an inbound Interest under a registered prefix.
type InterestFunc func(*ndn.Interest)

// Face is the collector's view of the network.
type Face interface {
	// Express sends i and arranges for onResponse to be called once.
	Express(i *ndn.Interest, onResponse ResponseFunc) error

	// Put sends d, typically in answer to an inbound Interest.
	Put(d *ndn.Data) error

	// Register installs onInterest for Interests under prefix and asks the
	// forwarder to route prefix to this face. onResult is called once
	// with nil on success or the reason registration failed.
	Register(prefix ndn.Name, onInterest InterestFunc, onResult func(error))
}
