package keychain

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/ndn"
)

// CommandSigner produces signed command Interests in the NDN signed
// Interest format: the SignatureInfo carries a SignatureNonce and a
// SignatureTime, and the name ends with the parameters digest.
// SignatureTime is milliseconds since the Unix epoch and strictly
// increases across calls, as command validators require.
type CommandSigner struct {
	signer ndn.Signer
	clock  clock.Clock
	random io.Reader

	mu   sync.Mutex
	last int64
}

// NewCommandSigner returns a CommandSigner using s for signatures.
func NewCommandSigner(s ndn.Signer, c clock.Clock) *CommandSigner {
	return &CommandSigner{signer: s, clock: c, random: rand.Reader}
}

// WithRandom replaces the nonce source. Tests use it for stable nonces.
func (cs *CommandSigner) WithRandom(r io.Reader) *CommandSigner {
	cs.random = r
	return cs
}

// MakeCommand returns a signed command Interest for name.
func (cs *CommandSigner) MakeCommand(name ndn.Name, lifetime time.Duration) (*ndn.Interest, error) {
	nonce := make([]byte, 8)
	if _, err := io.ReadFull(cs.random, nonce); err != nil {
		return nil, fmt.Errorf("command nonce: %w", err)
	}

	i := &ndn.Interest{Name: name, Lifetime: lifetime}
	if err := i.Sign(cs.signer, nonce, cs.nextTimestamp()); err != nil {
		return nil, fmt.Errorf("sign command %s: %w", name, err)
	}
	return i, nil
}

func (cs *CommandSigner) nextTimestamp() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	ts := cs.clock.Now().UnixMilli()
	if ts <= cs.last {
		ts = cs.last + 1
	}
	cs.last = ts
	return time.UnixMilli(ts)
}

// CommandName strips the parameters digest from a signed command name,
// returning the name the command was made for. Unsigned names are
// returned unchanged.
func CommandName(name ndn.Name) ndn.Name {
	if len(name) > 0 && name.At(-1).Typ == ndn.TypeParametersDigest {
		return name.Prefix(-1)
	}
	return name
}
