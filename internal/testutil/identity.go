// Package testutil provides deterministic fixtures shared by package tests.
package testutil

import (
	"crypto/ed25519"

	"github.com/roach88/datacollector/internal/keychain"
	"github.com/roach88/datacollector/internal/ndn"
)

// StaticIdentity returns a deterministic Ed25519 identity for name. Every
// call with the same name and seed returns the same key, so signatures in
// tests are reproducible.
func StaticIdentity(name string, seed byte) *keychain.Identity {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	return keychain.NewIdentity(ndn.MustParseName(name), ed25519.NewKeyFromSeed(s))
}
