package keychain

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/named-data/ndnd/std/security/signer"

	"github.com/roach88/datacollector/internal/ndn"
)

// Identity is an Ed25519 key bound to an NDN key name of the form
// <identity>/KEY/<key-id>. It signs through the embedded ndn.Signer.
type Identity struct {
	ndn.Signer
	public ed25519.PublicKey
}

// NewIdentity binds an existing key pair to identity.
func NewIdentity(identity ndn.Name, private ed25519.PrivateKey) *Identity {
	public := private.Public().(ed25519.PublicKey)
	digest := sha256.Sum256(public)
	keyName := identity.AppendString("KEY").Append(ndn.BytesComponent(digest[:8]))
	return &Identity{
		Signer: signer.NewEd25519Signer(keyName.Lib(), private),
		public: public,
	}
}

// Name returns the identity's key name.
func (id *Identity) Name() ndn.Name {
	return ndn.Name(id.KeyName())
}

// PublicKey returns the identity's public key.
func (id *Identity) PublicKey() ed25519.PublicKey {
	return id.public
}

// Verify reports whether sig is a valid signature of portion by this key.
func (id *Identity) Verify(portion, sig []byte) bool {
	return ed25519.Verify(id.public, portion, sig)
}

// LoadOrCreate loads the key pair stored under dir as <label>.key and
// <label>.pub, generating and saving a new pair when neither exists. The
// private key file is written 0600 and the public key 0644. A present
// but unreadable or wrongly sized key is an error, never silently
// replaced.
func LoadOrCreate(dir, label string, identity ndn.Name) (*Identity, bool, error) {
	privatePath := filepath.Join(dir, label+".key")
	publicPath := filepath.Join(dir, label+".pub")

	raw, err := os.ReadFile(privatePath)
	switch {
	case err == nil:
		if len(raw) != ed25519.PrivateKeySize {
			return nil, false, fmt.Errorf("key %s has %d bytes, want %d", privatePath, len(raw), ed25519.PrivateKeySize)
		}
		return NewIdentity(identity, ed25519.PrivateKey(raw)), false, nil
	case !os.IsNotExist(err):
		return nil, false, fmt.Errorf("reading key %s: %w", privatePath, err)
	}

	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, false, fmt.Errorf("generating Ed25519 key %s: %w", label, err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, false, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(privatePath, private, 0o600); err != nil {
		return nil, false, fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(publicPath, public, 0o644); err != nil {
		return nil, false, fmt.Errorf("writing public key: %w", err)
	}
	return NewIdentity(identity, private), true, nil
}
