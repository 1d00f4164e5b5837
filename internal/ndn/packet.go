package ndn

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	stdndn "github.com/named-data/ndnd/std/ndn"
	spec "github.com/named-data/ndnd/std/ndn/spec_2022"
	"github.com/named-data/ndnd/std/security/signer"
	"github.com/named-data/ndnd/std/types/optional"
)

// DefaultInterestLifetime applies when an Interest carries no lifetime.
const DefaultInterestLifetime = 4 * time.Second

// Signer produces signatures for Data and signed Interests.
type Signer = stdndn.Signer

// SigType identifies a signature algorithm.
type SigType = stdndn.SigType

// Signature types the collector produces.
const (
	SignatureNone         = stdndn.SignatureNone
	SignatureDigestSha256 = stdndn.SignatureDigestSha256
	SignatureEd25519      = stdndn.SignatureEd25519
)

// Interest is a request for named data. Signed Interests freeze their
// encoding when Sign succeeds; Name then ends with the parameters digest.
type Interest struct {
	Name        Name
	CanBePrefix bool
	MustBeFresh bool
	Nonce       uint32
	Lifetime    time.Duration

	SignatureType SigType
	KeyLocator    Name

	encoded *stdndn.EncodedInterest
}

// EffectiveLifetime returns Lifetime, or the protocol default when unset.
func (i *Interest) EffectiveLifetime() time.Duration {
	if i.Lifetime <= 0 {
		return DefaultInterestLifetime
	}
	return i.Lifetime
}

func (i *Interest) config() *stdndn.InterestConfig {
	if i.Nonce == 0 {
		i.Nonce = rand.Uint32()
	}
	return &stdndn.InterestConfig{
		CanBePrefix: i.CanBePrefix,
		MustBeFresh: i.MustBeFresh,
		Nonce:       optional.Some(i.Nonce),
		Lifetime:    optional.Some(i.EffectiveLifetime()),
	}
}

// Sign signs the Interest with s, stamping the signature with nonce and
// at, and freezes its encoding.
func (i *Interest) Sign(s Signer, nonce []byte, at time.Time) error {
	cfg := i.config()
	cfg.SigNonce = nonce
	cfg.SigTime = optional.Some(time.Duration(at.UnixMilli()) * time.Millisecond)
	encoded, err := spec.Spec{}.MakeInterest(i.Name.Lib(), cfg, enc.Wire{}, s)
	if err != nil {
		return fmt.Errorf("sign interest %s: %w", i.Name, err)
	}
	i.encoded = encoded
	i.Name = Name(encoded.FinalName)
	i.SignatureType = s.Type()
	i.KeyLocator = Name(s.KeyLocator())
	return nil
}

// Encoded returns the library form of the Interest, assigning a nonce
// first when none is set.
func (i *Interest) Encoded() (*stdndn.EncodedInterest, error) {
	if i.encoded != nil {
		return i.encoded, nil
	}
	encoded, err := spec.Spec{}.MakeInterest(i.Name.Lib(), i.config(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("encode interest %s: %w", i.Name, err)
	}
	return encoded, nil
}

// Encode returns the Interest element.
func (i *Interest) Encode() ([]byte, error) {
	encoded, err := i.Encoded()
	if err != nil {
		return nil, err
	}
	return encoded.Wire.Join(), nil
}

// Matches reports whether d satisfies the Interest.
func (i *Interest) Matches(d *Data) bool {
	if i.CanBePrefix {
		return i.Name.IsPrefixOf(d.Name)
	}
	return i.Name.Equal(d.Name)
}

// FromInterest converts a decoded library Interest.
func FromInterest(x stdndn.Interest) *Interest {
	i := &Interest{
		Name:          Name(x.Name()),
		CanBePrefix:   x.CanBePrefix(),
		MustBeFresh:   x.MustBeFresh(),
		SignatureType: SignatureNone,
	}
	if nonce, ok := x.Nonce().Get(); ok {
		i.Nonce = nonce
	}
	if lifetime, ok := x.Lifetime().Get(); ok {
		i.Lifetime = lifetime
	}
	if sig := x.Signature(); sig != nil {
		i.SignatureType = sig.SigType()
		i.KeyLocator = Name(sig.KeyName())
	}
	return i
}

// DecodeInterest decodes a complete Interest element.
func DecodeInterest(wire []byte) (*Interest, error) {
	x, _, err := spec.Spec{}.ReadInterest(enc.NewBufferView(wire))
	if err != nil {
		return nil, fmt.Errorf("decode interest: %w", err)
	}
	return FromInterest(x), nil
}

// Data is a named, signed unit of content. Once Sign succeeds the wire
// encoding is fixed and every call to Wire returns the same bytes.
type Data struct {
	Name           Name
	Freshness      time.Duration
	Content        []byte
	SignatureType  SigType
	KeyLocator     Name
	SignatureValue []byte

	wire []byte
}

func (d *Data) encode(s Signer) ([]byte, error) {
	cfg := &stdndn.DataConfig{ContentType: optional.Some(stdndn.ContentTypeBlob)}
	if d.Freshness > 0 {
		cfg.Freshness = optional.Some(d.Freshness)
	}
	encoded, err := spec.Spec{}.MakeData(d.Name.Lib(), cfg, enc.Wire{d.Content}, s)
	if err != nil {
		return nil, err
	}
	return encoded.Wire.Join(), nil
}

// Sign signs the packet with s and freezes its wire encoding.
func (d *Data) Sign(s Signer) error {
	wire, err := d.encode(s)
	if err != nil {
		return fmt.Errorf("sign %s: %w", d.Name, err)
	}
	signed, err := DecodeData(wire)
	if err != nil {
		return fmt.Errorf("sign %s: %w", d.Name, err)
	}
	d.SignatureType = signed.SignatureType
	d.KeyLocator = signed.KeyLocator
	d.SignatureValue = signed.SignatureValue
	d.wire = wire
	return nil
}

// Wire returns the Data element. Signed and decoded packets return their
// frozen encoding; others are encoded with a SHA-256 digest signature.
func (d *Data) Wire() []byte {
	if d.wire != nil {
		return d.wire
	}
	wire, err := d.encode(signer.NewSha256Signer())
	if err != nil {
		return nil
	}
	return wire
}

// FromData converts a decoded library Data. raw, when present, becomes
// the frozen encoding.
func FromData(x stdndn.Data, raw enc.Wire) *Data {
	d := &Data{
		Name:          Name(x.Name()),
		Content:       x.Content().Join(),
		SignatureType: SignatureNone,
	}
	if freshness, ok := x.Freshness().Get(); ok {
		d.Freshness = freshness
	}
	if sig := x.Signature(); sig != nil {
		d.SignatureType = sig.SigType()
		d.KeyLocator = Name(sig.KeyName())
		d.SignatureValue = bytes.Clone(sig.SigValue())
	}
	if raw != nil {
		d.wire = raw.Join()
	}
	return d
}

// DecodeData decodes a complete Data element. The signature is not
// verified.
func DecodeData(wire []byte) (*Data, error) {
	if len(wire) == 0 {
		return nil, errors.New("decode data: empty packet")
	}
	x, _, err := spec.Spec{}.ReadData(enc.NewBufferView(wire))
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return FromData(x, enc.Wire{bytes.Clone(wire)}), nil
}

// NackReason is the reason code carried in a network Nack.
type NackReason uint64

// Nack reasons defined by NDNLPv2.
const (
	NackNone       NackReason = 0
	NackCongestion NackReason = 50
	NackDuplicate  NackReason = 100
	NackNoRoute    NackReason = 150
)

func (r NackReason) String() string {
	switch r {
	case NackNone:
		return "None"
	case NackCongestion:
		return "Congestion"
	case NackDuplicate:
		return "Duplicate"
	case NackNoRoute:
		return "NoRoute"
	default:
		return fmt.Sprintf("Reason(%d)", uint64(r))
	}
}
