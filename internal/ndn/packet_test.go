package ndn

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/security/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return signer.NewEd25519Signer(MustParseName("/test/KEY/1").Lib(), key)
}

// brokenSigner keeps the wrapped signer's metadata but cannot sign.
type brokenSigner struct {
	Signer
}

func (brokenSigner) Sign(enc.Wire) ([]byte, error) {
	return nil, errors.New("key unavailable")
}

func TestInterest_RoundTrip(t *testing.T) {
	in := &Interest{
		Name:        MustParseName("/sensor7"),
		CanBePrefix: true,
		MustBeFresh: true,
		Nonce:       0xdeadbeef,
		Lifetime:    2 * time.Second,
	}

	wire, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeInterest(wire)
	require.NoError(t, err)

	assert.True(t, in.Name.Equal(out.Name))
	assert.True(t, out.CanBePrefix)
	assert.True(t, out.MustBeFresh)
	assert.Equal(t, uint32(0xdeadbeef), out.Nonce)
	assert.Equal(t, 2*time.Second, out.Lifetime)
	assert.Equal(t, SignatureNone, out.SignatureType)
}

func TestInterest_DefaultLifetimeAndNonce(t *testing.T) {
	in := &Interest{Name: MustParseName("/a")}
	assert.Equal(t, DefaultInterestLifetime, in.EffectiveLifetime())

	wire, err := in.Encode()
	require.NoError(t, err)
	assert.NotZero(t, in.Nonce, "nonce assigned on encode")

	out, err := DecodeInterest(wire)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterestLifetime, out.EffectiveLifetime())
	assert.Equal(t, in.Nonce, out.Nonce)
}

func TestInterest_Matches(t *testing.T) {
	data := &Data{Name: MustParseName("/sensor7/reading")}

	exact := &Interest{Name: MustParseName("/sensor7")}
	prefix := &Interest{Name: MustParseName("/sensor7"), CanBePrefix: true}

	assert.False(t, exact.Matches(data))
	assert.True(t, prefix.Matches(data))
	assert.True(t, (&Interest{Name: data.Name}).Matches(data))
}

func TestInterest_SignAppendsParametersDigest(t *testing.T) {
	command := MustParseName("/localhost/repoA/insert")
	in := &Interest{Name: command, Lifetime: time.Second}
	s := testSigner(t)

	require.NoError(t, in.Sign(s, []byte{1, 2, 3, 4, 5, 6, 7, 8}, time.UnixMilli(1_700_000_000_000)))

	assert.True(t, command.IsPrefixOf(in.Name))
	assert.Len(t, in.Name, len(command)+1)
	assert.Equal(t, TypeParametersDigest, in.Name.At(-1).Typ)
	assert.Equal(t, SignatureEd25519, in.SignatureType)

	wire, err := in.Encode()
	require.NoError(t, err)
	again, err := in.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, again, "signed encoding is frozen")

	out, err := DecodeInterest(wire)
	require.NoError(t, err)
	assert.True(t, in.Name.Equal(out.Name))
	assert.Equal(t, SignatureEd25519, out.SignatureType)
	assert.Equal(t, "/test/KEY/1", out.KeyLocator.String())
}

func TestInterest_SignFailure(t *testing.T) {
	in := &Interest{Name: MustParseName("/a")}
	err := in.Sign(brokenSigner{testSigner(t)}, nil, time.Now())
	assert.ErrorContains(t, err, "key unavailable")
}

func TestDecodeInterest_Garbage(t *testing.T) {
	_, err := DecodeInterest([]byte{0x05, 0x03, 0x0a, 0x01})
	assert.Error(t, err)
}

func TestData_SignFreezesWire(t *testing.T) {
	d := &Data{
		Name:      MustParseName("/org/bld1/room5/sensor7/repoA").AppendNumber(0),
		Freshness: time.Second,
		Content:   []byte("23.5\nY2026m10d19H14M03S07"),
	}
	require.NoError(t, d.Sign(testSigner(t)))

	wire := d.Wire()
	d.Content = []byte("mutated after signing")
	assert.Equal(t, wire, d.Wire(), "signed wire must not change")

	decoded, err := DecodeData(wire)
	require.NoError(t, err)
	assert.True(t, decoded.Name.Equal(d.Name))
	assert.Equal(t, "23.5\nY2026m10d19H14M03S07", string(decoded.Content))
	assert.Equal(t, time.Second, decoded.Freshness)
	assert.Equal(t, SignatureEd25519, decoded.SignatureType)
	assert.Equal(t, "/test/KEY/1", decoded.KeyLocator.String())
	assert.Len(t, decoded.SignatureValue, ed25519.SignatureSize)
	assert.Equal(t, wire, decoded.Wire())
}

func TestData_SignFailure(t *testing.T) {
	d := &Data{Name: MustParseName("/a")}
	err := d.Sign(brokenSigner{testSigner(t)})
	assert.ErrorContains(t, err, "key unavailable")
}

func TestData_SignatureCoversContent(t *testing.T) {
	s := testSigner(t)
	a := &Data{Name: MustParseName("/a"), Content: []byte("x")}
	b := &Data{Name: MustParseName("/a"), Content: []byte("y")}
	require.NoError(t, a.Sign(s))
	require.NoError(t, b.Sign(s))

	assert.NotEqual(t, a.SignatureValue, b.SignatureValue)
}

func TestData_UnsignedWireUsesDigest(t *testing.T) {
	d := &Data{Name: MustParseName("/sensor7/reading"), Content: []byte("23.5C")}

	decoded, err := DecodeData(d.Wire())
	require.NoError(t, err)
	assert.Equal(t, SignatureDigestSha256, decoded.SignatureType)
	assert.Equal(t, "23.5C", string(decoded.Content))
}

func TestDecodeData_Garbage(t *testing.T) {
	_, err := DecodeData(nil)
	assert.Error(t, err)

	_, err = DecodeData([]byte{0x06, 0x05, 0x07, 0x01})
	assert.Error(t, err)
}

func TestNackReason_String(t *testing.T) {
	assert.Equal(t, "Congestion", NackCongestion.String())
	assert.Equal(t, "Duplicate", NackDuplicate.String())
	assert.Equal(t, "NoRoute", NackNoRoute.String())
	assert.Equal(t, "None", NackNone.String())
	assert.Equal(t, "Reason(42)", NackReason(42).String())
}
