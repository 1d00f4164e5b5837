package ndn

import (
	"testing"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
		len  int
	}{
		{"/org/bld1/room5", "/org/bld1/room5", 3},
		{"ndn:/org/bld1", "/org/bld1", 2},
		{"org/bld1/", "/org/bld1", 2},
		{"/", "/", 0},
		{"", "/", 0},
		{"/hello%20world", "/hello%20world", 1},
		{"/seq/%00", "/seq/%00", 2},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			name, err := ParseName(tt.uri)
			require.NoError(t, err)
			assert.Len(t, name, tt.len)
			assert.Equal(t, tt.want, name.String())
		})
	}
}

func TestParseName_NormalisesText(t *testing.T) {
	// "e" + combining acute accent composes to U+00E9.
	decomposed, err := ParseName("/cafe\u0301")
	require.NoError(t, err)
	composed, err := ParseName("/caf\u00e9")
	require.NoError(t, err)

	assert.True(t, decomposed.Equal(composed))
}

func TestParseName_GenericComponents(t *testing.T) {
	name, err := ParseName("/org/bld1")
	require.NoError(t, err)
	require.Len(t, name, 2)

	assert.Equal(t, enc.TypeGenericNameComponent, name[0].Typ)
	assert.Equal(t, []byte("bld1"), name[1].Val)
}

func TestName_AppendDoesNotAlias(t *testing.T) {
	base := MustParseName("/org/bld1")
	a := base.AppendString("a")
	b := base.AppendString("b")

	assert.Equal(t, "/org/bld1/a", a.String())
	assert.Equal(t, "/org/bld1/b", b.String())
	assert.Equal(t, "/org/bld1", base.String())
}

func TestName_NumberComponent(t *testing.T) {
	name := MustParseName("/org/bld1/room5/sensor7/repoA").AppendNumber(0)

	assert.Equal(t, "/org/bld1/room5/sensor7/repoA/%00", name.String())
	n, err := Number(name.At(-1))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	big := name.Prefix(-1).AppendNumber(300)
	n, err = Number(big.At(-1))
	require.NoError(t, err)
	assert.Equal(t, uint64(300), n)
	assert.Equal(t, []byte{0x01, 0x2c}, big.At(-1).Val)

	_, err = Number(BytesComponent([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestName_PrefixAndEquality(t *testing.T) {
	prefix := MustParseName("/org/bld1/room5/sensor7")
	full := prefix.AppendString("repoA").AppendNumber(1)

	assert.True(t, prefix.IsPrefixOf(full))
	assert.True(t, full.IsPrefixOf(full))
	assert.False(t, full.IsPrefixOf(prefix))
	assert.False(t, MustParseName("/org/bld2").IsPrefixOf(full))
	assert.True(t, full.Prefix(4).Equal(prefix))
}

func TestName_EncodeDecode(t *testing.T) {
	name := MustParseName("/a/b").AppendNumber(0)
	wire := name.Encode()

	assert.Equal(t, []byte{0x07, 0x09, 0x08, 0x01, 'a', 0x08, 0x01, 'b', 0x08, 0x01, 0x00}, wire)

	back, err := DecodeName(wire[2:])
	require.NoError(t, err)
	assert.True(t, name.Equal(back))
	assert.Equal(t, name.Key(), back.Key())
}

func TestDecodeName_Truncated(t *testing.T) {
	_, err := DecodeName([]byte{0x08, 0x05, 'a'})
	assert.Error(t, err)
}
