package ndn

import (
	"errors"
	"fmt"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"
	"golang.org/x/text/unicode/norm"
)

// Component is one name component.
type Component = enc.Component

// TypeParametersDigest marks the ParametersSha256Digest component that
// signed Interests carry last.
const TypeParametersDigest enc.TLNum = 0x02

// GenericComponent returns a generic component holding s.
func GenericComponent(s string) Component {
	return enc.NewGenericComponent(s)
}

// NumberComponent returns a generic component holding v as a
// NonNegativeInteger, the encoding repos use for sequence numbers
// appended to a name.
func NumberComponent(v uint64) Component {
	return enc.NewNumberComponent(enc.TypeGenericNameComponent, v)
}

// BytesComponent returns a generic component holding a copy of b.
func BytesComponent(b []byte) Component {
	return Component{Typ: enc.TypeGenericNameComponent, Val: append([]byte(nil), b...)}
}

// Number decodes the component value as a NonNegativeInteger.
func Number(c Component) (uint64, error) {
	switch len(c.Val) {
	case 1, 2, 4, 8:
		return c.NumberVal(), nil
	default:
		return 0, fmt.Errorf("component %s: nonNegativeInteger of %d bytes", c, len(c.Val))
	}
}

// Name is a hierarchical NDN name. Methods that extend a name return a
// new slice and never modify the receiver's backing array.
type Name enc.Name

// ParseName parses an NDN URI such as "/org/bld1/room5". A leading
// "ndn:" scheme is accepted. The URI is NFC-normalised first so the same
// human-entered name always yields the same bytes.
func ParseName(uri string) (Name, error) {
	uri = strings.TrimPrefix(strings.TrimSpace(uri), "ndn:")
	uri = norm.NFC.String(strings.Trim(uri, "/"))
	if uri == "" {
		return Name{}, nil
	}
	n, err := enc.NameFromStr("/" + uri)
	if err != nil {
		return nil, fmt.Errorf("parse name %q: %w", uri, err)
	}
	return Name(n), nil
}

// MustParseName is like ParseName but panics on error.
// Use only in tests or with constant input.
func MustParseName(uri string) Name {
	n, err := ParseName(uri)
	if err != nil {
		panic(err)
	}
	return n
}

// DecodeName decodes the value of a Name element.
func DecodeName(value []byte) (Name, error) {
	r := enc.NewBufferView(value)
	var name Name
	for !r.IsEOF() {
		typ, err := r.ReadTLNum()
		if err != nil {
			return nil, fmt.Errorf("decode name: %w", err)
		}
		l, err := r.ReadTLNum()
		if err != nil {
			return nil, fmt.Errorf("decode name: %w", err)
		}
		val, err := r.ReadBuf(int(l))
		if err != nil {
			return nil, fmt.Errorf("decode name: %w", err)
		}
		if typ == 0 {
			return nil, errors.New("decode name: component of type 0")
		}
		name = append(name, Component{Typ: typ, Val: append([]byte(nil), val...)})
	}
	return name, nil
}

// Lib returns n as the library name type.
func (n Name) Lib() enc.Name {
	return enc.Name(n)
}

// Append returns a new name with cs added.
func (n Name) Append(cs ...Component) Name {
	out := make(Name, 0, len(n)+len(cs))
	out = append(out, n...)
	return append(out, cs...)
}

// AppendName returns a new name with every component of o added.
func (n Name) AppendName(o Name) Name {
	return n.Append(o...)
}

// AppendString returns a new name with a generic text component added.
func (n Name) AppendString(s string) Name {
	return n.Append(GenericComponent(s))
}

// AppendNumber returns a new name with a NonNegativeInteger component added.
func (n Name) AppendNumber(v uint64) Name {
	return n.Append(NumberComponent(v))
}

// At returns the i-th component. Negative indexes count from the end.
func (n Name) At(i int) Component {
	if i < 0 {
		i += len(n)
	}
	return n[i]
}

// Prefix returns the first k components. Negative k drops components
// from the end.
func (n Name) Prefix(k int) Name {
	if k < 0 {
		k += len(n)
	}
	return n[:k:k]
}

// Equal reports whether both names have identical components.
func (n Name) Equal(o Name) bool {
	return enc.Name(n).Equal(enc.Name(o))
}

// IsPrefixOf reports whether n is a prefix of (or equal to) o.
func (n Name) IsPrefixOf(o Name) bool {
	return enc.Name(n).IsPrefix(enc.Name(o))
}

// Encode returns the Name element.
func (n Name) Encode() []byte {
	return enc.Name(n).Bytes()
}

// Key returns a string usable as a map key. Two names have the same key
// exactly when they are Equal.
func (n Name) Key() string {
	return string(n.Encode())
}

// String returns the NDN URI form of the name.
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	return enc.Name(n).String()
}
