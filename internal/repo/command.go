package repo

import (
	"errors"
	"fmt"

	enc "github.com/named-data/ndnd/std/encoding"

	"github.com/roach88/datacollector/internal/ndn"
)

// repo-ng command TLV types.
const (
	TypeRepoCommandParameter enc.TLNum = 201
	TypeStartBlockID         enc.TLNum = 204
	TypeEndBlockID           enc.TLNum = 205
	TypeProcessID            enc.TLNum = 206
	TypeRepoCommandResponse  enc.TLNum = 207
	TypeStatusCode           enc.TLNum = 208
	TypeInsertNum            enc.TLNum = 209

	typeName enc.TLNum = 0x07
)

// Status codes a repo returns to an insert command.
const (
	StatusInProgress uint64 = 100
	StatusOK         uint64 = 200
	StatusMalformed  uint64 = 403
	StatusNotFound   uint64 = 404
)

// CommandParameter names the record an insert command refers to.
type CommandParameter struct {
	Name ndn.Name
}

// Encode returns the RepoCommandParameter element.
func (p CommandParameter) Encode() []byte {
	return appendElement(nil, TypeRepoCommandParameter, p.Name.Encode())
}

// DecodeCommandParameter decodes a RepoCommandParameter element.
func DecodeCommandParameter(wire []byte) (CommandParameter, error) {
	fields, err := readFields(wire, TypeRepoCommandParameter)
	if err != nil {
		return CommandParameter{}, fmt.Errorf("decode command parameter: %w", err)
	}
	value, ok := fields[typeName]
	if !ok {
		return CommandParameter{}, errors.New("decode command parameter: missing name")
	}
	name, err := ndn.DecodeName(value)
	if err != nil {
		return CommandParameter{}, fmt.Errorf("decode command parameter: %w", err)
	}
	return CommandParameter{Name: name}, nil
}

// ParameterOf finds the RepoCommandParameter component in a command name,
// signed or not.
func ParameterOf(command ndn.Name) (CommandParameter, error) {
	for i := len(command) - 1; i >= 0; i-- {
		if p, err := DecodeCommandParameter(command[i].Val); err == nil {
			return p, nil
		}
	}
	return CommandParameter{}, fmt.Errorf("command %s carries no parameter", command)
}

// CommandResponse is a repo's reply to a command.
type CommandResponse struct {
	ProcessID  uint64
	StatusCode uint64
	InsertNum  uint64
}

// Rejected reports whether the repo refused the command.
func (r CommandResponse) Rejected() bool {
	return r.StatusCode >= 400
}

// Encode returns the RepoCommandResponse element.
func (r CommandResponse) Encode() []byte {
	var v []byte
	if r.ProcessID != 0 {
		v = appendNatural(v, TypeProcessID, r.ProcessID)
	}
	v = appendNatural(v, TypeStatusCode, r.StatusCode)
	if r.InsertNum != 0 {
		v = appendNatural(v, TypeInsertNum, r.InsertNum)
	}
	return appendElement(nil, TypeRepoCommandResponse, v)
}

// DecodeCommandResponse decodes the content of a repo reply.
func DecodeCommandResponse(content []byte) (CommandResponse, error) {
	fields, err := readFields(content, TypeRepoCommandResponse)
	if err != nil {
		return CommandResponse{}, fmt.Errorf("decode command response: %w", err)
	}
	if _, ok := fields[TypeStatusCode]; !ok {
		return CommandResponse{}, errors.New("decode command response: missing status code")
	}
	var resp CommandResponse
	for typ, dst := range map[enc.TLNum]*uint64{
		TypeStatusCode: &resp.StatusCode,
		TypeProcessID:  &resp.ProcessID,
		TypeInsertNum:  &resp.InsertNum,
	} {
		value, ok := fields[typ]
		if !ok {
			continue
		}
		if *dst, err = parseNatural(value); err != nil {
			return CommandResponse{}, fmt.Errorf("decode command response %d: %w", typ, err)
		}
	}
	return resp, nil
}

func appendElement(b []byte, typ enc.TLNum, value []byte) []byte {
	length := enc.TLNum(len(value))
	head := make(enc.Buffer, typ.EncodingLength()+length.EncodingLength())
	n := typ.EncodeInto(head)
	length.EncodeInto(head[n:])
	b = append(b, head...)
	return append(b, value...)
}

func appendNatural(b []byte, typ enc.TLNum, v uint64) []byte {
	value := make(enc.Buffer, enc.Nat(v).EncodingLength())
	enc.Nat(v).EncodeInto(value)
	return appendElement(b, typ, value)
}

func parseNatural(value []byte) (uint64, error) {
	switch len(value) {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("nonNegativeInteger of %d bytes", len(value))
	}
	var v uint64
	for _, b := range value {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// readFields reads the outer element of type want and returns the values
// of its direct children by type. Later duplicates are ignored.
func readFields(wire []byte, want enc.TLNum) (map[enc.TLNum][]byte, error) {
	outer := enc.NewBufferView(wire)
	typ, err := outer.ReadTLNum()
	if err != nil {
		return nil, err
	}
	if typ != want {
		return nil, fmt.Errorf("element type %d, want %d", typ, want)
	}
	length, err := outer.ReadTLNum()
	if err != nil {
		return nil, err
	}
	value, err := outer.ReadBuf(int(length))
	if err != nil {
		return nil, err
	}

	fields := make(map[enc.TLNum][]byte)
	inner := enc.NewBufferView(value)
	for !inner.IsEOF() {
		t, err := inner.ReadTLNum()
		if err != nil {
			return nil, err
		}
		l, err := inner.ReadTLNum()
		if err != nil {
			return nil, err
		}
		v, err := inner.ReadBuf(int(l))
		if err != nil {
			return nil, err
		}
		if _, seen := fields[t]; !seen {
			fields[t] = v
		}
	}
	return fields, nil
}
