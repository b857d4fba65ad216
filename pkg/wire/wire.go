// Package wire reads and writes the protobuf wire format used to exchange
// verification rules, verification requests and issuer parameters. Only the
// varint and length-delimited wire types are produced; other wire types are
// skipped on input.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrMalformed     = errors.New("malformed wire encoding")
	ErrWrongWireType = errors.New("unexpected wire type")
)

// Field is a single decoded field of a message.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// ExpectBytes returns an error unless f is length-delimited.
func (f Field) ExpectBytes() error {
	if f.Type != protowire.BytesType {
		return fmt.Errorf("%w: field %d has type %d, want bytes", ErrWrongWireType, f.Num, f.Type)
	}
	return nil
}

// ExpectVarint returns an error unless f is a varint.
func (f Field) ExpectVarint() error {
	if f.Type != protowire.VarintType {
		return fmt.Errorf("%w: field %d has type %d, want varint", ErrWrongWireType, f.Num, f.Type)
	}
	return nil
}

// Walk calls fn for every top-level field of the message in b, in order.
// Fields of fixed-width or group wire types are skipped without calling fn.
func Walk(b []byte, fn func(f Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			f.Varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			f.Bytes = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		if err := fn(f); err != nil {
			return err
		}
	}

	return nil
}

// Encoder appends fields to a message buffer.
type Encoder struct {
	b []byte
}

// Bytes appends a length-delimited field.
func (e *Encoder) Bytes(num protowire.Number, v []byte) *Encoder {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
	return e
}

// OptBytes appends a length-delimited field unless v is empty.
func (e *Encoder) OptBytes(num protowire.Number, v []byte) *Encoder {
	if len(v) == 0 {
		return e
	}
	return e.Bytes(num, v)
}

// String appends a string field.
func (e *Encoder) String(num protowire.Number, v string) *Encoder {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
	return e
}

// OptString appends a string field unless v is empty.
func (e *Encoder) OptString(num protowire.Number, v string) *Encoder {
	if v == "" {
		return e
	}
	return e.String(num, v)
}

// Uint64 appends a varint field.
func (e *Encoder) Uint64(num protowire.Number, v uint64) *Encoder {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
	return e
}

// Message appends a nested message built by sub.
func (e *Encoder) Message(num protowire.Number, sub *Encoder) *Encoder {
	return e.Bytes(num, sub.Encoded())
}

// Encoded returns the message built so far.
func (e *Encoder) Encoded() []byte {
	if e.b == nil {
		return []byte{}
	}
	return e.b
}
