package grouputils

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"math/big"

	bn "github.com/cloudflare/bn256"
)

// Transcript accumulates the public values of a sigma protocol and derives its
// Fiat-Shamir challenge. Every item is length-prefixed so that adjacent
// variable-length fields cannot be shifted into each other.
type Transcript struct {
	h hash.Hash
}

// NewTranscript starts a transcript under the given domain label.
func NewTranscript(label string) *Transcript {
	t := &Transcript{h: sha256.New()}
	t.AppendBytes([]byte(label))
	return t
}

// AppendBytes writes a length-prefixed byte string.
func (t *Transcript) AppendBytes(b []byte) *Transcript {
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(b)))
	t.h.Write(l[:])
	t.h.Write(b)
	return t
}

// AppendString writes a length-prefixed string.
func (t *Transcript) AppendString(s string) *Transcript {
	return t.AppendBytes([]byte(s))
}

// AppendUint64 writes a fixed-size integer.
func (t *Transcript) AppendUint64(v uint64) *Transcript {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	t.h.Write(b[:])
	return t
}

// AppendElements writes group elements, e.g. *bn.G1 or *bn.G2.
func (t *Transcript) AppendElements(es ...serializable) *Transcript {
	for _, e := range es {
		t.AppendBytes(e.Marshal())
	}
	return t
}

// Challenge returns HASH(transcript) mod bn256.Order.
func (t *Transcript) Challenge() *big.Int {
	c := new(big.Int).SetBytes(t.h.Sum(nil))
	return c.Mod(c, bn.Order)
}
