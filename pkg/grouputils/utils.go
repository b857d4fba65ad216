package grouputils

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"

	bn "github.com/cloudflare/bn256"
)

var (
	ErrWrongSize          = errors.New("wrong encoding size")
	ErrMalformedPoint     = errors.New("malformed group element")
	ErrScalarOutOfRange   = errors.New("scalar not reduced modulo group order")
	ErrInconsistentLength = errors.New("inconsistent number of bases and exponents")
	ErrIdentityPoint      = errors.New("group element is the identity")
)

const (
	ScalarSizeByte = 32  // 标量大小
	G1SizeByte     = 64  // bn256.G1的大小
	G2SizeByte     = 129 // bn256.G2的大小，首字节为0x01
)

// NewG1 get g1^k from G1
func NewG1(k *big.Int) *bn.G1 {
	return new(bn.G1).ScalarBaseMult(k)
}

// NewG2 get g2^k from G2
func NewG2(k *big.Int) *bn.G2 {
	return new(bn.G2).ScalarBaseMult(k)
}

type serializable interface {
	Marshal() []byte
}

// Equals checks if a == b in constant time with respect to the encodings.
func Equals(a, b serializable) bool {
	return subtle.ConstantTimeCompare(a.Marshal(), b.Marshal()) == 1
}

// IsIdentityG1 reports whether a is the point at infinity.
func IsIdentityG1(a *bn.G1) bool {
	return Equals(a, NewG1(big.NewInt(0)))
}

// AddMod gets (a + b) mod bn256.Order
func AddMod(a, b *big.Int) *big.Int {
	ab := new(big.Int).Add(a, b)
	return ab.Mod(ab, bn.Order)
}

// SubMod gets (a - b) mod bn256.Order
func SubMod(a, b *big.Int) *big.Int {
	ab := new(big.Int).Sub(a, b)
	return ab.Mod(ab, bn.Order)
}

// MulMod gets (a * b) mod bn256.Order
func MulMod(a, b *big.Int) *big.Int {
	ab := new(big.Int).Mul(a, b)
	return ab.Mod(ab, bn.Order)
}

// AddInv gets the additive inverse of x mod q
func AddInv(x, q *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Neg(x), q)
}

// G1Generator generates the generator of G1.
func G1Generator() *bn.G1 {
	return NewG1(big.NewInt(1))
}

// G2Generator generates the generator of G2.
func G2Generator() *bn.G2 {
	return new(bn.G2).ScalarBaseMult(big.NewInt(1))
}

// ProductOfExpG1 computes (g^a)*(h^b) in G1 and returns it.
func ProductOfExpG1(g *bn.G1, a *big.Int, h *bn.G1, b *big.Int) *bn.G1 {
	return new(bn.G1).Add(new(bn.G1).ScalarMult(g, a), new(bn.G1).ScalarMult(h, b))
}

// MultiExpG1 computes prod(bases[i]^exps[i]) in G1. An empty input yields the identity.
func MultiExpG1(bases []*bn.G1, exps []*big.Int) (*bn.G1, error) {
	if len(bases) != len(exps) {
		return nil, fmt.Errorf("%w: %d bases, %d exponents", ErrInconsistentLength, len(bases), len(exps))
	}

	res := NewG1(big.NewInt(0))
	for i, b := range bases {
		res.Add(res, new(bn.G1).ScalarMult(b, exps[i]))
	}

	return res, nil
}

// SubG1 computes a - b in G1 (a/b in multiplicative notation).
func SubG1(a, b *bn.G1) *bn.G1 {
	return new(bn.G1).Add(a, new(bn.G1).Neg(b))
}

// RandomScalar draws a uniform scalar in [0, bn256.Order).
func RandomScalar(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	return rand.Int(r, bn.Order)
}

// RandomScalars draws k uniform scalars.
func RandomScalars(r io.Reader, k int) ([]*big.Int, error) {
	res := make([]*big.Int, 0, k)
	for i := 0; i < k; i++ {
		v, err := RandomScalar(r)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}

	return res, nil
}

// ScalarToBytes encodes k as a fixed-size big-endian scalar.
func ScalarToBytes(k *big.Int) []byte {
	return new(big.Int).Mod(k, bn.Order).FillBytes(make([]byte, ScalarSizeByte))
}

// ScalarFromBytes decodes a fixed-size scalar and rejects values >= bn256.Order.
func ScalarFromBytes(b []byte) (*big.Int, error) {
	if len(b) != ScalarSizeByte {
		return nil, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrWrongSize, ScalarSizeByte, len(b))
	}
	k := new(big.Int).SetBytes(b)
	if k.Cmp(bn.Order) >= 0 {
		return nil, ErrScalarOutOfRange
	}

	return k, nil
}

// G1FromBytes decodes a G1 element and checks it lies on the curve.
func G1FromBytes(b []byte) (*bn.G1, error) {
	if len(b) != G1SizeByte {
		return nil, fmt.Errorf("%w: G1 element must be %d bytes, got %d", ErrWrongSize, G1SizeByte, len(b))
	}
	p := new(bn.G1)
	if _, err := p.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPoint, err)
	}

	return p, nil
}

// G2FromBytes decodes a G2 element and checks it lies on the twist.
// The point at infinity is rejected.
func G2FromBytes(b []byte) (*bn.G2, error) {
	if len(b) != G2SizeByte {
		return nil, fmt.Errorf("%w: G2 element must be %d bytes, got %d", ErrWrongSize, G2SizeByte, len(b))
	}
	if b[0] == 0x00 {
		return nil, ErrIdentityPoint
	}
	p := new(bn.G2)
	if _, err := p.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPoint, err)
	}
	// zero coordinates also decode to infinity
	if Equals(p, NewG2(big.NewInt(0))) {
		return nil, ErrIdentityPoint
	}

	return p, nil
}

// G1sFromBytes decodes a list of G1 elements.
func G1sFromBytes(bs [][]byte) ([]*bn.G1, error) {
	res := make([]*bn.G1, len(bs))
	for i, b := range bs {
		p, err := G1FromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("at index %d: %w", i, err)
		}
		res[i] = p
	}

	return res, nil
}

// ScalarsFromBytes decodes a list of scalars.
func ScalarsFromBytes(bs [][]byte) ([]*big.Int, error) {
	res := make([]*big.Int, len(bs))
	for i, b := range bs {
		k, err := ScalarFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("at index %d: %w", i, err)
		}
		res[i] = k
	}

	return res, nil
}
