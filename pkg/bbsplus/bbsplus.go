// Package bbsplus implements BBS+ signatures over BN256 as used for anonymous
// credentials: a signature on an ordered list of attribute scalars that the
// holder can later prove knowledge of without showing it.
package bbsplus

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	bn "github.com/cloudflare/bn256"
)

var (
	ErrArgOverflow      = errors.New("wrong argument length supplied")
	ErrMissingGenerator = errors.New("missing generator")
	ErrIdentitySig      = errors.New("signature element A is the identity")
	ErrFailedPairing    = errors.New("failed for e(A, W*g2^e) == e(B, g2) predicate")
)

// Parameters BBS+公共参数，HAttrs[i]对应第i个属性
type Parameters struct {
	HRand  *bn.G1
	HAttrs []*bn.G1
}

// PK BBS+签名公钥，W == g2^sk
type PK struct {
	W *bn.G2
}

// Signature BBS+签名 (A, e, s)
type Signature struct {
	A *bn.G1
	E *big.Int
	S *big.Int
}

// Setup 初始化BBS+签名参数，最多支持n个属性
func Setup(r io.Reader, n int) (*Parameters, error) {
	if r == nil {
		r = rand.Reader
	}
	_, hRand, err := bn.RandomG1(r)
	if err != nil {
		return nil, fmt.Errorf("failed to set up bbs+ parameters: %w", err)
	}
	hs := make([]*bn.G1, n)
	for i := range hs {
		if _, hs[i], err = bn.RandomG1(r); err != nil {
			return nil, fmt.Errorf("failed to set up bbs+ parameters: %w", err)
		}
	}

	return &Parameters{HRand: hRand, HAttrs: hs}, nil
}

// GenKeyPair 产生BBS+公私钥对
func GenKeyPair(r io.Reader) (sk *big.Int, pk *PK, err error) {
	sk, err = utils.RandomScalar(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate bbs+ key pair: %w", err)
	}

	return sk, &PK{W: utils.NewG2(sk)}, nil
}

// Commit computes B = g1 * HRand^s * prod(HAttrs[i]^ms[i]).
func (sp *Parameters) Commit(s *big.Int, ms []*big.Int) (*bn.G1, error) {
	if len(ms) > len(sp.HAttrs) {
		return nil, fmt.Errorf("%w, at most %d messages", ErrArgOverflow, len(sp.HAttrs))
	}
	b, err := utils.MultiExpG1(sp.HAttrs[:len(ms)], ms)
	if err != nil {
		return nil, err
	}
	b.Add(b, utils.G1Generator())
	b.Add(b, new(bn.G1).ScalarMult(sp.HRand, s))

	return b, nil
}

// NewSignature 产生BBS+签名
func NewSignature(r io.Reader, sp *Parameters, sk *big.Int, ms []*big.Int) (*Signature, error) {
	const prefix = "failed to generate bbs+ signature"
	for {
		es, err := utils.RandomScalars(r, 2)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		ex := utils.AddMod(es[0], sk)
		if ex.Sign() == 0 {
			continue
		}

		b, err := sp.Commit(es[1], ms)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		a := b.ScalarMult(b, new(big.Int).ModInverse(ex, bn.Order))

		return &Signature{A: a, E: es[0], S: es[1]}, nil
	}
}

// Verify 验证BBS+签名
func (sig *Signature) Verify(sp *Parameters, pk *PK, ms []*big.Int) error {
	const prefix = "failed to verify bbs+ signature"
	if sp == nil || sp.HRand == nil || pk == nil || pk.W == nil {
		return fmt.Errorf("%s: %w", prefix, ErrMissingGenerator)
	}
	if sig.A == nil || sig.E == nil || sig.S == nil || utils.IsIdentityG1(sig.A) {
		return fmt.Errorf("%s: %w", prefix, ErrIdentitySig)
	}
	b, err := sp.Commit(sig.S, ms)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}

	// e(A, W*g2^e) = e(A, W) * e(A^e, g2)
	lhs := []utils.PairArg{{A: sig.A, B: pk.W}, {A: sig.A, B: utils.G2Generator(), C: sig.E}}
	rhs := []utils.PairArg{{A: b, B: utils.G2Generator()}}
	if !utils.PairingsEqual(lhs, rhs) {
		return fmt.Errorf("%s: %w", prefix, ErrFailedPairing)
	}

	return nil
}
