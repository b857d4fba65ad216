// Package issuertest provides an in-memory credential issuer for tests and demos.
package issuertest

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/TomCN0803/sdverify/pkg/bbsplus"
	"github.com/TomCN0803/sdverify/pkg/holder"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/rule"
	bn "github.com/cloudflare/bn256"
)

// Issuer 持有签名私钥的测试发行方
type Issuer struct {
	Params *issuer.PublicParams

	sk   *big.Int
	rand io.Reader
}

// Setup generates fresh issuer keys and parameters for schema. A nil r means crypto/rand.
func Setup(r io.Reader, version uint64, schema rule.Schema) (*Issuer, error) {
	const prefix = "failed to set up test issuer"
	if r == nil {
		r = rand.Reader
	}
	sp, err := bbsplus.Setup(r, len(schema))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	sk, pk, err := bbsplus.GenKeyPair(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	_, pedG, err := bn.RandomG1(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	_, pedH, err := bn.RandomG1(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	pp, err := issuer.New(version, schema, sp, pk, pedG, pedH)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}

	return &Issuer{Params: pp, sk: sk, rand: r}, nil
}

// Issue signs attrs, which must name every schema attribute.
func (is *Issuer) Issue(attrs map[string]string) (*holder.Credential, error) {
	ms, err := holder.EncodeAttributes(is.Params.Schema, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}
	sig, err := bbsplus.NewSignature(is.rand, is.Params.Sig, is.sk, ms)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}

	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return &holder.Credential{Attributes: cp, Signature: sig}, nil
}

// Holder issues attrs and loads the credential into a holder.
func (is *Issuer) Holder(attrs map[string]string) (*holder.Holder, error) {
	cred, err := is.Issue(attrs)
	if err != nil {
		return nil, err
	}
	return holder.New(is.Params, cred, holder.WithRand(is.rand))
}
