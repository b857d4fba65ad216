// Package holder is a reference credential holder. It builds honest
// verification requests for a rule and is used to exercise the verifier.
package holder

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/TomCN0803/sdverify/pkg/bbsplus"
	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/predicate"
	"github.com/TomCN0803/sdverify/pkg/request"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/sigproof"
)

var (
	ErrMissingAttribute = errors.New("credential misses a schema attribute")
	ErrExtraAttribute   = errors.New("credential has an attribute outside the schema")
	ErrIssuerMismatch   = errors.New("rule names another issuer key")
)

// Credential 由发行方签发的凭证
type Credential struct {
	Attributes map[string]string
	Signature  *bbsplus.Signature
}

// Holder 持有一张凭证并据此构造验证请求
type Holder struct {
	pp   *issuer.PublicParams
	cred *Credential
	ms   []*big.Int
	rand io.Reader
}

type Option func(*Holder)

// WithRand sets the randomness source of commitments and proofs.
func WithRand(r io.Reader) Option {
	return func(h *Holder) {
		h.rand = r
	}
}

// New checks cred against the issuer parameters and returns a holder for it.
func New(pp *issuer.PublicParams, cred *Credential, opts ...Option) (*Holder, error) {
	const prefix = "failed to load credential"
	if cred == nil || cred.Signature == nil {
		return nil, fmt.Errorf("%s: %w", prefix, bbsplus.ErrIdentitySig)
	}
	for name := range cred.Attributes {
		if _, ok := pp.Schema.Index(name); !ok {
			return nil, fmt.Errorf("%s: %w: %q", prefix, ErrExtraAttribute, name)
		}
	}
	ms, err := EncodeAttributes(pp.Schema, cred.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	if err := cred.Signature.Verify(pp.Sig, pp.PK, ms); err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}

	h := &Holder{pp: pp, cred: cred, ms: ms, rand: rand.Reader}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// EncodeAttributes encodes attribute values in schema order.
func EncodeAttributes(schema rule.Schema, attrs map[string]string) ([]*big.Int, error) {
	ms := make([]*big.Int, len(schema))
	for i, a := range schema {
		v, ok := attrs[a.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingAttribute, a.Name)
		}
		ms[i] = rule.EncodeValue(v)
	}
	return ms, nil
}

// BuildRequest 针对验证规则构造验证请求
// PureReveal attributes and the names in reveal are disclosed. Every other
// attribute a predicate refers to is committed and proven in zero knowledge.
func (h *Holder) BuildRequest(vr *rule.VerificationRule, reveal []string, nonce []byte) (*request.VerificationRequest, error) {
	const prefix = "failed to build verification request"
	if err := rule.Validate(vr, h.pp.Schema); err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	if !bytes.Equal(vr.IssuerKeyID, h.pp.ID()) {
		return nil, fmt.Errorf("%s: %w", prefix, ErrIssuerMismatch)
	}

	req := &request.VerificationRequest{
		IssuerKeyID:        h.pp.ID(),
		Nonce:              append([]byte(nil), nonce...),
		RevealedAttributes: make(map[string]string),
		Commitments:        make(map[string]request.Commitment),
	}
	names := append([]string(nil), reveal...)
	for _, p := range vr.Predicates {
		if p.Kind == rule.PureReveal {
			names = append(names, p.Attribute)
		}
	}
	for _, name := range names {
		tmpl, ok := h.pp.Schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", prefix, rule.ErrUnknownAttribute, name)
		}
		if tmpl.Kind == rule.Hidden {
			return nil, fmt.Errorf("%s: %w: %q", prefix, rule.ErrRevealHidden, name)
		}
		req.RevealedAttributes[name] = h.cred.Attributes[name]
	}

	w := &predicate.Witness{
		Values:    h.cred.Attributes,
		Blindings: make(map[string]*big.Int),
	}
	toCommit := vr.Attributes()
	sort.Strings(toCommit)
	for _, name := range toCommit {
		if _, ok := req.RevealedAttributes[name]; ok {
			continue
		}
		rho, err := utils.RandomScalar(h.rand)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		c := utils.ProductOfExpG1(h.pp.PedG, rule.EncodeValue(h.cred.Attributes[name]), h.pp.PedH, rho)
		req.Commitments[name] = c.Marshal()
		w.Blindings[name] = rho
	}

	for i := range vr.Predicates {
		pc, err := predicate.Prove(h.rand, &vr.Predicates[i], req, h.pp, w)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		if pc != nil {
			req.ProofComponents = append(req.ProofComponents, *pc)
		}
	}

	sw := &sigproof.Witness{
		Signature:  h.cred.Signature,
		Attributes: h.ms,
		Blindings:  w.Blindings,
	}
	sp, err := sigproof.Prove(h.rand, h.pp, sw, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	req.SignatureProof = *sp

	return req, nil
}
