// Package request holds the in-memory form of a holder's verification request
// and the decoder that turns the wire encoding into it. Decoding is purely
// structural: field presence, UTF-8 and byte sizes. Whether an element lies in
// the group is left to the cryptographic engines.
package request

import (
	"github.com/TomCN0803/sdverify/pkg/rule"
)

// Commitment is the encoding of a Pedersen commitment to a hidden attribute.
type Commitment []byte

// ProofComponent 是一段sigma协议记录：挑战、响应以及辅助承诺
// Attribute and Kind bind a component to a predicate; the signature proof leaves both empty.
type ProofComponent struct {
	Attribute string
	Kind      rule.PredicateKind
	Challenge []byte
	Responses [][]byte
	Auxiliary [][]byte
}

// VerificationRequest 持有者提交的验证请求
type VerificationRequest struct {
	IssuerKeyID        []byte
	Nonce              []byte
	RevealedAttributes map[string]string
	Commitments        map[string]Commitment
	ProofComponents    []ProofComponent
	SignatureProof     ProofComponent
}

// Component returns the proof component bound to the predicate (attr, kind).
func (r *VerificationRequest) Component(attr string, kind rule.PredicateKind) (*ProofComponent, bool) {
	for i := range r.ProofComponents {
		c := &r.ProofComponents[i]
		if c.Attribute == attr && c.Kind == kind {
			return c, true
		}
	}
	return nil, false
}

// Revealed returns the revealed value of attr.
func (r *VerificationRequest) Revealed(attr string) (string, bool) {
	v, ok := r.RevealedAttributes[attr]
	return v, ok
}

// Commitment returns the commitment to attr.
func (r *VerificationRequest) Commitment(attr string) (Commitment, bool) {
	c, ok := r.Commitments[attr]
	return c, ok
}

// RevealedCopy returns a copy of the revealed attribute mapping.
func (r *VerificationRequest) RevealedCopy() map[string]string {
	res := make(map[string]string, len(r.RevealedAttributes))
	for k, v := range r.RevealedAttributes {
		res[k] = v
	}
	return res
}

// RevealedNames returns the names of the revealed attributes in sorted order.
func (r *VerificationRequest) RevealedNames() []string {
	return sortedKeys(r.RevealedAttributes)
}

// CommittedNames returns the names of the committed attributes in sorted order.
func (r *VerificationRequest) CommittedNames() []string {
	return sortedKeys(r.Commitments)
}
