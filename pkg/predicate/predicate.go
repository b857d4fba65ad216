// Package predicate proves and verifies the conditions a verification rule
// places on credential attributes. Conditions on revealed attributes are
// decided on the plaintext value. Conditions on hidden attributes are decided
// by a sigma proof over the attribute's Pedersen commitment, made
// non-interactive with a Fiat-Shamir challenge bound to the request nonce.
package predicate

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"

	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/request"
	"github.com/TomCN0803/sdverify/pkg/rule"
	bn "github.com/cloudflare/bn256"
)

var (
	ErrPredicateFailed  = errors.New("predicate not satisfied")
	ErrNotRevealed      = errors.New("attribute is not revealed")
	ErrRevealCommitted  = errors.New("revealed attribute also carries a commitment")
	ErrNotCommitted     = errors.New("hidden attribute has no commitment")
	ErrMissingComponent = errors.New("missing proof component")
	ErrMalformedProof   = errors.New("malformed proof component")
	ErrIncorrectProof   = errors.New("incorrect proof")
	ErrPlaintext        = errors.New("revealed value does not satisfy predicate")
	ErrUnsupportedKind  = errors.New("unsupported predicate kind")

	ErrMissingWitness = errors.New("missing witness value")
	ErrFalseStatement = errors.New("witness does not satisfy predicate")
)

const challengeLabel = "sdverify/predicate/v1"

// Witness 持有者对承诺的打开：属性原值及承诺随机数
type Witness struct {
	Values    map[string]string
	Blindings map[string]*big.Int
}

func (w *Witness) blinding(attr string) (*big.Int, error) {
	if w == nil || w.Blindings[attr] == nil {
		return nil, fmt.Errorf("%w: blinding of %q", ErrMissingWitness, attr)
	}
	return w.Blindings[attr], nil
}

func (w *Witness) value(attr string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("%w: value of %q", ErrMissingWitness, attr)
	}
	v, ok := w.Values[attr]
	if !ok {
		return "", fmt.Errorf("%w: value of %q", ErrMissingWitness, attr)
	}
	return v, nil
}

// Verify checks that req satisfies spec under the issuer parameters pp.
// A nil error means the predicate holds; every failure wraps ErrPredicateFailed.
func Verify(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) error {
	var err error
	switch spec.Kind {
	case rule.PureReveal:
		err = verifyReveal(spec, req)
	case rule.Equality:
		err = verifyEquality(spec, req, pp)
	case rule.Membership:
		err = verifyMembership(spec, req, pp)
	case rule.Range:
		err = verifyRange(spec, req, pp)
	default:
		err = ErrUnsupportedKind
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPredicateFailed, spec, err)
	}

	return nil
}

// Prove builds the proof component for spec. It returns a nil component when
// the predicate is decided on revealed plaintext and needs no proof.
func Prove(r io.Reader, spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams, w *Witness) (*request.ProofComponent, error) {
	switch spec.Kind {
	case rule.PureReveal:
		return nil, nil
	case rule.Equality:
		return ProveEquality(r, spec, req, pp, w)
	case rule.Membership:
		return ProveMembership(r, spec, req, pp, w)
	case rule.Range:
		return ProveRange(r, spec, req, pp, w)
	default:
		return nil, fmt.Errorf("failed to prove %s: %w", spec, ErrUnsupportedKind)
	}
}

func verifyReveal(spec *rule.PredicateSpec, req *request.VerificationRequest) error {
	if _, ok := req.Revealed(spec.Attribute); !ok {
		return ErrNotRevealed
	}
	if _, ok := req.Commitment(spec.Attribute); ok {
		return ErrRevealCommitted
	}
	return nil
}

// transcript starts the Fiat-Shamir transcript of a predicate proof. It binds
// the issuer key and every public operand of spec.
func transcript(pp *issuer.PublicParams, spec *rule.PredicateSpec) *utils.Transcript {
	t := utils.NewTranscript(challengeLabel).
		AppendBytes(pp.ID()).
		AppendString(spec.Attribute).
		AppendUint64(uint64(spec.Kind)).
		AppendUint64(spec.Min).
		AppendUint64(spec.Max).
		AppendUint64(uint64(len(spec.Operands)))
	for _, o := range spec.Operands {
		t.AppendString(o)
	}
	return t.AppendString(spec.EqualsAttribute)
}

func appendG1s(t *utils.Transcript, ps []*bn.G1) *utils.Transcript {
	for _, p := range ps {
		t.AppendElements(p)
	}
	return t
}

func commitmentOf(req *request.VerificationRequest, attr string) (*bn.G1, error) {
	raw, ok := req.Commitment(attr)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotCommitted, attr)
	}
	c, err := utils.G1FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: commitment of %q: %v", ErrMalformedProof, attr, err)
	}
	return c, nil
}

func componentOf(req *request.VerificationRequest, spec *rule.PredicateSpec) (*request.ProofComponent, error) {
	pc, ok := req.Component(spec.Attribute, spec.Kind)
	if !ok {
		return nil, ErrMissingComponent
	}
	return pc, nil
}

// parseComponent decodes a component with the given number of auxiliary
// elements and responses.
func parseComponent(pc *request.ProofComponent, numAux, numResp int) (*big.Int, []*bn.G1, []*big.Int, error) {
	if len(pc.Auxiliary) != numAux || len(pc.Responses) != numResp {
		return nil, nil, nil, fmt.Errorf(
			"%w: want %d auxiliary elements and %d responses, got %d and %d",
			ErrMalformedProof, numAux, numResp, len(pc.Auxiliary), len(pc.Responses),
		)
	}
	c, err := utils.ScalarFromBytes(pc.Challenge)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: challenge: %v", ErrMalformedProof, err)
	}
	aux, err := utils.G1sFromBytes(pc.Auxiliary)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: auxiliary: %v", ErrMalformedProof, err)
	}
	zs, err := utils.ScalarsFromBytes(pc.Responses)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: responses: %v", ErrMalformedProof, err)
	}
	return c, aux, zs, nil
}

func newComponent(spec *rule.PredicateSpec, c *big.Int, aux []*bn.G1, zs []*big.Int) *request.ProofComponent {
	pc := &request.ProofComponent{
		Attribute: spec.Attribute,
		Kind:      spec.Kind,
		Challenge: utils.ScalarToBytes(c),
	}
	for _, a := range aux {
		pc.Auxiliary = append(pc.Auxiliary, a.Marshal())
	}
	for _, z := range zs {
		pc.Responses = append(pc.Responses, utils.ScalarToBytes(z))
	}
	return pc
}

// scalarsEqual compares two scalars in constant time.
func scalarsEqual(a, b *big.Int) bool {
	return subtle.ConstantTimeCompare(utils.ScalarToBytes(a), utils.ScalarToBytes(b)) == 1
}

// valuesEqual compares two attribute values by their scalar encoding.
func valuesEqual(a, b string) bool {
	return scalarsEqual(rule.EncodeValue(a), rule.EncodeValue(b))
}

// constTerm returns PedG^enc(v).
func constTerm(pp *issuer.PublicParams, v string) *bn.G1 {
	return new(bn.G1).ScalarMult(pp.PedG, rule.EncodeValue(v))
}

// simulatedT returns PedH^z * X^{-c}, the first message a verifier recomputes
// from a response z and challenge c.
func simulatedT(pp *issuer.PublicParams, x *bn.G1, c, z *big.Int) *bn.G1 {
	return utils.ProductOfExpG1(pp.PedH, z, x, utils.AddInv(c, bn.Order))
}
