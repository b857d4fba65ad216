package predicate

import (
	"fmt"
	"io"
	"math/big"

	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/request"
	"github.com/TomCN0803/sdverify/pkg/rule"
	bn "github.com/cloudflare/bn256"
)

// term is a signed commitment opening that contributes to the discrete log
// of an equality target.
type term struct {
	attr string
	neg  bool
}

// equalityTarget 返回X，使得谓词成立当且仅当证明者知道log_PedH(X)
// X is nil when both sides are plaintext and no proof is involved.
//   - attr == v:            X = C_attr / PedG^v
//   - attr == other, one side revealed: X = C_committed / PedG^revealed
//   - attr == other, both committed:   X = C_attr / C_other
func equalityTarget(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) (*bn.G1, []*bn.G1, []term, error) {
	lhs, lhsRevealed := req.Revealed(spec.Attribute)
	if spec.EqualsAttribute == "" {
		if len(spec.Operands) != 1 {
			return nil, nil, nil, fmt.Errorf("%w: want one operand", ErrMalformedProof)
		}
		if lhsRevealed {
			return nil, nil, nil, nil
		}
		c, err := commitmentOf(req, spec.Attribute)
		if err != nil {
			return nil, nil, nil, err
		}
		return utils.SubG1(c, constTerm(pp, spec.Operands[0])), []*bn.G1{c}, []term{{attr: spec.Attribute}}, nil
	}

	rhs, rhsRevealed := req.Revealed(spec.EqualsAttribute)
	switch {
	case lhsRevealed && rhsRevealed:
		return nil, nil, nil, nil
	case lhsRevealed:
		c, err := commitmentOf(req, spec.EqualsAttribute)
		if err != nil {
			return nil, nil, nil, err
		}
		return utils.SubG1(c, constTerm(pp, lhs)), []*bn.G1{c}, []term{{attr: spec.EqualsAttribute}}, nil
	case rhsRevealed:
		c, err := commitmentOf(req, spec.Attribute)
		if err != nil {
			return nil, nil, nil, err
		}
		return utils.SubG1(c, constTerm(pp, rhs)), []*bn.G1{c}, []term{{attr: spec.Attribute}}, nil
	default:
		ca, err := commitmentOf(req, spec.Attribute)
		if err != nil {
			return nil, nil, nil, err
		}
		cb, err := commitmentOf(req, spec.EqualsAttribute)
		if err != nil {
			return nil, nil, nil, err
		}
		ts := []term{{attr: spec.Attribute}, {attr: spec.EqualsAttribute, neg: true}}
		return utils.SubG1(ca, cb), []*bn.G1{ca, cb}, ts, nil
	}
}

func equalPlaintext(spec *rule.PredicateSpec, req *request.VerificationRequest) bool {
	lhs, _ := req.Revealed(spec.Attribute)
	if spec.EqualsAttribute == "" {
		return valuesEqual(lhs, spec.Operands[0])
	}
	rhs, _ := req.Revealed(spec.EqualsAttribute)
	return valuesEqual(lhs, rhs)
}

func equalityChallenge(pp *issuer.PublicParams, spec *rule.PredicateSpec, bound []*bn.G1, x, t *bn.G1, nonce []byte) *big.Int {
	return appendG1s(transcript(pp, spec), bound).
		AppendElements(x, t).
		AppendBytes(nonce).
		Challenge()
}

func verifyEquality(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) error {
	x, bound, _, err := equalityTarget(spec, req, pp)
	if err != nil {
		return err
	}
	if x == nil {
		if !equalPlaintext(spec, req) {
			return ErrPlaintext
		}
		return nil
	}

	pc, err := componentOf(req, spec)
	if err != nil {
		return err
	}
	c, _, zs, err := parseComponent(pc, 0, 1)
	if err != nil {
		return err
	}
	t := simulatedT(pp, x, c, zs[0])
	if !scalarsEqual(c, equalityChallenge(pp, spec, bound, x, t, req.Nonce)) {
		return ErrIncorrectProof
	}

	return nil
}

// ProveEquality 产生相等性证明，即对X = PedH^x的Schnorr证明
func ProveEquality(r io.Reader, spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams, w *Witness) (*request.ProofComponent, error) {
	const prefix = "failed to prove equality"
	x, bound, terms, err := equalityTarget(spec, req, pp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	if x == nil {
		return nil, nil
	}

	dlog := new(big.Int)
	for _, tm := range terms {
		rho, err := w.blinding(tm.attr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		if tm.neg {
			dlog = utils.SubMod(dlog, rho)
		} else {
			dlog = utils.AddMod(dlog, rho)
		}
	}
	if !utils.Equals(x, new(bn.G1).ScalarMult(pp.PedH, dlog)) {
		return nil, fmt.Errorf("%s: %w", prefix, ErrFalseStatement)
	}

	k, err := utils.RandomScalar(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	t := new(bn.G1).ScalarMult(pp.PedH, k)
	c := equalityChallenge(pp, spec, bound, x, t, req.Nonce)
	z := utils.AddMod(k, utils.MulMod(c, dlog))

	return newComponent(spec, c, nil, []*big.Int{z}), nil
}
