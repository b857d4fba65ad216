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

// membershipTargets returns X_i = C / PedG^{v_i} for every set member v_i.
func membershipTargets(pp *issuer.PublicParams, spec *rule.PredicateSpec, c *bn.G1) []*bn.G1 {
	xs := make([]*bn.G1, len(spec.Operands))
	for i, v := range spec.Operands {
		xs[i] = utils.SubG1(c, constTerm(pp, v))
	}
	return xs
}

func membershipChallenge(pp *issuer.PublicParams, spec *rule.PredicateSpec, c *bn.G1, ts []*bn.G1, nonce []byte) *big.Int {
	t := transcript(pp, spec).AppendElements(c)
	return appendG1s(t, ts).AppendBytes(nonce).Challenge()
}

func verifyMembership(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) error {
	if v, ok := req.Revealed(spec.Attribute); ok {
		var in bool
		for _, o := range spec.Operands {
			in = valuesEqual(v, o) || in
		}
		if !in {
			return ErrPlaintext
		}
		return nil
	}

	cm, err := commitmentOf(req, spec.Attribute)
	if err != nil {
		return err
	}
	pc, err := componentOf(req, spec)
	if err != nil {
		return err
	}
	n := len(spec.Operands)
	c, _, zs, err := parseComponent(pc, 0, 2*n)
	if err != nil {
		return err
	}

	xs := membershipTargets(pp, spec, cm)
	ts := make([]*bn.G1, n)
	sum := new(big.Int)
	for i := range xs {
		ci, zi := zs[i], zs[n+i]
		ts[i] = simulatedT(pp, xs[i], ci, zi)
		sum = utils.AddMod(sum, ci)
	}
	sumOK := scalarsEqual(sum, c)
	hashOK := scalarsEqual(c, membershipChallenge(pp, spec, cm, ts, req.Nonce))
	if !sumOK || !hashOK {
		return ErrIncorrectProof
	}

	return nil
}

// ProveMembership 产生集合成员证明：对X_1..X_n的CDS OR证明
func ProveMembership(r io.Reader, spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams, w *Witness) (*request.ProofComponent, error) {
	const prefix = "failed to prove membership"
	if _, ok := req.Revealed(spec.Attribute); ok {
		return nil, nil
	}
	v, err := w.value(spec.Attribute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	rho, err := w.blinding(spec.Attribute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	cm, err := commitmentOf(req, spec.Attribute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}

	j := -1
	for i, o := range spec.Operands {
		if valuesEqual(v, o) {
			j = i
			break
		}
	}
	if j < 0 {
		return nil, fmt.Errorf("%s: %w", prefix, ErrFalseStatement)
	}

	n := len(spec.Operands)
	rs, err := utils.RandomScalars(r, 2*n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	cs, zs := rs[:n], rs[n:]
	k := zs[j]

	xs := membershipTargets(pp, spec, cm)
	ts := make([]*bn.G1, n)
	for i := range xs {
		if i == j {
			ts[i] = new(bn.G1).ScalarMult(pp.PedH, k)
			continue
		}
		ts[i] = simulatedT(pp, xs[i], cs[i], zs[i])
	}

	c := membershipChallenge(pp, spec, cm, ts, req.Nonce)
	cj := new(big.Int).Set(c)
	for i := range cs {
		if i != j {
			cj = utils.SubMod(cj, cs[i])
		}
	}
	cs[j] = cj
	zs[j] = utils.AddMod(k, utils.MulMod(cj, rho))

	return newComponent(spec, c, nil, rs), nil
}
