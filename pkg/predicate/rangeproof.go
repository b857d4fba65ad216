package predicate

import (
	"fmt"
	"io"
	"math/big"
	"math/bits"

	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/request"
	"github.com/TomCN0803/sdverify/pkg/rule"
	bn "github.com/cloudflare/bn256"
)

// 范围证明：将m-min与max-m各分解为k位，k = max(1, bitlen(max-min))
// D_i = PedG^{a_i} PedH^{r_i}, prod(D_i^{2^i}) = C / PedG^min
// E_i = PedG^{b_i} PedH^{r'_i}, prod(E_i^{2^i}) = PedG^max / C
// 每一位附带一个OR证明，说明D_i或D_i/PedG是PedH的幂

// responsesPerBit is c0, z0 and z1 of one bit proof.
const responsesPerBit = 3

func rangeBits(spec *rule.PredicateSpec) int {
	if k := bits.Len64(spec.Max - spec.Min); k > 0 {
		return k
	}
	return 1
}

func powersOfTwo(k int) []*big.Int {
	res := make([]*big.Int, k)
	for i := range res {
		res[i] = new(big.Int).Lsh(big.NewInt(1), uint(i))
	}
	return res
}

func rangeChallenge(pp *issuer.PublicParams, spec *rule.PredicateSpec, c *bn.G1, aux, ts []*bn.G1, nonce []byte) *big.Int {
	t := transcript(pp, spec).AppendElements(c)
	appendG1s(t, aux)
	return appendG1s(t, ts).AppendBytes(nonce).Challenge()
}

// rangeTargets returns C / PedG^min and PedG^max / C.
func rangeTargets(pp *issuer.PublicParams, spec *rule.PredicateSpec, c *bn.G1) (*bn.G1, *bn.G1) {
	lower := utils.SubG1(c, new(bn.G1).ScalarMult(pp.PedG, new(big.Int).SetUint64(spec.Min)))
	upper := utils.SubG1(new(bn.G1).ScalarMult(pp.PedG, new(big.Int).SetUint64(spec.Max)), c)
	return lower, upper
}

func verifyRange(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) error {
	if v, ok := req.Revealed(spec.Attribute); ok {
		m, numeric := rule.NumericValue(v)
		geMin, leMax := m >= spec.Min, m <= spec.Max
		if !numeric || !geMin || !leMax {
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
	k := rangeBits(spec)
	c, aux, zs, err := parseComponent(pc, 2*k, 2*k*responsesPerBit)
	if err != nil {
		return err
	}

	lower, upper := rangeTargets(pp, spec, cm)
	pows := powersOfTwo(k)
	dSum, err := utils.MultiExpG1(aux[:k], pows)
	if err != nil {
		return err
	}
	eSum, err := utils.MultiExpG1(aux[k:], pows)
	if err != nil {
		return err
	}
	lowerOK := utils.Equals(dSum, lower)
	upperOK := utils.Equals(eSum, upper)

	ts := make([]*bn.G1, 0, 4*k)
	for i, y := range aux {
		c0, z0, z1 := zs[responsesPerBit*i], zs[responsesPerBit*i+1], zs[responsesPerBit*i+2]
		c1 := utils.SubMod(c, c0)
		ts = append(ts,
			simulatedT(pp, y, c0, z0),
			simulatedT(pp, utils.SubG1(y, pp.PedG), c1, z1),
		)
	}
	hashOK := scalarsEqual(c, rangeChallenge(pp, spec, cm, aux, ts, req.Nonce))
	if !lowerOK || !upperOK || !hashOK {
		return ErrIncorrectProof
	}

	return nil
}

// bitProof 单个位承诺Y = PedG^bit PedH^r的OR证明
type bitProof struct {
	bit    uint64
	r      *big.Int
	y      *bn.G1
	k      *big.Int // nonce of the real branch
	cSim   *big.Int // challenge of the simulated branch
	zSim   *big.Int
	t0, t1 *bn.G1
}

func newBitProof(rnd io.Reader, pp *issuer.PublicParams, bit uint64, r *big.Int) (*bitProof, error) {
	rs, err := utils.RandomScalars(rnd, 3)
	if err != nil {
		return nil, err
	}
	bp := &bitProof{bit: bit, r: r, k: rs[0], cSim: rs[1], zSim: rs[2]}
	bp.y = utils.ProductOfExpG1(pp.PedG, new(big.Int).SetUint64(bit), pp.PedH, r)
	tReal := new(bn.G1).ScalarMult(pp.PedH, bp.k)
	if bit == 0 {
		bp.t0 = tReal
		bp.t1 = simulatedT(pp, utils.SubG1(bp.y, pp.PedG), bp.cSim, bp.zSim)
	} else {
		bp.t0 = simulatedT(pp, bp.y, bp.cSim, bp.zSim)
		bp.t1 = tReal
	}
	return bp, nil
}

// respond returns c0, z0 and z1 for the overall challenge c.
func (bp *bitProof) respond(c *big.Int) []*big.Int {
	cReal := utils.SubMod(c, bp.cSim)
	zReal := utils.AddMod(bp.k, utils.MulMod(cReal, bp.r))
	if bp.bit == 0 {
		return []*big.Int{cReal, zReal, bp.zSim}
	}
	return []*big.Int{bp.cSim, bp.zSim, zReal}
}

// bitBlindings draws r_0..r_{k-1} with sum(2^i * r_i) == total.
func bitBlindings(rnd io.Reader, k int, total *big.Int) ([]*big.Int, error) {
	rs, err := utils.RandomScalars(rnd, k)
	if err != nil {
		return nil, err
	}
	acc := new(big.Int).Set(total)
	for i := 1; i < k; i++ {
		acc = utils.SubMod(acc, utils.MulMod(new(big.Int).Lsh(big.NewInt(1), uint(i)), rs[i]))
	}
	rs[0] = acc
	return rs, nil
}

// ProveRange 产生范围证明，要求min <= m <= max
func ProveRange(r io.Reader, spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams, w *Witness) (*request.ProofComponent, error) {
	return proveRange(r, spec, req, pp, w, true)
}

// proveRange with checkBounds unset runs the protocol on an out-of-range
// value, which lets tests exercise the verifier against a forged proof.
func proveRange(r io.Reader, spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams, w *Witness, checkBounds bool) (*request.ProofComponent, error) {
	const prefix = "failed to prove range"
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
	m, numeric := rule.NumericValue(v)
	if checkBounds && (!numeric || m < spec.Min || m > spec.Max) {
		return nil, fmt.Errorf("%s: %w", prefix, ErrFalseStatement)
	}

	k := rangeBits(spec)
	a, b := m-spec.Min, spec.Max-m
	ra, err := bitBlindings(r, k, rho)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	rb, err := bitBlindings(r, k, utils.AddInv(rho, bn.Order))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}

	bps := make([]*bitProof, 0, 2*k)
	for i := 0; i < 2*k; i++ {
		val, rs, j := a, ra, i
		if i >= k {
			val, rs, j = b, rb, i-k
		}
		bp, err := newBitProof(r, pp, (val>>uint(j))&1, rs[j])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		bps = append(bps, bp)
	}

	aux := make([]*bn.G1, 0, 2*k)
	ts := make([]*bn.G1, 0, 4*k)
	for _, bp := range bps {
		aux = append(aux, bp.y)
		ts = append(ts, bp.t0, bp.t1)
	}
	c := rangeChallenge(pp, spec, cm, aux, ts, req.Nonce)
	zs := make([]*big.Int, 0, 2*k*responsesPerBit)
	for _, bp := range bps {
		zs = append(zs, bp.respond(c)...)
	}

	return newComponent(spec, c, aux, zs), nil
}
