// Package sigproof proves and verifies knowledge of a BBS+ credential
// signature under selective disclosure. The proof ties every revealed value
// and every hidden-attribute commitment of a request to one signed credential.
package sigproof

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/TomCN0803/sdverify/pkg/bbsplus"
	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/request"
	"github.com/TomCN0803/sdverify/pkg/rule"
	bn "github.com/cloudflare/bn256"
)

var (
	ErrIssuerMismatch          = errors.New("request was built for another issuer key")
	ErrUnknownAttribute        = errors.New("attribute not in credential schema")
	ErrRevealedAndCommitted    = errors.New("attribute is both revealed and committed")
	ErrMalformedProof          = errors.New("malformed signature proof")
	ErrMalformedCommitment     = errors.New("commitment is not a group element")
	ErrIncorrectSignatureProof = errors.New("incorrect signature proof")
	ErrMissingWitness          = errors.New("missing witness value")
)

const challengeLabel = "sdverify/sigproof/v1"

// numFixedResponses counts z_e, z_r2, z_r3 and z_s'.
const numFixedResponses = 4

// Witness 持有者的秘密：凭证签名、按模式顺序编码的属性值以及承诺的随机数
type Witness struct {
	Signature  *bbsplus.Signature
	Attributes []*big.Int
	Blindings  map[string]*big.Int
}

// statement 描述请求中哪些属性公开、哪些隐藏、哪些有承诺
type statement struct {
	revealed  []int
	hidden    []int
	committed []string
	// position of a committed attribute within hidden
	hiddenPos map[string]int
}

func newStatement(pp *issuer.PublicParams, req *request.VerificationRequest) (*statement, error) {
	st := &statement{hiddenPos: make(map[string]int)}
	for name := range req.RevealedAttributes {
		if _, ok := pp.Schema.Index(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
		}
	}
	for i, a := range pp.Schema {
		if _, ok := req.RevealedAttributes[a.Name]; ok {
			st.revealed = append(st.revealed, i)
			continue
		}
		st.hiddenPos[a.Name] = len(st.hidden)
		st.hidden = append(st.hidden, i)
	}
	for name := range req.Commitments {
		if _, ok := req.RevealedAttributes[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrRevealedAndCommitted, name)
		}
		if _, ok := st.hiddenPos[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
		}
		st.committed = append(st.committed, name)
	}
	sort.Strings(st.committed)

	return st, nil
}

func (st *statement) numResponses() int {
	return numFixedResponses + len(st.hidden) + len(st.committed)
}

// CheckCommitments checks that every commitment of req decodes to a G1 element.
// It runs before any sigma-protocol check so that malformed commitments never
// reach the group arithmetic.
func CheckCommitments(req *request.VerificationRequest) error {
	names := make([]string, 0, len(req.Commitments))
	for name := range req.Commitments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := utils.G1FromBytes(req.Commitments[name]); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrMalformedCommitment, name, err)
		}
	}
	return nil
}

func parseCommitments(st *statement, req *request.VerificationRequest) ([]*bn.G1, error) {
	cs := make([]*bn.G1, len(st.committed))
	for i, name := range st.committed {
		c, err := utils.G1FromBytes(req.Commitments[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedCommitment, name, err)
		}
		cs[i] = c
	}
	return cs, nil
}

// revealedBase computes g1 * prod(HAttrs[i]^m_i) over the revealed attributes.
func revealedBase(pp *issuer.PublicParams, st *statement, req *request.VerificationRequest) *bn.G1 {
	res := utils.G1Generator()
	for _, i := range st.revealed {
		m := rule.EncodeValue(req.RevealedAttributes[pp.Schema[i].Name])
		res.Add(res, new(bn.G1).ScalarMult(pp.Sig.HAttrs[i], m))
	}
	return res
}

func challenge(
	pp *issuer.PublicParams, st *statement, req *request.VerificationRequest,
	aPrime, aBar, d, t1, t2 *bn.G1, cs, t3s []*bn.G1,
) *big.Int {
	t := utils.NewTranscript(challengeLabel).
		AppendBytes(pp.ID()).
		AppendElements(aPrime, aBar, d, t1, t2)
	for i, name := range st.committed {
		t.AppendString(name).AppendElements(cs[i], t3s[i])
	}
	for _, i := range st.revealed {
		name := pp.Schema[i].Name
		t.AppendString(name).AppendString(req.RevealedAttributes[name])
	}
	t.AppendBytes(req.Nonce)

	return t.Challenge()
}

// Prove 产生签名知识证明。req中的公开属性、承诺与nonce必须已经填好
func Prove(r io.Reader, pp *issuer.PublicParams, w *Witness, req *request.VerificationRequest) (*request.ProofComponent, error) {
	const prefix = "failed to generate signature proof"
	if w == nil || w.Signature == nil || len(w.Attributes) != len(pp.Schema) {
		return nil, fmt.Errorf("%s: %w", prefix, ErrMissingWitness)
	}
	st, err := newStatement(pp, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	cs, err := parseCommitments(st, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	rhos := make([]*big.Int, len(st.committed))
	for i, name := range st.committed {
		if rhos[i] = w.Blindings[name]; rhos[i] == nil {
			return nil, fmt.Errorf("%s: %w: blinding of %q", prefix, ErrMissingWitness, name)
		}
	}

	var r1 *big.Int
	for r1 == nil || r1.Sign() == 0 {
		if r1, err = utils.RandomScalar(r); err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
	}
	r3 := new(big.Int).ModInverse(r1, bn.Order)
	blinds, err := utils.RandomScalars(r, 5+len(st.hidden)+len(st.committed))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	r2, rE, rR2, rR3, rS := blinds[0], blinds[1], blinds[2], blinds[3], blinds[4]
	rM := blinds[5 : 5+len(st.hidden)]
	rRho := blinds[5+len(st.hidden):]

	sig := w.Signature
	b, err := pp.Sig.Commit(sig.S, w.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	aPrime := new(bn.G1).ScalarMult(sig.A, r1)
	bR1 := new(bn.G1).ScalarMult(b, r1)
	aBar := new(bn.G1).Add(new(bn.G1).ScalarMult(aPrime, utils.AddInv(sig.E, bn.Order)), bR1)
	d := new(bn.G1).Add(bR1, new(bn.G1).ScalarMult(pp.Sig.HRand, utils.AddInv(r2, bn.Order)))
	sPrime := utils.SubMod(sig.S, utils.MulMod(r2, r3))

	t1 := utils.ProductOfExpG1(aPrime, rE, pp.Sig.HRand, rR2)
	t2 := utils.ProductOfExpG1(d, rR3, pp.Sig.HRand, rS)
	hs := make([]*bn.G1, len(st.hidden))
	for j, i := range st.hidden {
		hs[j] = pp.Sig.HAttrs[i]
	}
	hm, err := utils.MultiExpG1(hs, rM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	t2.Add(t2, hm)
	t3s := make([]*bn.G1, len(st.committed))
	for j, name := range st.committed {
		t3s[j] = utils.ProductOfExpG1(pp.PedG, rM[st.hiddenPos[name]], pp.PedH, rRho[j])
	}

	c := challenge(pp, st, req, aPrime, aBar, d, t1, t2, cs, t3s)

	zs := make([]*big.Int, 0, st.numResponses())
	zs = append(zs,
		utils.SubMod(rE, utils.MulMod(c, sig.E)),
		utils.AddMod(rR2, utils.MulMod(c, r2)),
		utils.SubMod(rR3, utils.MulMod(c, r3)),
		utils.AddMod(rS, utils.MulMod(c, sPrime)),
	)
	for j, i := range st.hidden {
		zs = append(zs, utils.AddMod(rM[j], utils.MulMod(c, w.Attributes[i])))
	}
	for j := range st.committed {
		zs = append(zs, utils.AddMod(rRho[j], utils.MulMod(c, rhos[j])))
	}

	pc := &request.ProofComponent{
		Challenge: utils.ScalarToBytes(c),
		Auxiliary: [][]byte{aPrime.Marshal(), aBar.Marshal(), d.Marshal()},
	}
	for _, z := range zs {
		pc.Responses = append(pc.Responses, utils.ScalarToBytes(z))
	}

	return pc, nil
}

// Verify 验证请求中的签名知识证明
//  1. 请求所针对的发行方公钥版本与pp一致
//  2. A' != 1 且 e(A', W) == e(ABar, g2)
//  3. 重新计算t1、t2、t3并检查Fiat-Shamir挑战
func Verify(req *request.VerificationRequest, pp *issuer.PublicParams) error {
	const prefix = "failed to verify signature proof"
	if subtle.ConstantTimeCompare(req.IssuerKeyID, pp.ID()) != 1 {
		return fmt.Errorf("%s: %w", prefix, ErrIssuerMismatch)
	}
	st, err := newStatement(pp, req)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}

	sp := &req.SignatureProof
	if len(sp.Auxiliary) != 3 || len(sp.Responses) != st.numResponses() {
		return fmt.Errorf(
			"%s: %w, want 3 auxiliary elements and %d responses, got %d and %d",
			prefix, ErrMalformedProof, st.numResponses(), len(sp.Auxiliary), len(sp.Responses),
		)
	}
	aux, err := utils.G1sFromBytes(sp.Auxiliary)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", prefix, ErrMalformedProof, err)
	}
	c, err := utils.ScalarFromBytes(sp.Challenge)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", prefix, ErrMalformedProof, err)
	}
	zs, err := utils.ScalarsFromBytes(sp.Responses)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", prefix, ErrMalformedProof, err)
	}
	cs, err := parseCommitments(st, req)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}

	aPrime, aBar, d := aux[0], aux[1], aux[2]
	if utils.IsIdentityG1(aPrime) {
		return fmt.Errorf("%s: %w, A' is the identity", prefix, ErrIncorrectSignatureProof)
	}
	pairingOK := utils.PairingsEqual(
		[]utils.PairArg{{A: aPrime, B: pp.PK.W}},
		[]utils.PairArg{{A: aBar, B: utils.G2Generator()}},
	)

	cneg := utils.AddInv(c, bn.Order)
	zE, zR2, zR3, zS := zs[0], zs[1], zs[2], zs[3]
	zM := zs[numFixedResponses : numFixedResponses+len(st.hidden)]
	zRho := zs[numFixedResponses+len(st.hidden):]

	t1 := utils.ProductOfExpG1(aPrime, zE, pp.Sig.HRand, zR2)
	t1.Add(t1, new(bn.G1).ScalarMult(utils.SubG1(aBar, d), cneg))

	t2 := utils.ProductOfExpG1(d, zR3, pp.Sig.HRand, zS)
	hs := make([]*bn.G1, len(st.hidden))
	for j, i := range st.hidden {
		hs[j] = pp.Sig.HAttrs[i]
	}
	hm, err := utils.MultiExpG1(hs, zM)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	t2.Add(t2, hm)
	t2.Add(t2, new(bn.G1).ScalarMult(revealedBase(pp, st, req), c))

	t3s := make([]*bn.G1, len(st.committed))
	for j, name := range st.committed {
		t3s[j] = utils.ProductOfExpG1(pp.PedG, zM[st.hiddenPos[name]], pp.PedH, zRho[j])
		t3s[j].Add(t3s[j], new(bn.G1).ScalarMult(cs[j], cneg))
	}

	cPrime := challenge(pp, st, req, aPrime, aBar, d, t1, t2, cs, t3s)
	hashOK := subtle.ConstantTimeCompare(utils.ScalarToBytes(c), utils.ScalarToBytes(cPrime)) == 1
	if !pairingOK || !hashOK {
		return fmt.Errorf("%s: %w", prefix, ErrIncorrectSignatureProof)
	}

	return nil
}
