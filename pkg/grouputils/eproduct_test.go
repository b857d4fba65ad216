package grouputils

import (
	"crypto/rand"
	"math/big"
	"testing"

	bn "github.com/cloudflare/bn256"
	"github.com/stretchr/testify/require"
)

const numPairArgs = 20

func BenchmarkPairingProduct(b *testing.B) {
	args := randPairArgs(numPairArgs)
	for i := 0; i < b.N; i++ {
		PairingProduct(args)
	}
}

func BenchmarkPairingProductNoOpt(b *testing.B) {
	args := randPairArgs(numPairArgs)
	for i := 0; i < b.N; i++ {
		pairingProductNoOpt(args)
	}
}

func TestPairingProduct(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5} {
		args := randPairArgs(n)
		require.True(t, Equals(PairingProduct(args), pairingProductNoOpt(args)))
	}
}

func TestPairingsEqual(t *testing.T) {
	t.Parallel()

	// e(g1^a, g2^b) == e(g1^(ab), g2)
	a, b := big.NewInt(6), big.NewInt(35)
	lhs := []PairArg{{A: NewG1(a), B: NewG2(b)}}
	rhs := []PairArg{{A: G1Generator(), B: G2Generator(), C: MulMod(a, b)}}
	require.True(t, PairingsEqual(lhs, rhs))

	rhs[0].C = big.NewInt(1)
	require.False(t, PairingsEqual(lhs, rhs))
}

func pairingProductNoOpt(args []PairArg) *bn.GT {
	res := new(bn.GT).ScalarBaseMult(big.NewInt(0))
	for _, arg := range args {
		a := new(bn.G1).Set(arg.A)
		if arg.C != nil {
			a.ScalarMult(a, arg.C)
		}
		res.Add(res, bn.Pair(a, arg.B))
	}

	return res
}

func randPairArgs(n int) []PairArg {
	res := make([]PairArg, n)
	for i := range res {
		_, g1, _ := bn.RandomG1(rand.Reader)
		_, g2, _ := bn.RandomG2(rand.Reader)
		c, _ := rand.Int(rand.Reader, bn.Order)
		res[i] = PairArg{g1, g2, c}
	}

	return res
}
