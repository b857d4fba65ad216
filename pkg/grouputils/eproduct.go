package grouputils

import (
	"math/big"

	bn "github.com/cloudflare/bn256"
)

// PairArg is one factor e(A^C, B) of a pairing product. A nil C means exponent 1.
type PairArg struct {
	A *bn.G1
	B *bn.G2
	C *big.Int
}

// PairingProduct computes prod(e(A_i^C_i, B_i)) with a single final exponentiation.
func PairingProduct(args []PairArg) *bn.GT {
	res := new(bn.GT).ScalarBaseMult(big.NewInt(0))
	for i := 0; i < len(args); i += 2 {
		var e *bn.GT
		if i == len(args)-1 {
			e = miller(args[i])
		} else {
			e = new(bn.GT).Add(miller(args[i]), miller(args[i+1]))
		}
		res.Add(res, e)
	}

	return res.Finalize()
}

// PairingsEqual checks prod(e(lhs)) == prod(e(rhs)).
func PairingsEqual(lhs, rhs []PairArg) bool {
	return Equals(PairingProduct(lhs), PairingProduct(rhs))
}

func miller(arg PairArg) *bn.GT {
	a := new(bn.G1).Set(arg.A)
	if arg.C != nil {
		a.ScalarMult(a, arg.C)
	}

	return bn.Miller(a, arg.B)
}
