package grouputils

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/cloudflare/bn256"
	"github.com/stretchr/testify/require"
)

func TestEquals(t *testing.T) {
	testCases := []struct {
		name string
		a, b serializable
		ans  bool
	}{
		{
			"both a and b are in G1 and a == b",
			NewG1(big.NewInt(128)),
			NewG1(big.NewInt(128)),
			true,
		},
		{
			"both a and b are in G1 and a != b",
			NewG1(big.NewInt(128)),
			NewG1(big.NewInt(64)),
			false,
		},
		{
			"both a and b are in G2 and a == b",
			NewG2(big.NewInt(128)),
			NewG2(big.NewInt(128)),
			true,
		},
		{
			"both a and b are in G2 and a != b",
			NewG2(big.NewInt(128)),
			NewG2(big.NewInt(64)),
			false,
		},
		{
			"a in G1 and b in G2",
			NewG1(big.NewInt(128)),
			NewG2(big.NewInt(128)),
			false,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.ans, Equals(tc.a, tc.b))
		})
	}
}

func TestIsIdentityG1(t *testing.T) {
	t.Parallel()

	require.True(t, IsIdentityG1(NewG1(big.NewInt(0))))
	require.True(t, IsIdentityG1(NewG1(bn256.Order)))
	require.False(t, IsIdentityG1(G1Generator()))
}

func TestModArithmetic(t *testing.T) {
	t.Parallel()

	a, b := big.NewInt(7), big.NewInt(9)
	require.Zero(t, AddMod(SubMod(a, b), b).Cmp(a))
	require.Zero(t, AddMod(a, AddInv(a, bn256.Order)).Sign())
	require.Zero(t, MulMod(a, b).Cmp(big.NewInt(63)))
	require.Zero(t, SubMod(big.NewInt(0), big.NewInt(1)).Cmp(new(big.Int).Sub(bn256.Order, big.NewInt(1))))
}

func TestMultiExpG1(t *testing.T) {
	t.Parallel()

	g := G1Generator()
	_, h, err := bn256.RandomG1(rand.Reader)
	require.NoError(t, err)
	a, b := big.NewInt(11), big.NewInt(13)

	res, err := MultiExpG1([]*bn256.G1{g, h}, []*big.Int{a, b})
	require.NoError(t, err)
	require.True(t, Equals(res, ProductOfExpG1(g, a, h, b)))

	empty, err := MultiExpG1(nil, nil)
	require.NoError(t, err)
	require.True(t, IsIdentityG1(empty))

	_, err = MultiExpG1([]*bn256.G1{g}, nil)
	require.ErrorIs(t, err, ErrInconsistentLength)
}

func TestSubG1(t *testing.T) {
	t.Parallel()

	require.True(t, Equals(SubG1(NewG1(big.NewInt(10)), NewG1(big.NewInt(4))), NewG1(big.NewInt(6))))
}

func TestScalarEncoding(t *testing.T) {
	t.Parallel()

	k, err := RandomScalar(nil)
	require.NoError(t, err)
	b := ScalarToBytes(k)
	require.Len(t, b, ScalarSizeByte)
	k2, err := ScalarFromBytes(b)
	require.NoError(t, err)
	require.Zero(t, k.Cmp(k2))

	testCases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"too short", make([]byte, ScalarSizeByte-1), ErrWrongSize},
		{"too long", make([]byte, ScalarSizeByte+1), ErrWrongSize},
		{"not reduced", bn256.Order.FillBytes(make([]byte, ScalarSizeByte)), ErrScalarOutOfRange},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := ScalarFromBytes(tc.in)
			require.Nil(t, res)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestG1FromBytes(t *testing.T) {
	t.Parallel()

	_, p, err := bn256.RandomG1(rand.Reader)
	require.NoError(t, err)

	p2, err := G1FromBytes(p.Marshal())
	require.NoError(t, err)
	require.True(t, Equals(p, p2))

	_, err = G1FromBytes(p.Marshal()[:G1SizeByte-1])
	require.ErrorIs(t, err, ErrWrongSize)

	offCurve := make([]byte, G1SizeByte)
	offCurve[G1SizeByte-1] = 5
	_, err = G1FromBytes(offCurve)
	require.ErrorIs(t, err, ErrMalformedPoint)
}

func TestG2FromBytes(t *testing.T) {
	t.Parallel()

	_, p, err := bn256.RandomG2(rand.Reader)
	require.NoError(t, err)
	require.Len(t, p.Marshal(), G2SizeByte)

	p2, err := G2FromBytes(p.Marshal())
	require.NoError(t, err)
	require.True(t, Equals(p, p2))

	testCases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"G1 sized", make([]byte, G1SizeByte), ErrWrongSize},
		{"one byte infinity", NewG2(big.NewInt(0)).Marshal(), ErrWrongSize},
		{"infinity prefix", make([]byte, G2SizeByte), ErrIdentityPoint},
		{"zero coordinates", append([]byte{0x01}, make([]byte, G2SizeByte-1)...), ErrIdentityPoint},
		{"bad prefix", append([]byte{0x02}, p.Marshal()[1:]...), ErrMalformedPoint},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := G2FromBytes(tc.in)
			require.Nil(t, res)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	c1 := NewTranscript("label").AppendString("ab").AppendString("c").Challenge()
	c2 := NewTranscript("label").AppendString("a").AppendString("bc").Challenge()
	c3 := NewTranscript("label").AppendString("ab").AppendString("c").Challenge()
	require.NotZero(t, c1.Cmp(c2))
	require.Zero(t, c1.Cmp(c3))
	require.Equal(t, -1, c1.Cmp(bn256.Order))
}
