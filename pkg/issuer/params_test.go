package issuer_test

import (
	"testing"

	"github.com/TomCN0803/sdverify/pkg/bbsplus"
	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/issuer/issuertest"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/wire"
	"github.com/stretchr/testify/require"
)

var testSchema = rule.Schema{
	{Name: "age_bracket", Kind: rule.Revealed},
	{Name: "income", Kind: rule.Hidden},
}

func TestParamsRoundTrip(t *testing.T) {
	t.Parallel()

	is, err := issuertest.Setup(nil, 7, testSchema)
	require.NoError(t, err)
	pp := is.Params
	require.Len(t, pp.ID(), issuer.KeyIDSize)

	require.Len(t, pp.PK.W.Marshal(), utils.G2SizeByte)
	pp2, err := issuer.Unmarshal(pp.Marshal())
	require.NoError(t, err)
	require.Equal(t, pp.ID(), pp2.ID())
	require.Equal(t, uint64(7), pp2.Version)
	require.Equal(t, testSchema, pp2.Schema)
	require.True(t, utils.Equals(pp.PK.W, pp2.PK.W))
	require.True(t, utils.Equals(pp.PedH, pp2.PedH))
}

func TestParamsIDDependsOnVersion(t *testing.T) {
	t.Parallel()

	is, err := issuertest.Setup(nil, 1, testSchema)
	require.NoError(t, err)
	pp := is.Params

	next, err := issuer.New(2, pp.Schema, pp.Sig, pp.PK, pp.PedG, pp.PedH)
	require.NoError(t, err)
	require.NotEqual(t, pp.ID(), next.ID())

	// ID of a literal is computed on demand
	lit := &issuer.PublicParams{Version: 1, Schema: pp.Schema, Sig: pp.Sig, PK: pp.PK, PedG: pp.PedG, PedH: pp.PedH}
	require.Equal(t, pp.ID(), lit.ID())
}

func TestNewInvalid(t *testing.T) {
	is, err := issuertest.Setup(nil, 1, testSchema)
	require.NoError(t, err)
	pp := is.Params

	testCases := []struct {
		name   string
		schema rule.Schema
		sig    *bbsplus.Parameters
		pk     *bbsplus.PK
		err    error
	}{
		{"empty schema", nil, pp.Sig, pp.PK, issuer.ErrEmptySchema},
		{
			"duplicate attribute",
			rule.Schema{{Name: "income"}, {Name: "income"}},
			pp.Sig, pp.PK, issuer.ErrDuplicateAttr,
		},
		{
			"empty attribute name",
			rule.Schema{{Name: "income"}, {Name: ""}},
			pp.Sig, pp.PK, issuer.ErrDuplicateAttr,
		},
		{
			"generator count mismatch",
			rule.Schema{{Name: "income"}},
			pp.Sig, pp.PK, issuer.ErrGeneratorMismatch,
		},
		{"missing public key", testSchema, pp.Sig, nil, issuer.ErrMissingField},
		{"missing signature parameters", testSchema, nil, pp.PK, issuer.ErrMissingField},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := issuer.New(1, tc.schema, tc.sig, tc.pk, pp.PedG, pp.PedH)
			require.Nil(t, res)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	is, err := issuertest.Setup(nil, 1, testSchema)
	require.NoError(t, err)
	good := is.Params.Marshal()

	testCases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"empty", nil, issuer.ErrEmptySchema},
		{"truncated", good[:len(good)-1], wire.ErrMalformed},
		{
			"bad point",
			new(wire.Encoder).Bytes(4, make([]byte, utils.G1SizeByte-1)).Encoded(),
			utils.ErrWrongSize,
		},
		{
			"W at infinity",
			new(wire.Encoder).Bytes(3, make([]byte, utils.G2SizeByte)).Encoded(),
			utils.ErrIdentityPoint,
		},
		{
			"unknown attribute kind",
			new(wire.Encoder).Message(2, new(wire.Encoder).String(1, "x").Uint64(2, 9)).Encoded(),
			wire.ErrMalformed,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := issuer.Unmarshal(tc.in)
			require.Nil(t, res)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	a, err := issuertest.Setup(nil, 1, testSchema)
	require.NoError(t, err)
	b, err := issuertest.Setup(nil, 1, testSchema)
	require.NoError(t, err)

	reg, err := issuer.NewRegistry(a.Params, b.Params)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	pp, err := reg.Lookup(b.Params.ID())
	require.NoError(t, err)
	require.Same(t, b.Params, pp)

	_, err = reg.Lookup(make([]byte, issuer.KeyIDSize))
	require.ErrorIs(t, err, issuer.ErrUnknownIssuer)

	_, err = issuer.NewRegistry(a.Params, a.Params)
	require.ErrorIs(t, err, issuer.ErrDuplicateIssuer)
}

func TestNilRegistry(t *testing.T) {
	t.Parallel()

	var reg *issuer.Registry
	require.Zero(t, reg.Len())
	_, err := reg.Lookup(make([]byte, issuer.KeyIDSize))
	require.ErrorIs(t, err, issuer.ErrUnknownIssuer)
}
