package request

import (
	"bytes"
	"testing"

	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/wire"
	"github.com/stretchr/testify/require"
)

func sampleRequest() *VerificationRequest {
	scalar := bytes.Repeat([]byte{1}, utils.ScalarSizeByte)
	point := bytes.Repeat([]byte{2}, utils.G1SizeByte)
	return &VerificationRequest{
		IssuerKeyID:        bytes.Repeat([]byte{9}, KeyIDSize),
		Nonce:              []byte("nonce"),
		RevealedAttributes: map[string]string{"age_bracket": "adult", "country": "CN"},
		Commitments:        map[string]Commitment{"income": point},
		ProofComponents: []ProofComponent{
			{
				Attribute: "income",
				Kind:      rule.Range,
				Challenge: scalar,
				Responses: [][]byte{scalar, scalar},
				Auxiliary: [][]byte{point},
			},
		},
		SignatureProof: ProofComponent{
			Challenge: scalar,
			Responses: [][]byte{scalar, scalar, scalar, scalar},
			Auxiliary: [][]byte{point, point, point},
		},
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	req := sampleRequest()
	raw := req.Marshal()
	got, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, req, got)
	require.Equal(t, raw, got.Marshal())
}

func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(r *VerificationRequest)
		field  string
		err    error
	}{
		{
			"truncated commitment",
			func(r *VerificationRequest) { r.Commitments["income"] = r.Commitments["income"][:utils.G1SizeByte-1] },
			"commitments.income",
			ErrWrongSize,
		},
		{
			"wrong-size scalar",
			func(r *VerificationRequest) { r.ProofComponents[0].Responses[1] = make([]byte, utils.ScalarSizeByte+1) },
			"proof_components[0].responses[1]",
			ErrWrongSize,
		},
		{
			"wrong-size auxiliary element",
			func(r *VerificationRequest) { r.SignatureProof.Auxiliary[2] = make([]byte, utils.G2SizeByte) },
			"signature_proof.auxiliary[2]",
			ErrWrongSize,
		},
		{
			"short challenge",
			func(r *VerificationRequest) { r.SignatureProof.Challenge = []byte{1} },
			"signature_proof.challenge",
			ErrWrongSize,
		},
		{
			"short issuer key id",
			func(r *VerificationRequest) { r.IssuerKeyID = []byte{1} },
			"issuer_key_id",
			ErrWrongSize,
		},
		{
			"empty issuer key id",
			func(r *VerificationRequest) { r.IssuerKeyID = nil },
			"issuer_key_id",
			ErrWrongSize,
		},
		{
			"component without attribute",
			func(r *VerificationRequest) { r.ProofComponents[0].Attribute = "" },
			"proof_components[0].attribute",
			ErrEmptyName,
		},
		{
			"component with pure reveal kind",
			func(r *VerificationRequest) { r.ProofComponents[0].Kind = rule.PureReveal },
			"proof_components[0].kind",
			ErrUnknownKind,
		},
		{
			"component with unknown kind",
			func(r *VerificationRequest) { r.ProofComponents[0].Kind = rule.PredicateKind(99) },
			"proof_components[0].kind",
			ErrUnknownKind,
		},
		{
			"duplicate component",
			func(r *VerificationRequest) { r.ProofComponents = append(r.ProofComponents, r.ProofComponents[0]) },
			"proof_components[1]",
			ErrDuplicate,
		},
		{
			"signature proof bound to predicate",
			func(r *VerificationRequest) { r.SignatureProof.Attribute = "income" },
			"signature_proof",
			nil,
		},
		{
			"invalid UTF-8 value",
			func(r *VerificationRequest) { r.RevealedAttributes["country"] = "\xff" },
			"revealed_attributes.country",
			ErrInvalidUTF8,
		},
		{
			"empty attribute name",
			func(r *VerificationRequest) { r.RevealedAttributes[""] = "x" },
			"revealed_attributes",
			ErrEmptyName,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := sampleRequest()
			tc.mutate(req)
			res, err := Decode(req.Marshal())
			require.Nil(t, res)
			require.ErrorIs(t, err, ErrMalformed)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			require.Equal(t, tc.field, de.Field)
		})
	}
}

func TestDecodeMissingSignatureProof(t *testing.T) {
	t.Parallel()

	raw := new(wire.Encoder).Bytes(fieldIssuerKeyID, make([]byte, KeyIDSize)).Encoded()
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrMissingField)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "signature_proof", de.Field)
}

func TestDecodeDuplicates(t *testing.T) {
	t.Parallel()

	pair := new(wire.Encoder).String(fieldPairName, "country").String(fieldPairValue, "CN")
	raw := append(sampleRequest().Marshal(), new(wire.Encoder).Message(fieldRevealed, pair).Encoded()...)
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrDuplicate)

	sig := encodeComponent(&sampleRequest().SignatureProof)
	raw = append(sampleRequest().Marshal(), new(wire.Encoder).Message(fieldSignatureProof, sig).Encoded()...)
	_, err = Decode(raw)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestDecodeTruncatedInput(t *testing.T) {
	t.Parallel()

	raw := sampleRequest().Marshal()
	for _, n := range []int{1, 10, len(raw) / 2, len(raw) - 1} {
		res, err := Decode(raw[:n])
		require.Nil(t, res)
		require.ErrorIs(t, err, ErrMalformed)
	}
}

func TestDecodeWrongWireType(t *testing.T) {
	t.Parallel()

	raw := new(wire.Encoder).Uint64(fieldIssuerKeyID, 1).Encoded()
	_, err := Decode(raw)
	require.ErrorIs(t, err, wire.ErrWrongWireType)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	raw := append(sampleRequest().Marshal(), new(wire.Encoder).String(99, "future").Encoded()...)
	got, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, sampleRequest(), got)
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	req := sampleRequest()
	c, ok := req.Component("income", rule.Range)
	require.True(t, ok)
	require.Len(t, c.Auxiliary, 1)
	_, ok = req.Component("income", rule.Membership)
	require.False(t, ok)

	v, ok := req.Revealed("age_bracket")
	require.True(t, ok)
	require.Equal(t, "adult", v)
	_, ok = req.Commitment("income")
	require.True(t, ok)

	cp := req.RevealedCopy()
	cp["age_bracket"] = "minor"
	require.Equal(t, "adult", req.RevealedAttributes["age_bracket"])

	require.Equal(t, []string{"age_bracket", "country"}, req.RevealedNames())
	require.Equal(t, []string{"income"}, req.CommittedNames())
}
