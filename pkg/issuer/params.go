// Package issuer holds the issuer public parameters that anchor verification:
// the credential schema, the BBS+ public key and generators, and the Pedersen
// generators holders commit hidden attributes under.
package issuer

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"

	"github.com/TomCN0803/sdverify/pkg/bbsplus"
	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/wire"
	bn "github.com/cloudflare/bn256"
)

var (
	ErrEmptySchema       = errors.New("empty credential schema")
	ErrDuplicateAttr     = errors.New("duplicate schema attribute")
	ErrGeneratorMismatch = errors.New("number of attribute generators does not match schema")
	ErrMissingField      = errors.New("missing field")
)

// KeyIDSize is the size of a PublicParams identifier.
const KeyIDSize = sha256.Size

const (
	fieldVersion    = 1
	fieldAttributes = 2
	fieldW          = 3
	fieldHRand      = 4
	fieldHAttrs     = 5
	fieldPedG       = 6
	fieldPedH       = 7

	fieldAttrName = 1
	fieldAttrKind = 2
)

// PublicParams 发行方公共参数，验证方唯一的信任锚
type PublicParams struct {
	Version uint64
	Schema  rule.Schema
	Sig     *bbsplus.Parameters
	PK      *bbsplus.PK
	PedG    *bn.G1
	PedH    *bn.G1

	id []byte
}

// New assembles and checks issuer public parameters.
func New(version uint64, schema rule.Schema, sig *bbsplus.Parameters, pk *bbsplus.PK, pedG, pedH *bn.G1) (*PublicParams, error) {
	pp := &PublicParams{
		Version: version,
		Schema:  schema,
		Sig:     sig,
		PK:      pk,
		PedG:    pedG,
		PedH:    pedH,
	}
	if err := pp.check(); err != nil {
		return nil, fmt.Errorf("invalid issuer parameters: %w", err)
	}
	pp.id = idOf(pp.Marshal())

	return pp, nil
}

func (pp *PublicParams) check() error {
	if len(pp.Schema) == 0 {
		return ErrEmptySchema
	}
	names := make(map[string]struct{}, len(pp.Schema))
	for _, a := range pp.Schema {
		if _, dup := names[a.Name]; dup || a.Name == "" {
			return fmt.Errorf("%w: %q", ErrDuplicateAttr, a.Name)
		}
		names[a.Name] = struct{}{}
	}
	switch {
	case pp.Sig == nil || pp.Sig.HRand == nil:
		return fmt.Errorf("%w: h_rand", ErrMissingField)
	case pp.PK == nil || pp.PK.W == nil:
		return fmt.Errorf("%w: w", ErrMissingField)
	case pp.PedG == nil:
		return fmt.Errorf("%w: ped_g", ErrMissingField)
	case pp.PedH == nil:
		return fmt.Errorf("%w: ped_h", ErrMissingField)
	}
	if len(pp.Sig.HAttrs) != len(pp.Schema) {
		return fmt.Errorf("%w: %d generators, %d attributes", ErrGeneratorMismatch, len(pp.Sig.HAttrs), len(pp.Schema))
	}
	for i, h := range pp.Sig.HAttrs {
		if h == nil {
			return fmt.Errorf("%w: h_attrs[%d]", ErrMissingField, i)
		}
	}

	return nil
}

// ID returns the key identifier: the SHA-256 digest of the canonical encoding.
// Rules and requests name the parameters they were built for by this value.
func (pp *PublicParams) ID() []byte {
	if pp.id == nil {
		return idOf(pp.Marshal())
	}
	return append([]byte(nil), pp.id...)
}

func idOf(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// Marshal encodes pp in the protobuf wire format.
func (pp *PublicParams) Marshal() []byte {
	e := new(wire.Encoder).Uint64(fieldVersion, pp.Version)
	for _, a := range pp.Schema {
		e.Message(fieldAttributes, new(wire.Encoder).
			String(fieldAttrName, a.Name).
			Uint64(fieldAttrKind, uint64(a.Kind)))
	}
	e.Bytes(fieldW, pp.PK.W.Marshal()).
		Bytes(fieldHRand, pp.Sig.HRand.Marshal())
	for _, h := range pp.Sig.HAttrs {
		e.Bytes(fieldHAttrs, h.Marshal())
	}
	e.Bytes(fieldPedG, pp.PedG.Marshal()).
		Bytes(fieldPedH, pp.PedH.Marshal())

	return e.Encoded()
}

// Unmarshal decodes and checks parameters encoded by Marshal.
func Unmarshal(b []byte) (*PublicParams, error) {
	const prefix = "failed to unmarshal issuer parameters"
	pp := &PublicParams{Sig: new(bbsplus.Parameters), PK: new(bbsplus.PK)}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case fieldVersion:
			if err = f.ExpectVarint(); err == nil {
				pp.Version = f.Varint
			}
		case fieldAttributes:
			if err = f.ExpectBytes(); err == nil {
				var a rule.AttributeTemplate
				a, err = unmarshalTemplate(f.Bytes)
				pp.Schema = append(pp.Schema, a)
			}
		case fieldW:
			if err = f.ExpectBytes(); err == nil {
				pp.PK.W, err = utils.G2FromBytes(f.Bytes)
			}
		case fieldHRand:
			if err = f.ExpectBytes(); err == nil {
				pp.Sig.HRand, err = utils.G1FromBytes(f.Bytes)
			}
		case fieldHAttrs:
			if err = f.ExpectBytes(); err == nil {
				var h *bn.G1
				h, err = utils.G1FromBytes(f.Bytes)
				pp.Sig.HAttrs = append(pp.Sig.HAttrs, h)
			}
		case fieldPedG:
			if err = f.ExpectBytes(); err == nil {
				pp.PedG, err = utils.G1FromBytes(f.Bytes)
			}
		case fieldPedH:
			if err = f.ExpectBytes(); err == nil {
				pp.PedH, err = utils.G1FromBytes(f.Bytes)
			}
		}
		if err != nil {
			return fmt.Errorf("field %d: %w", f.Num, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	if err := pp.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	pp.id = idOf(pp.Marshal())

	return pp, nil
}

func unmarshalTemplate(b []byte) (rule.AttributeTemplate, error) {
	var a rule.AttributeTemplate
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldAttrName:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			a.Name = string(f.Bytes)
		case fieldAttrKind:
			if err := f.ExpectVarint(); err != nil {
				return err
			}
			if f.Varint > math.MaxUint32 || rule.AttributeKind(f.Varint) > rule.Hidden {
				return fmt.Errorf("%w: attribute kind %d", wire.ErrMalformed, f.Varint)
			}
			a.Kind = rule.AttributeKind(f.Varint)
		}
		return nil
	})

	return a, err
}
