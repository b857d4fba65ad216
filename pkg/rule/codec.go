package rule

import (
	"fmt"
	"math"

	"github.com/TomCN0803/sdverify/pkg/wire"
)

const (
	fieldRuleIssuerKeyID = 1
	fieldRuleNonce       = 2
	fieldRulePredicates  = 3

	fieldPredAttribute       = 1
	fieldPredKind            = 2
	fieldPredMin             = 3
	fieldPredMax             = 4
	fieldPredOperands        = 5
	fieldPredEqualsAttribute = 6
)

// Marshal encodes r in the protobuf wire format.
func (r *VerificationRule) Marshal() []byte {
	e := new(wire.Encoder).
		OptBytes(fieldRuleIssuerKeyID, r.IssuerKeyID).
		OptBytes(fieldRuleNonce, r.Nonce)
	for i := range r.Predicates {
		p := &r.Predicates[i]
		pe := new(wire.Encoder).
			String(fieldPredAttribute, p.Attribute).
			Uint64(fieldPredKind, uint64(p.Kind)).
			Uint64(fieldPredMin, p.Min).
			Uint64(fieldPredMax, p.Max)
		for _, o := range p.Operands {
			pe.String(fieldPredOperands, o)
		}
		pe.OptString(fieldPredEqualsAttribute, p.EqualsAttribute)
		e.Message(fieldRulePredicates, pe)
	}

	return e.Encoded()
}

// Unmarshal decodes a rule encoded by Marshal. It performs no policy checks, see Validate.
func Unmarshal(b []byte) (*VerificationRule, error) {
	const prefix = "failed to unmarshal verification rule"
	r := new(VerificationRule)
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldRuleIssuerKeyID:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			r.IssuerKeyID = append([]byte(nil), f.Bytes...)
		case fieldRuleNonce:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			r.Nonce = append([]byte(nil), f.Bytes...)
		case fieldRulePredicates:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			p, err := unmarshalPredicate(f.Bytes)
			if err != nil {
				return fmt.Errorf("predicate %d: %w", len(r.Predicates), err)
			}
			r.Predicates = append(r.Predicates, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}

	return r, nil
}

func unmarshalPredicate(b []byte) (PredicateSpec, error) {
	var p PredicateSpec
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldPredAttribute:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			p.Attribute = string(f.Bytes)
		case fieldPredKind:
			if err := f.ExpectVarint(); err != nil {
				return err
			}
			if f.Varint > math.MaxUint32 {
				return fmt.Errorf("%w: predicate kind overflows", wire.ErrMalformed)
			}
			p.Kind = PredicateKind(f.Varint)
		case fieldPredMin:
			if err := f.ExpectVarint(); err != nil {
				return err
			}
			p.Min = f.Varint
		case fieldPredMax:
			if err := f.ExpectVarint(); err != nil {
				return err
			}
			p.Max = f.Varint
		case fieldPredOperands:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			p.Operands = append(p.Operands, string(f.Bytes))
		case fieldPredEqualsAttribute:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			p.EqualsAttribute = string(f.Bytes)
		}
		return nil
	})

	return p, err
}
