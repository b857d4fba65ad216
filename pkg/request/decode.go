package request

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	utils "github.com/TomCN0803/sdverify/pkg/grouputils"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/wire"
)

var (
	ErrMalformed       = errors.New("malformed verification request")
	ErrMissingField    = errors.New("missing field")
	ErrWrongSize       = errors.New("wrong size")
	ErrInvalidUTF8     = errors.New("invalid UTF-8")
	ErrEmptyName       = errors.New("empty attribute name")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrUnknownKind     = errors.New("unknown predicate kind")
	ErrTooManyElements = errors.New("too many elements")
)

const (
	// KeyIDSize is the size of an issuer key identifier.
	KeyIDSize = 32
	// MaxNonceSize bounds the nonce a request may carry.
	MaxNonceSize = 1024
	// MaxElements bounds the responses or auxiliary elements of one component.
	MaxElements = 1 << 12
)

const (
	fieldIssuerKeyID     = 1
	fieldNonce           = 2
	fieldRevealed        = 3
	fieldCommitments     = 4
	fieldProofComponents = 5
	fieldSignatureProof  = 6

	fieldPairName  = 1
	fieldPairValue = 2

	fieldCompAttribute = 1
	fieldCompKind      = 2
	fieldCompChallenge = 3
	fieldCompResponses = 4
	fieldCompAuxiliary = 5
)

// DecodeError 表示请求在结构上不合法，Field为出错的字段
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed verification request field %q: %s", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

func malformed(field string, err error) error {
	return &DecodeError{Field: field, Err: err}
}

// Decode parses a wire-encoded verification request and checks its structure.
func Decode(raw []byte) (*VerificationRequest, error) {
	req := &VerificationRequest{
		RevealedAttributes: make(map[string]string),
		Commitments:        make(map[string]Commitment),
	}
	var (
		haveKey, haveSig bool
		seenComponents   = make(map[componentKey]struct{})
	)

	err := wire.Walk(raw, func(f wire.Field) error {
		switch f.Num {
		case fieldIssuerKeyID:
			if err := f.ExpectBytes(); err != nil {
				return malformed("issuer_key_id", err)
			}
			if len(f.Bytes) != KeyIDSize {
				return malformed("issuer_key_id", fmt.Errorf("%w: want %d bytes, got %d", ErrWrongSize, KeyIDSize, len(f.Bytes)))
			}
			req.IssuerKeyID = append([]byte(nil), f.Bytes...)
			haveKey = true
		case fieldNonce:
			if err := f.ExpectBytes(); err != nil {
				return malformed("nonce", err)
			}
			if len(f.Bytes) > MaxNonceSize {
				return malformed("nonce", fmt.Errorf("%w: at most %d bytes", ErrWrongSize, MaxNonceSize))
			}
			req.Nonce = append([]byte(nil), f.Bytes...)
		case fieldRevealed:
			if err := f.ExpectBytes(); err != nil {
				return malformed("revealed_attributes", err)
			}
			name, value, err := decodePair(f.Bytes, fieldPairName, fieldPairValue)
			if err != nil {
				return malformed("revealed_attributes", err)
			}
			if !utf8.Valid(value) {
				return malformed("revealed_attributes."+name, ErrInvalidUTF8)
			}
			if _, dup := req.RevealedAttributes[name]; dup {
				return malformed("revealed_attributes."+name, ErrDuplicate)
			}
			req.RevealedAttributes[name] = string(value)
		case fieldCommitments:
			if err := f.ExpectBytes(); err != nil {
				return malformed("commitments", err)
			}
			name, value, err := decodePair(f.Bytes, fieldPairName, fieldPairValue)
			if err != nil {
				return malformed("commitments", err)
			}
			if len(value) != utils.G1SizeByte {
				return malformed("commitments."+name, fmt.Errorf("%w: want %d bytes, got %d", ErrWrongSize, utils.G1SizeByte, len(value)))
			}
			if _, dup := req.Commitments[name]; dup {
				return malformed("commitments."+name, ErrDuplicate)
			}
			req.Commitments[name] = Commitment(value)
		case fieldProofComponents:
			if err := f.ExpectBytes(); err != nil {
				return malformed("proof_components", err)
			}
			field := fmt.Sprintf("proof_components[%d]", len(req.ProofComponents))
			c, err := decodeComponent(f.Bytes, field)
			if err != nil {
				return err
			}
			if c.Attribute == "" {
				return malformed(field+".attribute", ErrEmptyName)
			}
			if !c.Kind.Valid() || c.Kind == rule.PureReveal {
				return malformed(field+".kind", fmt.Errorf("%w: %d", ErrUnknownKind, c.Kind))
			}
			k := componentKey{c.Attribute, c.Kind}
			if _, dup := seenComponents[k]; dup {
				return malformed(field, fmt.Errorf("%w: %s(%s)", ErrDuplicate, c.Kind, c.Attribute))
			}
			seenComponents[k] = struct{}{}
			req.ProofComponents = append(req.ProofComponents, *c)
		case fieldSignatureProof:
			if err := f.ExpectBytes(); err != nil {
				return malformed("signature_proof", err)
			}
			if haveSig {
				return malformed("signature_proof", ErrDuplicate)
			}
			c, err := decodeComponent(f.Bytes, "signature_proof")
			if err != nil {
				return err
			}
			if c.Attribute != "" || c.Kind != rule.KindUnspecified {
				return malformed("signature_proof", errors.New("signature proof must not be bound to a predicate"))
			}
			req.SignatureProof = *c
			haveSig = true
		}
		return nil
	})
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, malformed("request", err)
	}

	if !haveKey {
		return nil, malformed("issuer_key_id", ErrMissingField)
	}
	if !haveSig {
		return nil, malformed("signature_proof", ErrMissingField)
	}

	return req, nil
}

type componentKey struct {
	attr string
	kind rule.PredicateKind
}

func decodePair(b []byte, nameField, valueField int) (string, []byte, error) {
	var (
		name      []byte
		value     []byte
		haveValue bool
	)
	err := wire.Walk(b, func(f wire.Field) error {
		switch int(f.Num) {
		case nameField:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			name = f.Bytes
		case valueField:
			if err := f.ExpectBytes(); err != nil {
				return err
			}
			value = f.Bytes
			haveValue = true
		}
		return nil
	})
	switch {
	case err != nil:
		return "", nil, err
	case len(name) == 0:
		return "", nil, ErrEmptyName
	case !utf8.Valid(name):
		return "", nil, ErrInvalidUTF8
	case !haveValue:
		return "", nil, fmt.Errorf("%w: value of %q", ErrMissingField, name)
	}

	return string(name), append([]byte(nil), value...), nil
}

func decodeComponent(b []byte, field string) (*ProofComponent, error) {
	c := new(ProofComponent)
	haveChallenge := false
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldCompAttribute:
			if err := f.ExpectBytes(); err != nil {
				return malformed(field+".attribute", err)
			}
			if !utf8.Valid(f.Bytes) {
				return malformed(field+".attribute", ErrInvalidUTF8)
			}
			c.Attribute = string(f.Bytes)
		case fieldCompKind:
			if err := f.ExpectVarint(); err != nil {
				return malformed(field+".kind", err)
			}
			if f.Varint > math.MaxUint32 {
				return malformed(field+".kind", fmt.Errorf("%w: %d", ErrUnknownKind, f.Varint))
			}
			c.Kind = rule.PredicateKind(f.Varint)
		case fieldCompChallenge:
			if err := f.ExpectBytes(); err != nil {
				return malformed(field+".challenge", err)
			}
			if len(f.Bytes) != utils.ScalarSizeByte {
				return malformed(field+".challenge", fmt.Errorf("%w: want %d bytes, got %d", ErrWrongSize, utils.ScalarSizeByte, len(f.Bytes)))
			}
			c.Challenge = append([]byte(nil), f.Bytes...)
			haveChallenge = true
		case fieldCompResponses:
			if err := f.ExpectBytes(); err != nil {
				return malformed(field+".responses", err)
			}
			sub := fmt.Sprintf("%s.responses[%d]", field, len(c.Responses))
			if len(c.Responses) >= MaxElements {
				return malformed(sub, ErrTooManyElements)
			}
			if len(f.Bytes) != utils.ScalarSizeByte {
				return malformed(sub, fmt.Errorf("%w: want %d bytes, got %d", ErrWrongSize, utils.ScalarSizeByte, len(f.Bytes)))
			}
			c.Responses = append(c.Responses, append([]byte(nil), f.Bytes...))
		case fieldCompAuxiliary:
			if err := f.ExpectBytes(); err != nil {
				return malformed(field+".auxiliary", err)
			}
			sub := fmt.Sprintf("%s.auxiliary[%d]", field, len(c.Auxiliary))
			if len(c.Auxiliary) >= MaxElements {
				return malformed(sub, ErrTooManyElements)
			}
			if len(f.Bytes) != utils.G1SizeByte {
				return malformed(sub, fmt.Errorf("%w: want %d bytes, got %d", ErrWrongSize, utils.G1SizeByte, len(f.Bytes)))
			}
			c.Auxiliary = append(c.Auxiliary, append([]byte(nil), f.Bytes...))
		}
		return nil
	})
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, malformed(field, err)
	}
	if !haveChallenge {
		return nil, malformed(field+".challenge", ErrMissingField)
	}

	return c, nil
}

// Marshal encodes r in the wire format accepted by Decode. Map entries are
// written in name order so that equal requests encode identically.
func (r *VerificationRequest) Marshal() []byte {
	e := new(wire.Encoder).
		Bytes(fieldIssuerKeyID, r.IssuerKeyID).
		OptBytes(fieldNonce, r.Nonce)
	for _, name := range sortedKeys(r.RevealedAttributes) {
		e.Message(fieldRevealed, new(wire.Encoder).
			String(fieldPairName, name).
			String(fieldPairValue, r.RevealedAttributes[name]))
	}
	for _, name := range sortedKeys(r.Commitments) {
		e.Message(fieldCommitments, new(wire.Encoder).
			String(fieldPairName, name).
			Bytes(fieldPairValue, r.Commitments[name]))
	}
	for i := range r.ProofComponents {
		e.Message(fieldProofComponents, encodeComponent(&r.ProofComponents[i]))
	}
	e.Message(fieldSignatureProof, encodeComponent(&r.SignatureProof))

	return e.Encoded()
}

func encodeComponent(c *ProofComponent) *wire.Encoder {
	e := new(wire.Encoder).OptString(fieldCompAttribute, c.Attribute)
	if c.Kind != rule.KindUnspecified {
		e.Uint64(fieldCompKind, uint64(c.Kind))
	}
	e.Bytes(fieldCompChallenge, c.Challenge)
	for _, r := range c.Responses {
		e.Bytes(fieldCompResponses, r)
	}
	for _, a := range c.Auxiliary {
		e.Bytes(fieldCompAuxiliary, a)
	}
	return e
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
