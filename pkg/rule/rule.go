package rule

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jinzhu/copier"
)

// PredicateKind is the kind of condition a PredicateSpec places on an attribute.
type PredicateKind uint32

const (
	KindUnspecified PredicateKind = iota
	PureReveal
	Equality
	Range
	Membership
)

func (k PredicateKind) String() string {
	switch k {
	case KindUnspecified:
		return "unspecified"
	case PureReveal:
		return "pure_reveal"
	case Equality:
		return "equality"
	case Range:
		return "range"
	case Membership:
		return "membership"
	default:
		return "unknown(" + strconv.FormatUint(uint64(k), 10) + ")"
	}
}

// Valid reports whether k names a predicate kind.
func (k PredicateKind) Valid() bool {
	return k >= PureReveal && k <= Membership
}

// PredicateSpec 是对某个属性的谓词要求
//   - PureReveal: 属性必须公开
//   - Equality: 属性等于Operands[0]，或等于EqualsAttribute所指的属性
//   - Range: Min <= 属性 <= Max
//   - Membership: 属性属于集合Operands
type PredicateSpec struct {
	Attribute       string
	Kind            PredicateKind
	Min, Max        uint64
	Operands        []string
	EqualsAttribute string
}

func (p *PredicateSpec) String() string {
	return p.Kind.String() + "(" + p.Attribute + ")"
}

// VerificationRule is the verifier's disclosure policy.
type VerificationRule struct {
	// IssuerKeyID identifies the issuer public parameters the credential must be signed under.
	IssuerKeyID []byte
	// Nonce, when set, must equal the nonce the holder's proofs are bound to.
	Nonce      []byte
	Predicates []PredicateSpec
}

// Clone returns a deep copy of r. Nil slices of r stay nil in the copy.
func (r *VerificationRule) Clone() (*VerificationRule, error) {
	c := new(VerificationRule)
	if err := copier.CopyWithOption(c, r, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to clone verification rule: %w", err)
	}
	// copier does not preserve whether an empty slice was nil
	c.IssuerKeyID = sameNil(r.IssuerKeyID, c.IssuerKeyID)
	c.Nonce = sameNil(r.Nonce, c.Nonce)
	c.Predicates = sameNil(r.Predicates, c.Predicates)
	for i := range c.Predicates {
		c.Predicates[i].Operands = sameNil(r.Predicates[i].Operands, c.Predicates[i].Operands)
	}
	return c, nil
}

func sameNil[S ~[]E, E any](src, dst S) S {
	switch {
	case src == nil:
		return nil
	case dst == nil:
		return S{}
	}
	return dst
}

// Attributes returns every attribute name a predicate of r references, in first-use order.
func (r *VerificationRule) Attributes() []string {
	seen := make(map[string]struct{})
	var res []string
	add := func(a string) {
		if _, ok := seen[a]; a == "" || ok {
			return
		}
		seen[a] = struct{}{}
		res = append(res, a)
	}
	for _, p := range r.Predicates {
		add(p.Attribute)
		add(p.EqualsAttribute)
	}
	return res
}

var (
	ErrEmptyRule            = errors.New("rule has no predicates")
	ErrMissingIssuer        = errors.New("rule does not name an issuer key")
	ErrUnknownAttribute     = errors.New("attribute not in credential schema")
	ErrUnknownPredicateKind = errors.New("unknown predicate kind")
	ErrDuplicatePredicate   = errors.New("conflicting duplicate predicate")
	ErrRevealHidden         = errors.New("attribute is hidden by schema and cannot be revealed")
	ErrUnexpectedOperands   = errors.New("predicate takes no operands")
	ErrInvalidRange         = errors.New("range requires min <= max")
	ErrEmptySet             = errors.New("membership set is empty")
	ErrDuplicateMember      = errors.New("membership set has duplicate members")
	ErrInvalidEquality      = errors.New("equality requires exactly one constant or one other attribute")
	ErrSelfEquality         = errors.New("equality refers to the attribute itself")
)

// StructuralError 表示验证规则本身不合法
type StructuralError struct {
	Attribute string
	Err       error
}

func (e *StructuralError) Error() string {
	if e.Attribute == "" {
		return "invalid verification rule: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid verification rule at attribute %q: %s", e.Attribute, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(attr string, err error) error {
	return &StructuralError{Attribute: attr, Err: err}
}

type predicateKey struct {
	attr string
	kind PredicateKind
}

// Validate checks r against the credential schema before any request is decoded.
func Validate(r *VerificationRule, schema Schema) error {
	if len(r.IssuerKeyID) == 0 {
		return structural("", ErrMissingIssuer)
	}
	if len(r.Predicates) == 0 {
		return structural("", ErrEmptyRule)
	}

	seen := make(map[predicateKey]struct{}, len(r.Predicates))
	for i := range r.Predicates {
		p := &r.Predicates[i]
		if !p.Kind.Valid() {
			return structural(p.Attribute, fmt.Errorf("%w: %d", ErrUnknownPredicateKind, p.Kind))
		}
		tmpl, ok := schema.Lookup(p.Attribute)
		if !ok {
			return structural(p.Attribute, ErrUnknownAttribute)
		}
		k := predicateKey{p.Attribute, p.Kind}
		if _, dup := seen[k]; dup {
			return structural(p.Attribute, fmt.Errorf("%w: %s", ErrDuplicatePredicate, p.Kind))
		}
		seen[k] = struct{}{}

		if err := validateOperands(p, tmpl, schema); err != nil {
			return structural(p.Attribute, err)
		}
	}

	return nil
}

func validateOperands(p *PredicateSpec, tmpl AttributeTemplate, schema Schema) error {
	switch p.Kind {
	case PureReveal:
		if tmpl.Kind == Hidden {
			return ErrRevealHidden
		}
		if len(p.Operands) != 0 || p.EqualsAttribute != "" || p.Min != 0 || p.Max != 0 {
			return ErrUnexpectedOperands
		}
	case Range:
		if len(p.Operands) != 0 || p.EqualsAttribute != "" {
			return ErrUnexpectedOperands
		}
		if p.Min > p.Max {
			return fmt.Errorf("%w, got [%d, %d]", ErrInvalidRange, p.Min, p.Max)
		}
	case Membership:
		if p.EqualsAttribute != "" || p.Min != 0 || p.Max != 0 {
			return ErrUnexpectedOperands
		}
		if len(p.Operands) == 0 {
			return ErrEmptySet
		}
		members := make(map[string]struct{}, len(p.Operands))
		for _, v := range p.Operands {
			key := EncodeValue(v).String()
			if _, dup := members[key]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateMember, v)
			}
			members[key] = struct{}{}
		}
	case Equality:
		if p.Min != 0 || p.Max != 0 {
			return ErrUnexpectedOperands
		}
		hasConst, hasRef := len(p.Operands) == 1, p.EqualsAttribute != ""
		if hasConst == hasRef || len(p.Operands) > 1 {
			return ErrInvalidEquality
		}
		if hasRef {
			if p.EqualsAttribute == p.Attribute {
				return ErrSelfEquality
			}
			if _, ok := schema.Lookup(p.EqualsAttribute); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownAttribute, p.EqualsAttribute)
			}
		}
	}

	return nil
}
