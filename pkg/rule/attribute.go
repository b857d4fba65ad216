package rule

import (
	"crypto/sha256"
	"math/big"
	"strconv"

	bn "github.com/cloudflare/bn256"
)

// AttributeKind tells whether a schema attribute may ever be disclosed.
type AttributeKind uint32

const (
	Revealed AttributeKind = iota
	Hidden
)

func (k AttributeKind) String() string {
	switch k {
	case Revealed:
		return "revealed"
	case Hidden:
		return "hidden"
	default:
		return "unknown(" + strconv.FormatUint(uint64(k), 10) + ")"
	}
}

// AttributeTemplate 是凭证模式中的一个属性
type AttributeTemplate struct {
	Name string
	Kind AttributeKind
}

// Schema is the ordered attribute list of a credential type. The position of
// an attribute is its index in the issuer's signature generators.
type Schema []AttributeTemplate

// Index returns the position of name in the schema.
func (s Schema) Index(name string) (int, bool) {
	for i, a := range s {
		if a.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the template called name.
func (s Schema) Lookup(name string) (AttributeTemplate, bool) {
	if i, ok := s.Index(name); ok {
		return s[i], true
	}
	return AttributeTemplate{}, false
}

const valueHashLabel = "sdverify/attr"

// NumericValue parses v as a canonical unsigned decimal integer.
func NumericValue(v string) (uint64, bool) {
	if v == "" || (len(v) > 1 && v[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// EncodeValue maps an attribute value to the scalar that is signed and
// committed. Canonical numbers map to themselves so that range predicates can
// be proven over them, any other string is hashed into the scalar field.
func EncodeValue(v string) *big.Int {
	if n, ok := NumericValue(v); ok {
		return new(big.Int).SetUint64(n)
	}

	h := sha256.New()
	h.Write([]byte(valueHashLabel))
	h.Write([]byte(v))
	k := new(big.Int).SetBytes(h.Sum(nil))
	return k.Mod(k, bn.Order)
}
