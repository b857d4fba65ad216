package issuer

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrUnknownIssuer   = errors.New("unknown issuer key")
	ErrDuplicateIssuer = errors.New("issuer key registered twice")
)

// Registry is the immutable set of issuer parameters a verifier trusts, keyed by ID.
// It is loaded once at start-up and safe for concurrent lookups.
type Registry struct {
	params map[string]*PublicParams
}

// NewRegistry builds a registry from already-authenticated parameters.
func NewRegistry(params ...*PublicParams) (*Registry, error) {
	r := &Registry{params: make(map[string]*PublicParams, len(params))}
	for _, pp := range params {
		k := string(pp.ID())
		if _, dup := r.params[k]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIssuer, hex.EncodeToString(pp.ID()))
		}
		r.params[k] = pp
	}

	return r, nil
}

// Lookup returns the parameters identified by id. A nil registry trusts no issuer.
func (r *Registry) Lookup(id []byte) (*PublicParams, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIssuer, hex.EncodeToString(id))
	}
	pp, ok := r.params[string(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIssuer, hex.EncodeToString(id))
	}
	return pp, nil
}

// Len returns the number of registered issuer keys.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.params)
}
