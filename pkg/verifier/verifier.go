// Package verifier decides whether a verification request satisfies a
// verification rule. It resolves the issuer parameters named by the rule,
// decodes the request, checks that the request covers the rule and runs the
// predicate and signature proofs. Every outcome is reported as a structured
// Outcome; adversarial input never panics.
package verifier

//go:generate mockgen -source=verifier.go -destination=mocks/mocks.go -package=mocks

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/TomCN0803/sdverify/pkg/predicate"
	"github.com/TomCN0803/sdverify/pkg/request"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/sigproof"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrNilRule              = errors.New("nil verification rule")
	ErrUncoveredAttribute   = errors.New("predicated attribute is neither revealed nor committed")
	ErrRevealedAndCommitted = errors.New("attribute is both revealed and committed")
	ErrNonceMismatch        = errors.New("request is not bound to the rule nonce")
)

// FailureClass 验证失败的类别
type FailureClass int

const (
	ClassNone FailureClass = iota
	ClassStructural
	ClassDecode
	ClassCryptographic
)

func (c FailureClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassStructural:
		return "structural"
	case ClassDecode:
		return "decode"
	case ClassCryptographic:
		return "cryptographic"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Outcome is the result of one verification. Err carries the underlying
// errors of a failure for errors.Is and errors.As; Diagnostic is its text.
type Outcome struct {
	Passed     bool
	Class      FailureClass
	Diagnostic string
	Err        error
}

func passed() *Outcome {
	return &Outcome{Passed: true, Class: ClassNone}
}

func failed(class FailureClass, err error) *Outcome {
	return &Outcome{Class: class, Diagnostic: err.Error(), Err: err}
}

// ProofSystem is the set of cryptographic capabilities the verifier relies on.
type ProofSystem interface {
	// CheckCommitments checks every commitment of req is a well-formed group element.
	CheckCommitments(req *request.VerificationRequest) error
	// VerifySignatureProof checks the proof of knowledge of the issuer's signature.
	VerifySignatureProof(req *request.VerificationRequest, pp *issuer.PublicParams) error
	// VerifyPredicate checks a single predicate of the rule.
	VerifyPredicate(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) error
}

// BN256 is the ProofSystem over the BN256 pairing groups.
type BN256 struct{}

func (BN256) CheckCommitments(req *request.VerificationRequest) error {
	return sigproof.CheckCommitments(req)
}

func (BN256) VerifySignatureProof(req *request.VerificationRequest, pp *issuer.PublicParams) error {
	return sigproof.Verify(req, pp)
}

func (BN256) VerifyPredicate(spec *rule.PredicateSpec, req *request.VerificationRequest, pp *issuer.PublicParams) error {
	return predicate.Verify(spec, req, pp)
}

// Verifier 验证方。创建后只读，可被多个goroutine并发使用
type Verifier struct {
	registry *issuer.Registry
	ps       ProofSystem
	logger   *zap.Logger
	metrics  *Metrics
	workers  int
}

// New returns a verifier that trusts the issuer parameters in registry.
func New(registry *issuer.Registry, opts ...Option) *Verifier {
	v := &Verifier{
		registry: registry,
		ps:       BN256{},
		logger:   zap.NewNop(),
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyProof decides whether the encoded request raw satisfies vr.
// vr is snapshotted on entry and never modified.
func (v *Verifier) VerifyProof(vr *rule.VerificationRule, raw []byte) *Outcome {
	start := time.Now()
	out := v.verifyProof(vr, raw)
	v.metrics.observeOutcome(out, time.Since(start))
	if !out.Passed {
		v.logger.Debug("verification failed",
			zap.Stringer("class", out.Class),
			zap.Error(out.Err),
		)
	}
	return out
}

func (v *Verifier) verifyProof(vr *rule.VerificationRule, raw []byte) *Outcome {
	if vr == nil {
		return failed(ClassStructural, ErrNilRule)
	}
	snap, err := vr.Clone()
	if err != nil {
		return failed(ClassStructural, err)
	}

	if len(snap.IssuerKeyID) == 0 {
		return failed(ClassStructural, &rule.StructuralError{Err: rule.ErrMissingIssuer})
	}
	pp, err := v.registry.Lookup(snap.IssuerKeyID)
	if err != nil {
		return failed(ClassStructural, err)
	}
	if err := rule.Validate(snap, pp.Schema); err != nil {
		return failed(ClassStructural, err)
	}

	req, err := request.Decode(raw)
	if err != nil {
		return failed(ClassDecode, err)
	}
	if err := checkCoverage(snap, pp, req); err != nil {
		return failed(ClassStructural, err)
	}
	if err := v.ps.CheckCommitments(req); err != nil {
		return failed(ClassCryptographic, err)
	}

	checks := make([]check, 0, len(snap.Predicates)+2)
	checks = append(checks,
		func() error { return checkNonce(snap, req) },
		func() error { return v.ps.VerifySignatureProof(req, pp) },
	)
	for i := range snap.Predicates {
		spec := &snap.Predicates[i]
		checks = append(checks, func() error {
			err := v.ps.VerifyPredicate(spec, req, pp)
			v.metrics.observePredicate(spec.Kind, err)
			return err
		})
	}

	cr := newCheckRunner(v.workers, len(checks))
	cr.run()
	for i, c := range checks {
		cr.enqueue(c, i)
	}
	if err := multierr.Combine(cr.result()...); err != nil {
		return failed(ClassCryptographic, err)
	}

	return passed()
}

// checkCoverage 检查请求在结构上覆盖了验证规则
//   - 公开或承诺的属性都在凭证模式中，且不同时公开与承诺
//   - 模式中标记为Hidden的属性没有被公开
//   - 规则引用的每个属性要么公开，要么有承诺
func checkCoverage(vr *rule.VerificationRule, pp *issuer.PublicParams, req *request.VerificationRequest) error {
	for _, name := range req.RevealedNames() {
		tmpl, ok := pp.Schema.Lookup(name)
		if !ok {
			return &rule.StructuralError{Attribute: name, Err: rule.ErrUnknownAttribute}
		}
		if tmpl.Kind == rule.Hidden {
			return &rule.StructuralError{Attribute: name, Err: rule.ErrRevealHidden}
		}
		if _, ok := req.Commitment(name); ok {
			return &rule.StructuralError{Attribute: name, Err: ErrRevealedAndCommitted}
		}
	}
	for _, name := range req.CommittedNames() {
		if _, ok := pp.Schema.Index(name); !ok {
			return &rule.StructuralError{Attribute: name, Err: rule.ErrUnknownAttribute}
		}
	}
	for _, name := range vr.Attributes() {
		_, revealed := req.Revealed(name)
		_, committed := req.Commitment(name)
		if !revealed && !committed {
			return &rule.StructuralError{Attribute: name, Err: ErrUncoveredAttribute}
		}
	}

	return nil
}

func checkNonce(vr *rule.VerificationRule, req *request.VerificationRequest) error {
	if len(vr.Nonce) == 0 {
		return nil
	}
	if subtle.ConstantTimeCompare(vr.Nonce, req.Nonce) != 1 {
		return ErrNonceMismatch
	}
	return nil
}

// GetRevealedAttrsFromVerificationRequest decodes raw and returns a copy of its
// revealed attributes. No proof is checked: the values are only as trustworthy
// as a successful VerifyProof on the same request.
func (v *Verifier) GetRevealedAttrsFromVerificationRequest(raw []byte) (map[string]string, error) {
	req, err := request.Decode(raw)
	if err != nil {
		v.logger.Debug("failed to decode verification request", zap.Error(err))
		return nil, err
	}
	return req.RevealedCopy(), nil
}
