package verifier

import "go.uber.org/zap"

type Option func(*Verifier)

// WithLogger sets the logger failed verifications are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// WithWorkers bounds the number of checks of one verification that run concurrently.
// A value of 1 or less runs them sequentially.
func WithWorkers(n int) Option {
	return func(v *Verifier) {
		v.workers = n
	}
}

// WithProofSystem replaces the cryptographic engines.
func WithProofSystem(ps ProofSystem) Option {
	return func(v *Verifier) {
		if ps != nil {
			v.ps = ps
		}
	}
}
