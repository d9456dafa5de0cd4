package siggate

import (
	"crypto/ed25519"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// Gate verifies RFC-9421-style signed requests per Policy.
type Gate struct {
	policy   Policy
	keys     PublicKeyLookup
	nonces   *NonceStore
	limiter  *RateLimiter
	detector *AttackDetector
	now      func() time.Time

	verificationDuration prometheus.Histogram
	verificationsTotal   *prometheus.CounterVec
	nonceStoreSize       prometheus.Gauge
	rateLimitedTotal     prometheus.Counter
}

// Option configures a Gate.
type Option func(*Gate)

// WithRateLimiter attaches a per-signer admission limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(g *Gate) { g.limiter = rl }
}

// WithAttackDetector attaches a brute-force/replay counter layer.
func WithAttackDetector(d *AttackDetector) Option {
	return func(g *Gate) { g.detector = d }
}

// withClock overrides the time source; used by tests.
func withClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithVerificationMetrics wires the gate's verification latency/outcome,
// nonce store size, and rate-limited-request instruments. Typically the
// SigGateVerificationDuration/SigGateVerificationsTotal/
// SigGateNonceStoreSize/SigGateRateLimitedTotal instruments from an
// *observability.Metrics.
func WithVerificationMetrics(verificationDuration prometheus.Histogram, verificationsTotal *prometheus.CounterVec, nonceStoreSize prometheus.Gauge, rateLimitedTotal prometheus.Counter) Option {
	return func(g *Gate) {
		g.verificationDuration = verificationDuration
		g.verificationsTotal = verificationsTotal
		g.nonceStoreSize = nonceStoreSize
		g.rateLimitedTotal = rateLimitedTotal
	}
}

// NewGate builds a Gate over policy and a key lookup, with its own bounded
// nonce store.
func NewGate(policy Policy, keys PublicKeyLookup, opts ...Option) *Gate {
	g := &Gate{
		policy: policy,
		keys:   keys,
		nonces: NewNonceStore(policy.NonceTTL, policy.MaxNonceStoreSize),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsExempt reports whether path is in the policy's exempt set and thus
// should skip verification entirely.
func (g *Gate) IsExempt(path string) bool {
	_, ok := g.policy.ExemptPaths[path]
	return ok
}

// Verify runs the full verification algorithm over a parsed request given
// its raw Signature-Input and Signature header values.
func (g *Gate) Verify(req *ParsedRequest, signatureInputHeader, signatureHeader string) error {
	start := time.Now()
	err := g.verify(req, signatureInputHeader, signatureHeader)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if g.verificationDuration != nil {
		g.verificationDuration.Observe(time.Since(start).Seconds())
	}
	if g.verificationsTotal != nil {
		g.verificationsTotal.WithLabelValues(status).Inc()
	}
	if g.nonceStoreSize != nil {
		g.nonceStoreSize.Set(float64(g.nonces.Size()))
	}
	return err
}

func (g *Gate) verify(req *ParsedRequest, signatureInputHeader, signatureHeader string) error {
	if g.detector != nil {
		// keyid isn't known yet at this point for a malformed header, so the
		// detector is keyed off the raw Signature-Input value as a coarse
		// fallback until parsing succeeds.
		if g.detector.IsBlocked(signatureInputHeader) {
			return folderrors.New(folderrors.KindSignatureVerificationFailed, "signer is blocked by attack detector")
		}
	}

	label, params, err := parseSignatureInput(signatureInputHeader)
	if err != nil {
		return err
	}
	sigLabel, sig, err := parseSignature(signatureHeader)
	if err != nil {
		return err
	}
	if sigLabel != label {
		return folderrors.New(folderrors.KindInvalidSignatureConfig, "Signature-Input and Signature labels do not match")
	}

	if g.limiter != nil && !g.limiter.Allow(params.KeyID) {
		if g.rateLimitedTotal != nil {
			g.rateLimitedTotal.Inc()
		}
		return folderrors.New(folderrors.KindSignatureVerificationFailed, "rate limit exceeded", "keyid", params.KeyID)
	}
	if g.detector != nil && g.detector.IsBlocked(params.KeyID) {
		return folderrors.New(folderrors.KindSignatureVerificationFailed, "signer is blocked by attack detector", "keyid", params.KeyID)
	}

	if err := g.verifyTimestamp(params); err != nil {
		g.recordFailure(params.KeyID)
		return err
	}

	if err := g.verifyCoveredComponents(params); err != nil {
		return err
	}

	if err := verifyContentDigest(req); err != nil {
		g.recordFailure(params.KeyID)
		return err
	}

	publicKey, ok := g.keys.Lookup(params.KeyID)
	if !ok {
		return folderrors.New(folderrors.KindPublicKeyLookupFailed, "unknown keyid", "keyid", params.KeyID)
	}

	if err := g.checkNonce(params); err != nil {
		if g.detector != nil {
			g.detector.RecordNonceReuse(params.KeyID)
		}
		return err
	}

	signingInput, err := canonicalSigningInput(req, params)
	if err != nil {
		return err
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), []byte(signingInput), sig) {
		g.recordFailure(params.KeyID)
		return folderrors.New(folderrors.KindSignatureVerificationFailed, "signature verification failed", "keyid", params.KeyID)
	}

	return nil
}

func (g *Gate) recordFailure(keyID string) {
	if g.detector != nil {
		g.detector.RecordVerificationFailure(keyID)
	}
}

func (g *Gate) verifyTimestamp(params *SignatureParams) error {
	now := g.now().Unix()
	drift := now - params.Created
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(g.policy.AllowedTimeWindow.Seconds()) {
		return folderrors.New(folderrors.KindTimestampValidationFailed, "created timestamp outside allowed window",
			"created", params.Created, "now", now)
	}
	if params.Expires != 0 && params.Expires < now {
		return folderrors.New(folderrors.KindTimestampValidationFailed, "signature has expired", "expires", params.Expires, "now", now)
	}
	return nil
}

func (g *Gate) verifyCoveredComponents(params *SignatureParams) error {
	covered := make(map[string]struct{}, len(params.CoveredComponents))
	for _, c := range params.CoveredComponents {
		covered[c] = struct{}{}
	}
	for _, required := range g.policy.RequiredComponents {
		if _, ok := covered[required]; !ok {
			return folderrors.New(folderrors.KindInvalidSignatureConfig, "required component not covered by signature", "component", required)
		}
	}
	return nil
}

func (g *Gate) checkNonce(params *SignatureParams) error {
	if params.Nonce == "" {
		return folderrors.New(folderrors.KindNonceValidationFailed, "signature missing required nonce parameter")
	}
	return g.nonces.CheckAndInsert(params.Nonce, g.now())
}
