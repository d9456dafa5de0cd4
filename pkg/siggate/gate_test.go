package siggate

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

type mapKeyLookup map[string]ed25519.PublicKey

func (m mapKeyLookup) Lookup(keyID string) ([]byte, bool) {
	k, ok := m[keyID]
	return k, ok
}

func signRequest(t *testing.T, priv ed25519.PrivateKey, req *ParsedRequest, keyID string, created int64, nonce string) (string, string) {
	t.Helper()
	components := []string{ComponentMethod, ComponentTargetURI, "content-type", "content-digest"}
	sigInputValue := fmt.Sprintf(`sig1=("@method" "@target-uri" "content-type" "content-digest");keyid=%q;alg="ed25519";created=%d;nonce=%q`,
		keyID, created, nonce)

	_, params, err := parseSignatureInput(sigInputValue)
	require.NoError(t, err)
	require.Equal(t, components, params.CoveredComponents)

	signingInput, err := canonicalSigningInput(req, params)
	require.NoError(t, err)

	sig := ed25519.Sign(priv, []byte(signingInput))
	sigHeader := fmt.Sprintf("sig1=:%s:", base64.StdEncoding.EncodeToString(sig))
	return sigInputValue, sigHeader
}

func newTestRequest(body []byte) *ParsedRequest {
	digest := ComputeContentDigest(body)
	return &ParsedRequest{
		Method:    "post",
		TargetURI: "https://example.com/api/mutate",
		Authority: "example.com",
		Scheme:    "https",
		Path:      "/api/mutate",
		Headers: map[string]string{
			"content-type":   "application/json",
			"content-digest": digest,
		},
		Body: body,
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInput, sig := signRequest(t, priv, req, "k1", now, "nonce-1")

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub})
	require.NoError(t, gate.Verify(req, sigInput, sig))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInput, sig := signRequest(t, priv, req, "k1", now, "nonce-2")

	req.Body = []byte(`{"x":2}`)

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub})
	err = gate.Verify(req, sigInput, sig)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindSignatureVerificationFailed, kind)
}

func TestVerifyRejectsExpiredTimestamp(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	stale := time.Now().Add(-1 * time.Hour).Unix()
	sigInput, sig := signRequest(t, priv, req, "k1", stale, "nonce-3")

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub})
	err = gate.Verify(req, sigInput, sig)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindTimestampValidationFailed, kind)
}

func TestVerifyRejectsReplayedNonce(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInput, sig := signRequest(t, priv, req, "k1", now, "nonce-4")

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub})
	require.NoError(t, gate.Verify(req, sigInput, sig))

	err = gate.Verify(req, sigInput, sig)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindNonceValidationFailed, kind)
}

func TestVerifyRejectsUnknownKeyID(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInput, sig := signRequest(t, priv, req, "unknown-key", now, "nonce-5")

	gate := NewGate(DefaultPolicy(), mapKeyLookup{})
	err = gate.Verify(req, sigInput, sig)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindPublicKeyLookupFailed, kind)
}

func TestVerifyRejectsMissingRequiredComponent(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInputValue := fmt.Sprintf(`sig1=("@method" "content-digest");keyid="k1";alg="ed25519";created=%d;nonce="nonce-6"`, now)
	_, params, err := parseSignatureInput(sigInputValue)
	require.NoError(t, err)
	signingInput, err := canonicalSigningInput(req, params)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, []byte(signingInput))
	sigHeader := fmt.Sprintf("sig1=:%s:", base64.StdEncoding.EncodeToString(sig))

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub})
	err = gate.Verify(req, sigInputValue, sigHeader)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindInvalidSignatureConfig, kind)
}

func TestVerifyRejectsUnknownAlgorithm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInputValue := fmt.Sprintf(`sig1=("@method" "@target-uri" "content-type" "content-digest");keyid="k1";alg="hmac-sha256";created=%d;nonce="nonce-alg"`, now)
	sig := ed25519.Sign(priv, []byte("irrelevant, parseSignatureInput rejects before the digest is checked"))
	sigHeader := fmt.Sprintf("sig1=:%s:", base64.StdEncoding.EncodeToString(sig))

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub})
	err = gate.Verify(req, sigInputValue, sigHeader)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindInvalidSignatureConfig, kind)
}

func TestIsExemptMatchesConfiguredPaths(t *testing.T) {
	policy := DefaultPolicy()
	policy.ExemptPaths["/health"] = struct{}{}
	gate := NewGate(policy, mapKeyLookup{})
	require.True(t, gate.IsExempt("/health"))
	require.False(t, gate.IsExempt("/api/mutate"))
}

func TestRateLimiterBlocksOverThreshold(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub},
		WithRateLimiter(NewRateLimiter(LimiterConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, BurstSize: 0})))

	now := time.Now().Unix()
	sigInput1, sig1 := signRequest(t, priv, req, "k1", now, "nonce-7")
	require.NoError(t, gate.Verify(req, sigInput1, sig1))

	sigInput2, sig2 := signRequest(t, priv, req, "k1", now, "nonce-8")
	err = gate.Verify(req, sigInput2, sig2)
	require.Error(t, err)
}

func TestVerifyUsesInjectedClockForTimestampWindow(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	req := newTestRequest([]byte(`{"x":1}`))
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Unix()
	sigInput, sig := signRequest(t, priv, req, "k1", created, "nonce-clock")

	fixedNow := time.Date(2026, 1, 1, 12, 4, 0, 0, time.UTC) // 4 minutes later, within the 5-minute window
	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub}, withClock(func() time.Time { return fixedNow }))
	require.NoError(t, gate.Verify(req, sigInput, sig))
}

func TestWithVerificationMetricsRecordsOutcomesAndNonceStoreSize(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_siggate_duration"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_siggate_verifications_total"}, []string{"status"})
	nonceStoreSize := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_siggate_nonce_store_size"})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_siggate_rate_limited_total"})

	gate := NewGate(DefaultPolicy(), mapKeyLookup{"k1": pub},
		WithVerificationMetrics(duration, verifications, nonceStoreSize, rateLimited))

	req := newTestRequest([]byte(`{"x":1}`))
	now := time.Now().Unix()
	sigInput, sig := signRequest(t, priv, req, "k1", now, "nonce-metrics-1")
	require.NoError(t, gate.Verify(req, sigInput, sig))

	sigInput2, sig2 := signRequest(t, priv, req, "unknown", now, "nonce-metrics-2")
	err = gate.Verify(req, sigInput2, sig2)
	require.Error(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(verifications.WithLabelValues("success")))
	require.Equal(t, float64(1), testutil.ToFloat64(verifications.WithLabelValues("failure")))
	require.Equal(t, float64(1), testutil.ToFloat64(nonceStoreSize))
	require.Equal(t, float64(0), testutil.ToFloat64(rateLimited))
}

func TestAttackDetectorBlocksAfterRepeatedFailures(t *testing.T) {
	detector := NewAttackDetector(2, 2)
	detector.RecordVerificationFailure("k1")
	require.False(t, detector.IsBlocked("k1"))
	detector.RecordVerificationFailure("k1")
	require.True(t, detector.IsBlocked("k1"))
}
