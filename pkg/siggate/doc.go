// Package siggate implements an RFC-9421-style HTTP message signature
// verification gate: canonical signing-input assembly, Signature-Input /
// Signature structured-field parsing, timestamp and nonce validation, a
// bounded nonce store, and an optional per-client rate limiter and
// attack-detector layered on top.
package siggate
