// Package foldcrypto provides the signature, AEAD, and key-derivation
// primitives used across foldcore: Ed25519 signing, ChaCha20-Poly1305
// at-rest encryption, Argon2id/HKDF/PBKDF2 key derivation, and zeroizing
// key containers. It does not implement any protocol on top of these
// primitives — the signature gate and encryption wrapper packages do that.
package foldcrypto
