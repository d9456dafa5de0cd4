package foldcrypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// SigningKey is an Ed25519 keypair. The private half is held in a
// zeroizing container; call Zeroize once the key is no longer needed.
type SigningKey struct {
	Public  ed25519.PublicKey
	private *SecretBytes
}

// GenerateSigningKey creates a fresh Ed25519 keypair from a cryptographic
// RNG.
func GenerateSigningKey() (*SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindKeyDerivationFailed, "generate ed25519 key", err)
	}
	return &SigningKey{Public: pub, private: NewSecretBytes(priv)}, nil
}

// SigningKeyFromSeed reconstructs a SigningKey from a 32-byte Ed25519 seed.
func SigningKeyFromSeed(seed []byte) (*SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, folderrors.New(folderrors.KindInvalidInput, "invalid ed25519 seed length",
			"expected", ed25519.SeedSize, "actual", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &SigningKey{Public: pub, private: NewSecretBytes(priv)}, nil
}

// Sign signs message with the private key.
func (k *SigningKey) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(k.private.Bytes()), message)
}

// Zeroize wipes the private key material.
func (k *SigningKey) Zeroize() {
	k.private.Zeroize()
}

// Verify checks sig over message under publicKey. publicKey must be a
// 32-byte Ed25519 public key and sig a 64-byte signature.
func Verify(publicKey ed25519.PublicKey, message, sig []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, sig)
}
