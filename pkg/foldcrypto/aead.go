package foldcrypto

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// KeySize is the ChaCha20-Poly1305 key length in bytes.
const KeySize = chacha20poly1305.KeySize

// NonceSize is the ChaCha20-Poly1305 nonce length in bytes.
const NonceSize = chacha20poly1305.NonceSize

// GenerateKey returns a fresh random AEAD key.
func GenerateKey() (*SecretBytes, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, folderrors.Wrap(folderrors.KindKeyDerivationFailed, "generate aead key", err)
	}
	return NewSecretBytes(key), nil
}

// Seal encrypts plaintext under key with additionalData bound in, using a
// freshly generated random nonce. The returned ciphertext is
// nonce || sealed, so Open can recover the nonce from its prefix.
func Seal(key, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindEncryptionFailed, "construct aead", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, folderrors.Wrap(folderrors.KindEncryptionFailed, "generate nonce", err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, additionalData)
	return append(nonce, sealed...), nil
}

// Open decrypts ciphertext produced by Seal: the first NonceSize bytes are
// the nonce, the remainder is the AEAD-sealed payload.
func Open(key, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindDecryptionFailed, "construct aead", err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, folderrors.New(folderrors.KindDecryptionFailed, "ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, additionalData)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindDecryptionFailed, "aead open", err)
	}
	return plaintext, nil
}
