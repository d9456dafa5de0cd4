package foldcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// MinSaltSize is the minimum salt length accepted by the KDFs below —
// salts must come from a cryptographic RNG.
const MinSaltSize = 16

// Argon2Preset names one of the three tuned (memory_kb, time, parallelism)
// profiles.
type Argon2Preset string

const (
	Argon2Low      Argon2Preset = "low"
	Argon2Standard Argon2Preset = "standard"
	Argon2High     Argon2Preset = "high"
)

type argon2Params struct {
	memoryKB    uint32
	time        uint32
	parallelism uint8
}

var argon2Presets = map[Argon2Preset]argon2Params{
	Argon2Low:      {memoryKB: 32768, time: 2, parallelism: 2},
	Argon2Standard: {memoryKB: 65536, time: 3, parallelism: 4},
	Argon2High:     {memoryKB: 131072, time: 4, parallelism: 8},
}

// DeriveArgon2ID derives a keyLen-byte key from password and salt using the
// named preset's Argon2id parameters.
func DeriveArgon2ID(preset Argon2Preset, password, salt []byte, keyLen uint32) (*SecretBytes, error) {
	params, ok := argon2Presets[preset]
	if !ok {
		return nil, folderrors.New(folderrors.KindInvalidInput, "unknown argon2id preset", "preset", string(preset))
	}
	if len(salt) < MinSaltSize {
		return nil, folderrors.New(folderrors.KindInvalidInput, "salt too short",
			"minimum", MinSaltSize, "actual", len(salt))
	}
	key := argon2.IDKey(password, salt, params.time, params.memoryKB, params.parallelism, keyLen)
	return NewSecretBytes(key), nil
}

// GenerateSalt returns a fresh n-byte salt from a cryptographic RNG,
// failing if n is below MinSaltSize.
func GenerateSalt(n int) ([]byte, error) {
	if n < MinSaltSize {
		return nil, folderrors.New(folderrors.KindInvalidInput, "salt too short", "minimum", MinSaltSize, "requested", n)
	}
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, folderrors.Wrap(folderrors.KindKeyDerivationFailed, "generate salt", err)
	}
	return salt, nil
}

// DeriveHKDFSHA256 derives a keyLen-byte sub-key from secret using
// HKDF-SHA-256 with the given salt and context info — used for deriving
// per-context encryption sub-keys from a master key.
func DeriveHKDFSHA256(secret, salt, info []byte, keyLen int) (*SecretBytes, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, folderrors.Wrap(folderrors.KindKeyDerivationFailed, "hkdf expand", err)
	}
	return NewSecretBytes(key), nil
}

// DerivePBKDF2SHA256 derives a keyLen-byte key via PBKDF2-SHA-256.
// Supported only for legacy migration paths; new keys should use Argon2id.
func DerivePBKDF2SHA256(password, salt []byte, iterations, keyLen int) (*SecretBytes, error) {
	if len(salt) < MinSaltSize {
		return nil, folderrors.New(folderrors.KindInvalidInput, "salt too short",
			"minimum", MinSaltSize, "actual", len(salt))
	}
	key := pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
	return NewSecretBytes(key), nil
}
