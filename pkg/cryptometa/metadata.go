package cryptometa

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/kv"
)

// SchemaVersion is the current CryptoMetadata schema version.
const SchemaVersion = 1

// MetadataKey is the well-known key the record is stored under in the
// metadata tree.
const MetadataKey = "crypto_metadata"

// Metadata is the single crypto-configuration record persisted in the
// metadata tree: master public key, algorithm names, and an integrity
// checksum over a deterministic serialization of every other field.
type Metadata struct {
	Version              int               `json:"version"`
	MasterPublicKey      []byte            `json:"master_public_key"`
	SignatureAlgorithm   string            `json:"signature_algorithm"`
	KeyDerivationMethod  string            `json:"key_derivation_method"`
	CreatedAt            time.Time         `json:"created_at"`
	AdditionalMetadata   map[string]string `json:"additional_metadata,omitempty"`
	Checksum             string            `json:"checksum"`
}

// New builds a Metadata record for masterPublicKey and computes its
// checksum.
func New(masterPublicKey []byte, keyDerivationMethod string) (*Metadata, error) {
	m := &Metadata{
		Version:             SchemaVersion,
		MasterPublicKey:     masterPublicKey,
		SignatureAlgorithm:  "Ed25519",
		KeyDerivationMethod: keyDerivationMethod,
		CreatedAt:           time.Now().UTC(),
		AdditionalMetadata:  map[string]string{},
	}
	checksum, err := m.computeChecksum()
	if err != nil {
		return nil, err
	}
	m.Checksum = checksum
	return m, nil
}

// computeChecksum hashes a deterministic serialization of every field
// except Checksum itself. Marshaling a Go map[string]any already sorts its
// keys, which gives the "object keys sorted" canonical form the integrity
// check needs without a separate canonicalization pass.
func (m *Metadata) computeChecksum() (string, error) {
	canonical := map[string]any{
		"version":               m.Version,
		"master_public_key":     m.MasterPublicKey,
		"signature_algorithm":   m.SignatureAlgorithm,
		"key_derivation_method": m.KeyDerivationMethod,
		"created_at":            m.CreatedAt,
		"additional_metadata":   m.AdditionalMetadata,
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", folderrors.Wrap(folderrors.KindSerializationError, "marshal crypto metadata for checksum", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyIntegrity recomputes the checksum and compares it against the
// stored one.
func (m *Metadata) VerifyIntegrity() (bool, error) {
	computed, err := m.computeChecksum()
	if err != nil {
		return false, err
	}
	return computed == m.Checksum, nil
}

// AddMetadata sets one additional_metadata entry and recomputes the
// checksum.
func (m *Metadata) AddMetadata(key, value string) error {
	if m.AdditionalMetadata == nil {
		m.AdditionalMetadata = map[string]string{}
	}
	m.AdditionalMetadata[key] = value
	checksum, err := m.computeChecksum()
	if err != nil {
		return err
	}
	m.Checksum = checksum
	return nil
}

// Store persists crypto metadata in engine's metadata tree.
type Store struct {
	engine *kv.Engine
}

// NewStore wraps an Engine with crypto-metadata persistence.
func NewStore(engine *kv.Engine) *Store {
	return &Store{engine: engine}
}

func (s *Store) tree() *kv.Tree { return s.engine.Tree(kv.TreeMetadata) }

// Save verifies m's integrity and persists it.
func (s *Store) Save(m *Metadata) error {
	ok, err := m.VerifyIntegrity()
	if err != nil {
		return err
	}
	if !ok {
		return folderrors.New(folderrors.KindIntegrityCheckFailed, "crypto metadata integrity check failed before store")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return folderrors.Wrap(folderrors.KindSerializationError, "marshal crypto metadata", err)
	}
	return s.tree().Put(MetadataKey, data)
}

// Load reads the crypto metadata record, verifying its integrity. Returns
// (nil, nil) if no record has been stored yet.
func (s *Store) Load() (*Metadata, error) {
	data, err := s.tree().Get(MetadataKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, folderrors.Wrap(folderrors.KindDeserializationError, "decode crypto metadata", err)
	}
	ok, err := m.VerifyIntegrity()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, folderrors.New(folderrors.KindIntegrityCheckFailed, "crypto metadata checksum mismatch on load")
	}
	return &m, nil
}
