package cryptometa

import (
	"bytes"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/foldcrypto"
	"github.com/platinummonkey/foldcore/pkg/kv"
)

// envelopeMagic is the 6-byte marker prefixing every enveloped record.
var envelopeMagic = []byte("DF_ENC")

// envelopeVersion is the current envelope format version.
const envelopeVersion byte = 1

// EncryptedTree wraps a kv.Tree, transparently encrypting values on write
// and decrypting (or passing through, for legacy plain records) on read. A
// per-context sub-key is derived via HKDF from the master key and the tree's
// context string.
type EncryptedTree struct {
	tree    *kv.Tree
	context string
	subKey  []byte
}

// NewEncryptedTree derives a per-context sub-key from masterKey via
// HKDF-SHA-256 and wraps tree for enveloped reads/writes under that context
// (e.g. "atom_data", "schema_data").
func NewEncryptedTree(tree *kv.Tree, masterKey []byte, context string) (*EncryptedTree, error) {
	if len(context) > 255 {
		return nil, folderrors.New(folderrors.KindInvalidInput, "context string too long for 1-byte length prefix",
			"context", context)
	}
	sub, err := foldcrypto.DeriveHKDFSHA256(masterKey, nil, []byte(context), foldcrypto.KeySize)
	if err != nil {
		return nil, err
	}
	return &EncryptedTree{tree: tree, context: context, subKey: sub.Bytes()}, nil
}

// IsEnveloped reports whether data carries the DF_ENC envelope header.
func IsEnveloped(data []byte) bool {
	return len(data) >= len(envelopeMagic) && bytes.Equal(data[:len(envelopeMagic)], envelopeMagic)
}

func (t *EncryptedTree) wrap(plaintext []byte) ([]byte, error) {
	ciphertext, err := foldcrypto.Seal(t.subKey, plaintext, []byte(t.context))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(envelopeMagic)+1+1+len(t.context)+len(ciphertext))
	out = append(out, envelopeMagic...)
	out = append(out, envelopeVersion)
	out = append(out, byte(len(t.context)))
	out = append(out, t.context...)
	out = append(out, ciphertext...)
	return out, nil
}

func (t *EncryptedTree) unwrap(data []byte) ([]byte, error) {
	header := len(envelopeMagic) + 1 + 1
	if len(data) < header {
		return nil, folderrors.New(folderrors.KindDecryptionFailed, "enveloped record truncated")
	}
	ctxLen := int(data[len(envelopeMagic)+1])
	if len(data) < header+ctxLen {
		return nil, folderrors.New(folderrors.KindDecryptionFailed, "enveloped record truncated context")
	}
	context := string(data[header : header+ctxLen])
	ciphertext := data[header+ctxLen:]
	return foldcrypto.Open(t.subKey, ciphertext, []byte(context))
}

// Put encrypts value and stores it enveloped.
func (t *EncryptedTree) Put(key string, value []byte) error {
	wrapped, err := t.wrap(value)
	if err != nil {
		return err
	}
	return t.tree.Put(key, wrapped)
}

// Get loads key and transparently decrypts it if enveloped; plain (legacy,
// unenveloped) records are returned as-is.
func (t *EncryptedTree) Get(key string) ([]byte, error) {
	data, err := t.tree.Get(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if !IsEnveloped(data) {
		return data, nil
	}
	return t.unwrap(data)
}

// MigrateToEncrypted rewrites every plain record under this tree into
// enveloped form in a single pass, returning the count migrated.
func (t *EncryptedTree) MigrateToEncrypted() (int, error) {
	keys, err := t.tree.ListKeys()
	if err != nil {
		return 0, err
	}
	migrated := 0
	for _, key := range keys {
		data, err := t.tree.Get(key)
		if err != nil {
			return migrated, err
		}
		if data == nil || IsEnveloped(data) {
			continue
		}
		wrapped, err := t.wrap(data)
		if err != nil {
			return migrated, err
		}
		if err := t.tree.Put(key, wrapped); err != nil {
			return migrated, err
		}
		migrated++
	}
	return migrated, nil
}
