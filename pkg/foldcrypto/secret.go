package foldcrypto

// SecretBytes is a key-material container that can be explicitly zeroized.
// It does not rely on finalizers: callers must call Zeroize when the
// secret is no longer needed (typically in a defer right after derivation).
type SecretBytes struct {
	b []byte
}

// NewSecretBytes wraps b without copying it. Callers should not retain
// their own reference to b afterward.
func NewSecretBytes(b []byte) *SecretBytes {
	return &SecretBytes{b: b}
}

// Bytes returns the underlying slice. The returned slice aliases the
// container's storage and becomes invalid after Zeroize.
func (s *SecretBytes) Bytes() []byte {
	return s.b
}

// Zeroize overwrites the underlying storage with zeros.
func (s *SecretBytes) Zeroize() {
	for i := range s.b {
		s.b[i] = 0
	}
}
