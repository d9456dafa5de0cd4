package siggate

import "time"

// Component names the pack wants covered in every verified request.
const (
	ComponentMethod       = "@method"
	ComponentTargetURI    = "@target-uri"
	ComponentAuthority    = "@authority"
	ComponentScheme       = "@scheme"
	ComponentPath         = "@path"
	ComponentQuery        = "@query"
	ComponentSignatureParams = "@signature-params"
)

// SignatureParams holds the parsed parameter set from a Signature-Input
// entry's parameter list: keyid, alg, created, optional expires/nonce.
type SignatureParams struct {
	CoveredComponents []string
	KeyID             string
	Algorithm         string
	Created           int64
	Expires           int64 // 0 means absent
	Nonce             string
	raw               string // the original Signature-Input value, reused verbatim in the signature-params line
}

// ParsedRequest is the subset of an incoming request the gate needs:
// derived components plus whatever headers are covered.
type ParsedRequest struct {
	Method    string
	TargetURI string
	Authority string
	Scheme    string
	Path      string
	Query     string
	Headers   map[string]string // lower-cased header name -> value
	Body      []byte
}

// Policy configures what the gate requires and tolerates.
type Policy struct {
	RequiredComponents   []string
	AllowedTimeWindow    time.Duration
	NonceTTL             time.Duration
	MaxNonceStoreSize    int
	ExemptPaths          map[string]struct{}
}

// DefaultPolicy matches the "strict profile" example from the protocol
// description: method, target-uri, content-type and content-digest must be
// covered, signatures are valid for five minutes and nonces remembered for
// ten.
func DefaultPolicy() Policy {
	return Policy{
		RequiredComponents: []string{ComponentMethod, ComponentTargetURI, "content-type", "content-digest"},
		AllowedTimeWindow:  5 * time.Minute,
		NonceTTL:           10 * time.Minute,
		MaxNonceStoreSize:  100_000,
		ExemptPaths:        map[string]struct{}{},
	}
}

// PublicKeyLookup resolves a keyid to its verification key.
type PublicKeyLookup interface {
	Lookup(keyID string) (publicKey []byte, ok bool)
}
