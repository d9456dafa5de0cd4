package siggate

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// ComputeContentDigest returns the `content-digest` header value for body,
// in the `sha-256=:base64:` structured-field form.
func ComputeContentDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("sha-256=:%s:", base64.StdEncoding.EncodeToString(sum[:]))
}

// verifyContentDigest recomputes the digest over req.Body and compares it
// against the declared content-digest header value.
func verifyContentDigest(req *ParsedRequest) error {
	declared, ok := req.Headers["content-digest"]
	if !ok {
		return nil
	}
	expected := strings.TrimPrefix(declared, "sha-256=")
	got := strings.TrimPrefix(ComputeContentDigest(req.Body), "sha-256=")
	if expected != got {
		return folderrors.New(folderrors.KindSignatureVerificationFailed, "content-digest mismatch")
	}
	return nil
}
