package siggate

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// parseSignatureInput parses one labeled Signature-Input dictionary member,
// e.g. `sig1=("@method" "@target-uri" "content-digest");keyid="k1";alg="ed25519";created=1700000000`.
// Only the single-signature case is supported; the label is returned so
// callers can match it against the corresponding Signature member.
func parseSignatureInput(headerValue string) (label string, params *SignatureParams, err error) {
	value := strings.TrimSpace(headerValue)
	eq := strings.Index(value, "=")
	if eq < 0 {
		return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "malformed Signature-Input: no label")
	}
	label = strings.TrimSpace(value[:eq])
	rest := strings.TrimSpace(value[eq+1:])

	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open < 0 || closeIdx < open {
		return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "malformed Signature-Input: missing component list")
	}

	components, err := parseQuotedList(rest[open+1 : closeIdx])
	if err != nil {
		return "", nil, err
	}

	p := &SignatureParams{CoveredComponents: components, raw: rest}

	paramsStr := strings.TrimSpace(rest[closeIdx+1:])
	for _, field := range splitParams(paramsStr) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "malformed Signature-Input parameter", "field", field)
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		switch key {
		case "keyid":
			p.KeyID = val
		case "alg":
			p.Algorithm = val
		case "nonce":
			p.Nonce = val
		case "created":
			n, convErr := strconv.ParseInt(val, 10, 64)
			if convErr != nil {
				return "", nil, folderrors.Wrap(folderrors.KindInvalidSignatureConfig, "parse created parameter", convErr)
			}
			p.Created = n
		case "expires":
			n, convErr := strconv.ParseInt(val, 10, 64)
			if convErr != nil {
				return "", nil, folderrors.Wrap(folderrors.KindInvalidSignatureConfig, "parse expires parameter", convErr)
			}
			p.Expires = n
		}
	}

	if p.KeyID == "" || p.Algorithm == "" || p.Created == 0 {
		return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "Signature-Input missing required parameter (keyid, alg, created)")
	}

	if p.Algorithm != supportedAlgorithm {
		return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "unsupported signature algorithm", "alg", p.Algorithm)
	}

	return label, p, nil
}

// supportedAlgorithm is the only `alg` value this gate accepts; every signer
// in this system holds an Ed25519 key (pkg/foldcrypto.SigningKey).
const supportedAlgorithm = "ed25519"

// parseSignature parses the Signature header's `label=:base64:` member and
// returns the matching label plus the decoded signature bytes.
func parseSignature(headerValue string) (label string, sig []byte, err error) {
	value := strings.TrimSpace(headerValue)
	eq := strings.Index(value, "=")
	if eq < 0 {
		return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "malformed Signature header: no label")
	}
	label = strings.TrimSpace(value[:eq])
	rest := strings.TrimSpace(value[eq+1:])
	if !strings.HasPrefix(rest, ":") || !strings.HasSuffix(rest, ":") || len(rest) < 2 {
		return "", nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "malformed Signature header: expected byte-sequence")
	}
	decoded, decErr := base64.StdEncoding.DecodeString(rest[1 : len(rest)-1])
	if decErr != nil {
		return "", nil, folderrors.Wrap(folderrors.KindInvalidSignatureConfig, "decode signature bytes", decErr)
	}
	return label, decoded, nil
}

func parseQuotedList(s string) ([]string, error) {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ' ' && !inQuotes:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	if inQuotes {
		return nil, folderrors.New(folderrors.KindInvalidSignatureConfig, "malformed component list: unterminated quote")
	}
	return out, nil
}

// splitParams splits a `;key=val;key2=val2` parameter tail on top-level
// semicolons, respecting quoted strings.
func splitParams(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ';' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
