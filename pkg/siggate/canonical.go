package siggate

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// componentValue resolves one covered component name to its value: derived
// components have fixed meanings, everything else is looked up in the
// request's (lower-cased) headers.
func componentValue(req *ParsedRequest, name string) (string, error) {
	switch name {
	case ComponentMethod:
		return strings.ToUpper(req.Method), nil
	case ComponentTargetURI:
		return req.TargetURI, nil
	case ComponentAuthority:
		return req.Authority, nil
	case ComponentScheme:
		return req.Scheme, nil
	case ComponentPath:
		return req.Path, nil
	case ComponentQuery:
		return req.Query, nil
	default:
		v, ok := req.Headers[strings.ToLower(name)]
		if !ok {
			return "", folderrors.New(folderrors.KindInvalidSignatureConfig,
				"covered component not present on request", "component", name)
		}
		return v, nil
	}
}

// canonicalSigningInput builds the exact message that was signed: one
// `"name": value` line per covered component in declared order, followed by
// a final `"@signature-params": <raw Signature-Input value>` line, joined by
// a single "\n".
func canonicalSigningInput(req *ParsedRequest, params *SignatureParams) (string, error) {
	lines := make([]string, 0, len(params.CoveredComponents)+1)
	for _, name := range params.CoveredComponents {
		value, err := componentValue(req, name)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%q: %s", name, value))
	}
	lines = append(lines, fmt.Sprintf("%q: %s", ComponentSignatureParams, params.raw))
	return strings.Join(lines, "\n"), nil
}
