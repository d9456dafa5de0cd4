package transform

import (
	"encoding/json"
	"strings"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// Eval evaluates logic against inputs (keyed by the unqualified field name,
// e.g. "x" for input path "A.x") and returns the output field's new value.
// The embedded expression language is out of scope for this core; callers
// wire in whatever interpreter they need.
type Eval func(logic string, inputs map[string]json.RawMessage) (json.RawMessage, error)

// DefaultEval is a minimal arithmetic stand-in: it understands exactly one
// shape, "<name> <op> <name>" with op in {+, -, *, /} over two numeric
// inputs, and is meant for local testing rather than production use.
func DefaultEval(logic string, inputs map[string]json.RawMessage) (json.RawMessage, error) {
	for _, op := range []string{"+", "-", "*", "/"} {
		parts := strings.SplitN(logic, op, 2)
		if len(parts) != 2 {
			continue
		}
		lhsName, rhsName := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if !isIdentifier(lhsName) || !isIdentifier(rhsName) {
			continue
		}
		lhs, ok := inputs[lhsName]
		if !ok {
			continue
		}
		rhs, ok := inputs[rhsName]
		if !ok {
			continue
		}
		var a, b float64
		if err := json.Unmarshal(lhs, &a); err != nil {
			return nil, folderrors.Wrap(folderrors.KindTransformExecutionFailed, "non-numeric input", err, "input", lhsName)
		}
		if err := json.Unmarshal(rhs, &b); err != nil {
			return nil, folderrors.Wrap(folderrors.KindTransformExecutionFailed, "non-numeric input", err, "input", rhsName)
		}

		var result float64
		switch op {
		case "+":
			result = a + b
		case "-":
			result = a - b
		case "*":
			result = a * b
		case "/":
			if b == 0 {
				return nil, folderrors.New(folderrors.KindTransformExecutionFailed, "division by zero", "logic", logic)
			}
			result = a / b
		}
		return json.Marshal(result)
	}
	return nil, folderrors.New(folderrors.KindTransformExecutionFailed, "unsupported expression", "logic", logic)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}
