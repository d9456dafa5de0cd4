// Package transform defines the Transform record — a declared computation
// over named input fields producing one output field — and the pluggable
// eval(logic, inputs) -> value function contract the orchestrator drives.
// The expression language itself is out of scope: Eval is an interface any
// embedded interpreter can satisfy; DefaultEval is a minimal arithmetic
// stand-in used for local testing.
package transform
