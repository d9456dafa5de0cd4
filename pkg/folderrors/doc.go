// Package folderrors defines the typed error taxonomy shared by every
// foldcore component.
//
// # Overview
//
// Errors carry a Kind and structured context (never key material) so callers
// can branch on failure class with errors.As instead of string matching.
// Every Error wraps an optional underlying cause with fmt.Errorf("%w", ...)
// semantics via Unwrap.
package folderrors
