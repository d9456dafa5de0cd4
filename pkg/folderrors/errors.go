package folderrors

import "fmt"

// Kind classifies an Error into the taxonomy from the error-handling design.
type Kind string

const (
	// Storage
	KindAtomNotFound        Kind = "atom_not_found"
	KindAtomRefNotFound     Kind = "atom_ref_not_found"
	KindAtomRefTypeMismatch Kind = "atom_ref_type_mismatch"
	KindGhostUUIDDetected   Kind = "ghost_uuid_detected"
	KindDatabaseError       Kind = "database_error"
	KindSerializationError  Kind = "serialization_error"
	KindDeserializationError Kind = "deserialization_error"

	// Schema / field
	KindSchemaNotFound         Kind = "schema_not_found"
	KindSchemaValidationFailed Kind = "schema_validation_failed"
	KindFieldNotFound          Kind = "field_not_found"
	KindInvalidFieldOperation  Kind = "invalid_field_operation"
	KindFieldValidationFailed  Kind = "field_validation_failed"
	KindRangeSchemaError       Kind = "range_schema_error"

	// Concurrency
	KindLockError       Kind = "lock_error"
	KindConcurrencyError Kind = "concurrency_error"

	// Message bus
	KindRequestTimeout Kind = "request_timeout"
	KindBusShutdown    Kind = "bus_shutdown"

	// Transform
	KindTransformNotFound        Kind = "transform_not_found"
	KindTransformExecutionFailed Kind = "transform_execution_failed"

	// Permission
	KindPermissionDenied Kind = "permission_denied"

	// Signature gate
	KindTimestampValidationFailed Kind = "timestamp_validation_failed"
	KindNonceValidationFailed     Kind = "nonce_validation_failed"
	KindPublicKeyLookupFailed     Kind = "public_key_lookup_failed"
	KindSignatureVerificationFailed Kind = "signature_verification_failed"
	KindInvalidSignatureConfig    Kind = "invalid_signature_config"
	KindMissingAuthHeaders        Kind = "missing_auth_headers"

	// Crypto
	KindInvalidInput       Kind = "invalid_input"
	KindKeyDerivationFailed Kind = "key_derivation_failed"
	KindEncryptionFailed   Kind = "encryption_failed"
	KindDecryptionFailed   Kind = "decryption_failed"
	KindIntegrityCheckFailed Kind = "integrity_check_failed"
)

// Error is the structured error type used across every foldcore package.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, &Error{Kind: K}) to match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error with optional key/value context pairs (k1, v1, k2, v2, ...).
func New(kind Kind, message string, kvs ...any) *Error {
	e := &Error{Kind: kind, Message: message}
	if len(kvs) > 0 {
		e.Context = make(map[string]any, len(kvs)/2)
		for i := 0; i+1 < len(kvs); i += 2 {
			key, ok := kvs[i].(string)
			if !ok {
				continue
			}
			e.Context[key] = kvs[i+1]
		}
	}
	return e
}

// Wrap builds an Error with an underlying cause.
func Wrap(kind Kind, message string, cause error, kvs ...any) *Error {
	e := New(kind, message, kvs...)
	e.Cause = cause
	return e
}

// Of returns a sentinel used only for errors.Is comparison against a Kind.
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
