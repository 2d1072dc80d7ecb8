// Package errors provides typed errors for maus/mauz container operations.
// This enables callers to use errors.Is() and errors.As() for specific error handling.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds named in the container format's error
// handling design. Use errors.Is(err, errors.ErrIntegrityFailure) etc. to
// check for specific conditions.
var (
	// ErrInvalidFormat: wire bytes violate the format (magic, version, field
	// range, duplicate manifest index).
	ErrInvalidFormat = errors.New("invalid container format")

	// ErrUnsupportedFeature: a recognized-but-unsupported compression,
	// encryption, hash, or signature algorithm id.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrIntegrityFailure: HMAC or hash mismatch; also returned for a wrong
	// password or key. Retryable: caller may set a new key and retry decrypt.
	ErrIntegrityFailure = errors.New("integrity check failed")

	// ErrSignatureUnverified: a signature is present but failed to verify.
	// Non-fatal; callers decide whether to treat this as an error.
	ErrSignatureUnverified = errors.New("signature could not be verified")

	// ErrCapacityExceeded: option-list or option-value length overflow, or
	// too many archive entries.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidState: operation called in a state not permitted by the
	// codec's or framer's state machine.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrDuplicatePath: archive insertion conflict - a path was already used.
	ErrDuplicatePath = errors.New("duplicate entry path")

	// ErrCancelled: operation was cancelled by the caller.
	ErrCancelled = errors.New("operation cancelled")
)

// FormatError represents a wire-format decoding error with field context.
type FormatError struct {
	Field string // Field name that failed validation/decoding
	Err   error  // Underlying error (usually one of the sentinels above)
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("format %s invalid", e.Field)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError creates a new FormatError.
func NewFormatError(field string, err error) *FormatError {
	return &FormatError{Field: field, Err: err}
}

// CryptoError represents an error during a cryptographic operation.
type CryptoError struct {
	Op  string // Operation name: "derive", "hmac", "cipher", "sign", "verify"
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto %s failed", e.Op)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ManifestError represents an error in archive manifest parsing or validation.
type ManifestError struct {
	Index int64 // Entry ordinal, or -1 if not entry-specific
	Err   error
}

func (e *ManifestError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("manifest entry %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("manifest: %v", e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// NewManifestError creates a new ManifestError. Pass index -1 for
// manifest-level (not entry-specific) errors.
func NewManifestError(index int64, err error) *ManifestError {
	return &ManifestError{Index: index, Err: err}
}

// Is checks if target matches any error in err's chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsIntegrityFailure checks if the error indicates a hash/HMAC mismatch.
func IsIntegrityFailure(err error) bool {
	return errors.Is(err, ErrIntegrityFailure)
}

// IsInvalidFormat checks if the error indicates a malformed wire format.
func IsInvalidFormat(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

// IsCancelled checks if the error indicates a cancelled operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
