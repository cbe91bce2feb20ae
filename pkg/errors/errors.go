// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the typed failures raised by the trust engine.
//
// Cryptographic and protocol-validation failures are returned as *Error so
// the HTTP layer can map them onto OAuth2 error responses. Predicates use
// errors.As, so an *Error wrapped with fmt.Errorf("...: %w") still matches.
package errors

import (
	"errors"
	"fmt"
)

// Error types
const (
	// ErrClientNotFound is returned when a client_id does not resolve to a registered client
	ErrClientNotFound = "client_not_found"

	// ErrInvalidSignature is returned when a JWS does not verify or no validator can be resolved
	ErrInvalidSignature = "invalid_signature"

	// ErrAlgorithmMismatch is returned when a JWT algorithm differs from the one registered by the client
	ErrAlgorithmMismatch = "algorithm_mismatch"

	// ErrDecryptionFailure is returned when a JWE cannot be decrypted
	ErrDecryptionFailure = "decryption_failure"

	// ErrNoDefaultKey is returned when several keys are available and none is selected
	ErrNoDefaultKey = "no_default_key"

	// ErrMissingKeyMaterial is returned when an operation needs key material that is absent
	ErrMissingKeyMaterial = "missing_key_material"

	// ErrInvalidScope is returned when requested scopes exceed the approved ones
	ErrInvalidScope = "invalid_scope"

	// ErrAuthorizationPending is returned while a device code awaits user approval
	ErrAuthorizationPending = "authorization_pending"

	// ErrDeviceCodeExpired is returned when a device code is past its expiration
	ErrDeviceCodeExpired = "device_code_expired"

	// ErrInvalidGrant is returned when a grant cannot be exchanged for a token
	ErrInvalidGrant = "invalid_grant"
)

// Error is a typed trust engine failure.
type Error struct {
	// Type is one of the Err* constants
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewClientNotFoundError creates a new client not found error
func NewClientNotFoundError(message string, cause error) *Error {
	return NewError(ErrClientNotFound, message, cause)
}

// NewInvalidSignatureError creates a new invalid signature error
func NewInvalidSignatureError(message string, cause error) *Error {
	return NewError(ErrInvalidSignature, message, cause)
}

// NewAlgorithmMismatchError creates a new algorithm mismatch error
func NewAlgorithmMismatchError(message string, cause error) *Error {
	return NewError(ErrAlgorithmMismatch, message, cause)
}

// NewDecryptionFailureError creates a new decryption failure error
func NewDecryptionFailureError(message string, cause error) *Error {
	return NewError(ErrDecryptionFailure, message, cause)
}

// NewNoDefaultKeyError creates a new no default key error
func NewNoDefaultKeyError(message string, cause error) *Error {
	return NewError(ErrNoDefaultKey, message, cause)
}

// NewMissingKeyMaterialError creates a new missing key material error
func NewMissingKeyMaterialError(message string, cause error) *Error {
	return NewError(ErrMissingKeyMaterial, message, cause)
}

// NewInvalidScopeError creates a new invalid scope error
func NewInvalidScopeError(message string, cause error) *Error {
	return NewError(ErrInvalidScope, message, cause)
}

// NewAuthorizationPendingError creates a new authorization pending error
func NewAuthorizationPendingError(message string, cause error) *Error {
	return NewError(ErrAuthorizationPending, message, cause)
}

// NewDeviceCodeExpiredError creates a new device code expired error
func NewDeviceCodeExpiredError(message string, cause error) *Error {
	return NewError(ErrDeviceCodeExpired, message, cause)
}

// NewInvalidGrantError creates a new invalid grant error
func NewInvalidGrantError(message string, cause error) *Error {
	return NewError(ErrInvalidGrant, message, cause)
}

// TypeOf returns the type of the first *Error in err's chain, or "" if there is none.
func TypeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func isType(err error, errorType string) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsClientNotFound checks if the error is a client not found error
func IsClientNotFound(err error) bool {
	return isType(err, ErrClientNotFound)
}

// IsInvalidSignature checks if the error is an invalid signature error
func IsInvalidSignature(err error) bool {
	return isType(err, ErrInvalidSignature)
}

// IsAlgorithmMismatch checks if the error is an algorithm mismatch error
func IsAlgorithmMismatch(err error) bool {
	return isType(err, ErrAlgorithmMismatch)
}

// IsDecryptionFailure checks if the error is a decryption failure error
func IsDecryptionFailure(err error) bool {
	return isType(err, ErrDecryptionFailure)
}

// IsNoDefaultKey checks if the error is a no default key error
func IsNoDefaultKey(err error) bool {
	return isType(err, ErrNoDefaultKey)
}

// IsMissingKeyMaterial checks if the error is a missing key material error
func IsMissingKeyMaterial(err error) bool {
	return isType(err, ErrMissingKeyMaterial)
}

// IsInvalidScope checks if the error is an invalid scope error
func IsInvalidScope(err error) bool {
	return isType(err, ErrInvalidScope)
}

// IsAuthorizationPending checks if the error is an authorization pending error
func IsAuthorizationPending(err error) bool {
	return isType(err, ErrAuthorizationPending)
}

// IsDeviceCodeExpired checks if the error is a device code expired error
func IsDeviceCodeExpired(err error) bool {
	return isType(err, ErrDeviceCodeExpired)
}

// IsInvalidGrant checks if the error is an invalid grant error
func IsInvalidGrant(err error) bool {
	return isType(err, ErrInvalidGrant)
}
