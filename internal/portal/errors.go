// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/stbportal/internal/domain"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrAuth                = errors.New("portal: device rejected")
	ErrUnauthorized        = errors.New("portal: session unauthorized")
	ErrAccessDenied        = errors.New("portal: access denied")
	ErrRegistrationBlocked = errors.New("portal: registration blocked")
	ErrProtocol            = errors.New("portal: protocol error")
)

// AuthError means the handshake did not yield a usable token. It is
// recoverable by handshaking again but is never retried blindly.
type AuthError struct {
	DeviceID string
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	msg := "portal: handshake failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}

// UnauthorizedError is returned when the portal rejects the session token.
// The session is invalidated and the next call handshakes again.
type UnauthorizedError struct {
	Session domain.AuthSession
}

func (e *UnauthorizedError) Error() string {
	return "portal: session unauthorized"
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// AccessDeniedError is fatal: the subscriber must contact the provider.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string {
	if e.Message == "" {
		return "portal: access denied"
	}
	return "portal: access denied: " + e.Message
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// RegistrationBlockedError is fatal and carries the portal's block message.
type RegistrationBlockedError struct {
	Status  string
	Message string
}

func (e *RegistrationBlockedError) Error() string {
	return "portal: registration blocked: " + e.Message
}

func (e *RegistrationBlockedError) Unwrap() error { return ErrRegistrationBlocked }

// ProtocolError covers transport failures, non-2xx answers and undecodable
// payloads. It is transient by default.
type ProtocolError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "portal: protocol error"
	if e.URL != "" {
		msg += " calling " + e.URL
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProtocol}
	}
	return []error{ErrProtocol, e.Err}
}

// IsFatal reports errors that must surface to the user immediately with no
// silent retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrRegistrationBlocked)
}

// IsPermanent reports errors that a retry loop must not repeat.
func IsPermanent(err error) bool {
	switch {
	case err == nil:
		return false
	case IsFatal(err),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrAuth),
		errors.Is(err, domain.ErrLinkUnavailable),
		errors.Is(err, domain.ErrNoEpgForChannel),
		errors.Is(err, domain.ErrEpgTemporarilyEmpty),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

// Class is a low-cardinality label for an error, used by metrics and logs.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrRegistrationBlocked):
		return "registration_blocked"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, domain.ErrNoEpgForChannel), errors.Is(err, domain.ErrEpgTemporarilyEmpty):
		return "empty"
	default:
		return "protocol"
	}
}

const bodySnippetLen = 256

func snippet(body []byte) string {
	if len(body) > bodySnippetLen {
		return string(body[:bodySnippetLen])
	}
	return string(body)
}
