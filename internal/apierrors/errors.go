// Package apierrors is the single translation layer between domain errors and
// HTTP responses. Every handler returns an *Error (or a wrapped stdlib error,
// treated as Internal) and AbortWithApiError does the rest.
package apierrors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Code is the closed taxonomy from the spec's error handling design.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeAuthentication  Code = "AUTHENTICATION_ERROR"
	CodeAuthorization   Code = "AUTHORIZATION_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeTransient       Code = "TRANSIENT_FAILURE"
	CodePermanent       Code = "PERMANENT_FAILURE"
)

// Error is the domain error type. It carries enough to render an HTTP
// response without the handler layer re-deriving status codes.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	InnerError error
	Stack      []runtime.Frame

	// OAuthCode, when set, is an RFC-6749 error code (invalid_client,
	// invalid_grant, invalid_request, unsupported_grant_type, invalid_scope)
	// rendered instead of Code for /oauth/* endpoints.
	OAuthCode string

	// OAuthRedirectable marks an /authorize failure as safe to deliver via
	// 302 redirect. Per spec §4.3, only failures discovered after client_id
	// and redirect_uri are both validated may redirect; anything earlier
	// MUST surface as 400 JSON to avoid exfiltrating codes/errors to an
	// unregistered redirect_uri (open-redirect).
	OAuthRedirectable bool

	// RetryAfterSeconds is set on CodeRateLimited.
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	if e.InnerError != nil {
		return fmt.Sprintf("error %s, code %s, message %s", e.InnerError.Error(), e.Code, e.Message)
	}
	return fmt.Sprintf("code %s, message %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.InnerError }

func (e *Error) WithCode(c Code) *Error       { e.Code = c; return e }
func (e *Error) WithMessage(m string) *Error  { e.Message = m; return e }
func (e *Error) WithError(err error) *Error   { e.InnerError = err; return e }

// GetTopStackString renders the innermost captured frame, file:line func.
func (e *Error) GetTopStackString() string {
	if len(e.Stack) == 0 {
		return ""
	}
	return frameString(e.Stack[0])
}

// GetStackString renders every captured frame, one per line.
func (e *Error) GetStackString() string {
	if len(e.Stack) == 0 {
		return ""
	}
	lines := make([]string, 0, len(e.Stack))
	for _, f := range e.Stack {
		lines = append(lines, frameString(f))
	}
	return strings.Join(lines, "\n")
}

func frameString(f runtime.Frame) string {
	name := f.File + ":" + fmt.Sprint(f.Line)
	if f.Func != nil {
		short := f.Func.Name()
		if i := strings.LastIndex(short, "/"); i >= 0 {
			short = short[i+1:]
		}
		return name + " " + short
	}
	return name
}

func capture() []runtime.Frame {
	pc := make([]uintptr, 16)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])
	out := make([]runtime.Frame, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}

func newErr(code Code, status int, msg string) *Error {
	return &Error{Code: code, Message: msg, HTTPStatus: status, Stack: capture()}
}

func NewValidation(msg string) *Error {
	return newErr(CodeValidation, http.StatusBadRequest, msg)
}

func NewAuthentication(msg string) *Error {
	return newErr(CodeAuthentication, http.StatusUnauthorized, msg)
}

// NewOAuthError builds an RFC-6749 error for the /oauth/* endpoints. Never
// redirectable: used for /token and /revoke, and for the /authorize steps
// that must precede redirect_uri validation.
func NewOAuthError(oauthCode string, status int, description string) *Error {
	e := newErr(CodeAuthentication, status, description)
	e.OAuthCode = oauthCode
	return e
}

// NewOAuthRedirectError builds an RFC-6749 error for an /authorize failure
// discovered after client_id/redirect_uri are both known good, so the
// handler is free to deliver it as a 302 with error/error_description/state.
func NewOAuthRedirectError(oauthCode string, status int, description string) *Error {
	e := NewOAuthError(oauthCode, status, description)
	e.OAuthRedirectable = true
	return e
}

func NewAuthorization(msg string) *Error {
	return newErr(CodeAuthorization, http.StatusForbidden, msg)
}

func NewNotFound(msg string) *Error {
	return newErr(CodeNotFound, http.StatusNotFound, msg)
}

func NewConflict(msg string) *Error {
	return newErr(CodeConflict, http.StatusConflict, msg)
}

func NewInvalidState(msg string) *Error {
	return newErr(CodeInvalidState, http.StatusBadRequest, msg)
}

func NewRateLimited(retryAfterSeconds int) *Error {
	e := newErr(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded")
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

func NewTransient(msg string, inner error) *Error {
	e := newErr(CodeTransient, http.StatusInternalServerError, msg)
	e.InnerError = inner
	return e
}

// NewPermanent records a processing handler failure. It carries no HTTP
// status because it is projected onto ModelVersion.ErrorMessage, never
// returned to an HTTP caller directly.
func NewPermanent(msg string, inner error) *Error {
	e := newErr(CodePermanent, 0, msg)
	e.InnerError = inner
	return e
}

// AsAPIError unwraps err into an *Error, or synthesizes an Internal one.
func AsAPIError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return newErr(CodeTransient, http.StatusInternalServerError, "").WithError(err)
}

// Sanitized returns a message safe to surface to callers/ModelVersion rows:
// internal error text is suppressed for transient/permanent failures unless
// the caller explicitly set Message.
func (e *Error) Sanitized() string {
	if e.Message != "" {
		return e.Message
	}
	return "internal error"
}
