package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SessionErrorBadInput          = "APPSESSION_BAD_INPUT"
	SessionErrorUnknownHandle     = "APPSESSION_UNKNOWN_HANDLE"
	SessionErrorInvalidSession    = "APPSESSION_INVALID_SESSION"
	SessionErrorAuthDenied        = "APPSESSION_AUTH_DENIED"
	SessionErrorDispatchFailed    = "APPSESSION_DISPATCH_FAILED"
	SessionErrorOperationFailed   = "APPSESSION_OPERATION_FAILED"
	SessionErrorResourceExhausted = "APPSESSION_RESOURCE_EXHAUSTED"
	SessionErrorInternal          = "APPSESSION_INTERNAL_ERROR"
)

var (
	ErrUnknownHandle       = errors.New("core: unknown handle")
	ErrInvalidSession      = errors.New("core: invalid session")
	ErrAuthorizationDenied = errors.New("core: authorization denied")
	ErrDispatchFailed      = errors.New("core: authenticator dispatch failed")
	ErrOperationFailed     = errors.New("core: native operation failed")
	ErrResourceExhausted   = errors.New("core: handle capacity exhausted")
)

func sessionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSessionErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrUnknownHandle):
		return newSessionError(err.Error(), goerrors.CategoryNotFound, SessionErrorUnknownHandle)
	case errors.Is(err, ErrInvalidSession):
		return newSessionError(err.Error(), goerrors.CategoryConflict, SessionErrorInvalidSession)
	case errors.Is(err, ErrAuthorizationDenied):
		return newSessionError(err.Error(), goerrors.CategoryAuth, SessionErrorAuthDenied)
	case errors.Is(err, ErrDispatchFailed):
		return newSessionError(err.Error(), goerrors.CategoryOperation, SessionErrorDispatchFailed)
	case errors.Is(err, ErrOperationFailed):
		return newSessionError(err.Error(), goerrors.CategoryOperation, SessionErrorOperationFailed)
	case errors.Is(err, ErrResourceExhausted):
		return newSessionError(err.Error(), goerrors.CategoryInternal, SessionErrorResourceExhausted)
	case errors.Is(err, ErrInvalidAppInfo), errors.Is(err, ErrInvalidPermissionSet):
		return newSessionError(err.Error(), goerrors.CategoryBadInput, SessionErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "unknown handle"), strings.Contains(msg, "handle not found"):
		return newSessionError(err.Error(), goerrors.CategoryNotFound, SessionErrorUnknownHandle)
	case strings.Contains(msg, "denied"), strings.Contains(msg, "rejected"):
		return newSessionError(err.Error(), goerrors.CategoryAuth, SessionErrorAuthDenied)
	case strings.Contains(msg, "dispatch"):
		return newSessionError(err.Error(), goerrors.CategoryOperation, SessionErrorDispatchFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"),
		strings.Contains(msg, "decode"), strings.Contains(msg, "mismatch"):
		return newSessionError(err.Error(), goerrors.CategoryBadInput, SessionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSessionErrorEnvelope(mapped)
}

func newSessionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSessionErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSessionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = sessionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSessionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSessionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SessionErrorBadInput
	case goerrors.CategoryNotFound:
		return SessionErrorUnknownHandle
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SessionErrorAuthDenied
	case goerrors.CategoryConflict:
		return SessionErrorInvalidSession
	case goerrors.CategoryOperation:
		return SessionErrorOperationFailed
	default:
		return SessionErrorInternal
	}
}

func sessionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
