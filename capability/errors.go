package capability

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-appsession/core"
	goerrors "github.com/goliatone/go-errors"
)

func capabilityError(err error, handle core.Handle, want string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	switch {
	case errors.Is(err, core.ErrUnknownHandle):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "capability: unknown handle").
			WithCode(http.StatusNotFound).
			WithTextCode(core.SessionErrorUnknownHandle).
			WithMetadata(map[string]any{"handle": string(handle)})
	default:
		return goerrors.Wrap(err, goerrors.CategoryOperation, fmt.Sprintf("capability: %s operation failed", want)).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.SessionErrorOperationFailed).
			WithMetadata(map[string]any{"handle": string(handle)})
	}
}

func wrongTypeError(handle core.Handle, want string, got any) error {
	return goerrors.New(
		fmt.Sprintf("capability: handle does not reference a %s (got %T)", want, got),
		goerrors.CategoryBadInput,
	).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.SessionErrorBadInput).
		WithMetadata(map[string]any{"handle": string(handle), "want": want})
}
