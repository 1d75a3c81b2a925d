package dispatch

import (
	"github.com/goliatone/go-appsession/core"
	goerrors "github.com/goliatone/go-errors"
)

func dispatchError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(dispatchTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func dispatchWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return dispatchError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(dispatchTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func dispatchTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.SessionErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.SessionErrorAuthDenied
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return core.SessionErrorDispatchFailed
	default:
		return core.SessionErrorInternal
	}
}
