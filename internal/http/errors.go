package http

import (
	"errors"
	"net/http"

	"nzql/internal/cloudsync"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/state"
)

// AppError is the error shape every handler answers with. Only Code and
// Message reach the client; Internal is logged.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Internal }

// Wrap copies sentinel and attaches the underlying error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage copies sentinel with a different client-facing message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

var (
	ErrInvalidInput        = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidationFailed    = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed", StatusCode: http.StatusUnprocessableEntity}
	ErrNotFound            = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrUnknownAccount      = &AppError{Code: "UNKNOWN_ACCOUNT", Message: "Account does not exist", StatusCode: http.StatusUnprocessableEntity}
	ErrSameAccountTransfer = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusUnprocessableEntity}
	ErrNoSyncEndpoint      = &AppError{Code: "NO_SYNC_ENDPOINT", Message: "請先設定雲端同步網址", StatusCode: http.StatusBadRequest}
	ErrSyncFailed          = &AppError{Code: "SYNC_FAILED", Message: "Sync failed", StatusCode: http.StatusBadGateway}
	ErrRateLimited         = &AppError{Code: "RATE_LIMITED", Message: "Rate limit exceeded. Please try again later.", StatusCode: http.StatusTooManyRequests}
	ErrInternalServer      = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// mapError turns domain and store errors into AppErrors.
func mapError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, state.ErrNotFound):
		return Wrap(ErrNotFound, err)
	case errors.Is(err, state.ErrUnknownAccount):
		return Wrap(ErrUnknownAccount, err)
	case errors.Is(err, core.ErrSameAccountTransfer):
		return Wrap(ErrSameAccountTransfer, err)
	case errors.Is(err, state.ErrInvalidURL):
		return &AppError{Code: ErrInvalidInput.Code, Message: "Invalid sync URL", StatusCode: ErrInvalidInput.StatusCode, Internal: err}
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyAccount),
		errors.Is(err, core.ErrInvalidAccountType),
		errors.Is(err, core.ErrInvalidTransactionType):
		return Wrap(ErrInvalidInput, err)
	case errors.Is(err, cloudsync.ErrNoEndpoint):
		return Wrap(ErrNoSyncEndpoint, err)
	default:
		return Wrap(ErrInternalServer, err)
	}
}

type errorBody struct {
	Error *AppError `json:"error"`
}

// respondWithError writes the error envelope. Unexpected errors are logged
// in full while the client only sees the generic message.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapError(err)
	logger := log.FromContext(r.Context())
	switch {
	case appErr.StatusCode >= http.StatusInternalServerError:
		fields := log.NewFields()
		fields["code"] = appErr.Code
		fields[log.FieldPath] = r.URL.Path
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method, fields)
	case appErr.Internal != nil:
		logger.DebugContext(r.Context(), "Request rejected",
			"code", appErr.Code, log.FieldPath, r.URL.Path, log.FieldError, appErr.Internal)
	}
	NewJSONResponse().Status(appErr.StatusCode).Body(errorBody{Error: appErr}).Write(w)
}
