package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

var (
	ErrConfigLoad        = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect   = "DATABASE_CONNECT_ERROR"
	ErrValidation        = "VALIDATION_ERROR"
	ErrDuplicateRejected = "DUPLICATE_REJECTED"
	ErrStore             = "STORE_ERROR"
	ErrAudit             = "AUDIT_ERROR"
)

// CodeOf returns the AppError code carried by err, or "" for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}
