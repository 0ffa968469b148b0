package services

import (
	"context"
	"errors"

	"projectflow/store"
	"projectflow/utils"
)

// Code is the machine readable outcome of an operation.
type Code string

const (
	CodeOK                 Code = ""
	CodeInvalidInput       Code = "InvalidInput"
	CodeNotFound           Code = "NotFound"
	CodeConflict           Code = "Conflict"
	CodeEmailTaken         Code = "EmailTaken"
	CodeInvalidToken       Code = "InvalidToken"
	CodeAccountInactive    Code = "AccountInactive"
	CodeAccountLocked      Code = "AccountLocked"
	CodeInvalidCredentials Code = "InvalidCredentials"
	CodeServiceUnavailable Code = "ServiceUnavailable"
	CodeTwoFactorRequired  Code = "TwoFactorRequired"
	CodeForbidden          Code = "Forbidden"
	CodeRateLimited        Code = "RateLimited"
	CodeInternal           Code = "Internal"
)

const (
	msgServiceUnavailable = "Service temporarily unavailable. Please try again."
	msgInternal           = "An unexpected error occurred"
)

// Result is what every caller-facing operation returns.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Errors  []string    `json:"errors"`
	Code    Code        `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(message string, data interface{}) *Result {
	return &Result{Success: true, Message: message, Errors: []string{}, Data: data}
}

func Fail(code Code, message string, errs ...string) *Result {
	if errs == nil {
		errs = []string{}
	}
	return &Result{Code: code, Message: message, Errors: errs}
}

// FromError maps a store or retry failure onto a Result. Unexpected failures
// are logged before being reduced to a generic message.
func FromError(err error) *Result {
	switch {
	case err == nil:
		return OK("", nil)
	case errors.Is(err, utils.ErrRetriesExhausted), errors.Is(err, store.ErrConnectionFailed):
		utils.LogError("store_unavailable", err, nil)
		return Fail(CodeServiceUnavailable, msgServiceUnavailable)
	case errors.Is(err, store.ErrNotFound):
		return Fail(CodeNotFound, notFoundMessage(err))
	case errors.Is(err, store.ErrForbidden):
		return Fail(CodeForbidden, "Insufficient permissions", store.Detail(err))
	case errors.Is(err, store.ErrRestricted):
		return Fail(CodeConflict, "Record is still referenced by other records", store.Detail(err))
	case errors.Is(err, store.ErrConflict):
		return Fail(CodeConflict, "Record conflicts with an existing one", store.Detail(err))
	case errors.Is(err, store.ErrInvalidInput):
		return Fail(CodeInvalidInput, "Validation failed", store.Detail(err))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Fail(CodeServiceUnavailable, msgServiceUnavailable)
	}
	utils.LogError("unexpected_failure", err, nil)
	return Fail(CodeInternal, msgInternal)
}

func notFoundMessage(err error) string {
	var se *store.Error
	if errors.As(err, &se) && se.Entity != "" {
		return string(se.Entity) + " not found"
	}
	return "Record not found"
}
