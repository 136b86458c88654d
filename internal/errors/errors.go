package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a rename error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrConflict          ErrorCode = "CONFLICT"           // 409
	ErrValidation        ErrorCode = "VALIDATION"         // 422, caught before any call
	ErrBackend           ErrorCode = "BACKEND"            // structured backend failure
	ErrTransport         ErrorCode = "TRANSPORT"          // 502
	ErrBridgeUnavailable ErrorCode = "BRIDGE_UNAVAILABLE" // 503
	ErrBridgeInvoke      ErrorCode = "BRIDGE_INVOKE"      // 500
	ErrNotConfigured     ErrorCode = "NOT_CONFIGURED"     // 501
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// RenameError represents a structured error with code, status, and details.
type RenameError struct {
	Code    ErrorCode
	Status  int
	Message string

	// Detail is the machine detail string reported by the backend, if any.
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *RenameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RenameError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *RenameError {
	return &RenameError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing task or item.
func NewNotFound(kind, id string) *RenameError {
	return &RenameError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
	}
}

// NewConflict creates a 409 error.
func NewConflict(msg string) *RenameError {
	return &RenameError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewValidation creates an error for input rejected before any call is made.
// The message is user-facing guidance.
func NewValidation(msg string) *RenameError {
	return &RenameError{
		Code:    ErrValidation,
		Status:  422,
		Message: msg,
	}
}

// NewBackend creates an error for a structured backend failure.
// detail is preferred over the generic message when displayed.
func NewBackend(status int, detail string) *RenameError {
	msg := detail
	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", status)
	}
	return &RenameError{
		Code:    ErrBackend,
		Status:  status,
		Message: msg,
		Detail:  detail,
	}
}

// NewTransport wraps a connectivity failure. Its message is shown verbatim.
func NewTransport(err error) *RenameError {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &RenameError{
		Code:    ErrTransport,
		Status:  502,
		Message: msg,
		Err:     err,
	}
}

// NewBridgeUnavailable creates an error for a missing local rename bridge.
func NewBridgeUnavailable() *RenameError {
	return &RenameError{
		Code:    ErrBridgeUnavailable,
		Status:  503,
		Message: "local rename bridge is not available",
	}
}

// NewBridgeInvoke wraps a malformed or rejected bridge invocation.
func NewBridgeInvoke(err error) *RenameError {
	msg := "bridge invocation failed"
	if err != nil {
		msg = err.Error()
	}
	return &RenameError{
		Code:    ErrBridgeInvoke,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewNotConfigured creates a 501 error for a missing collaborator.
func NewNotConfigured(what string) *RenameError {
	return &RenameError{
		Code:    ErrNotConfigured,
		Status:  501,
		Message: fmt.Sprintf("%s is not configured", what),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *RenameError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &RenameError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error is a RenameError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *RenameError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// As returns the RenameError in err's chain, if any.
func As(err error) (*RenameError, bool) {
	var rErr *RenameError
	ok := stderrors.As(err, &rErr)
	return rErr, ok
}

// unavailablePatterns mark failure text from a host without the local rename capability.
var unavailablePatterns = []string{
	"not_tauri_runtime",
	"bridge not available",
	"bridge is not available",
	"unknown command",
	"command not found",
}

// invokePatterns mark failure text from a malformed bridge invocation.
var invokePatterns = []string{
	"missing required key",
	"invalid args",
	"invalid type",
}

// Classify maps an arbitrary error onto a RenameError. Structured errors are
// returned as-is; unstructured text is pattern-matched as a last resort.
func Classify(err error) *RenameError {
	if err == nil {
		return nil
	}
	if rErr, ok := As(err); ok {
		return rErr
	}
	text := strings.ToLower(err.Error())
	for _, p := range unavailablePatterns {
		if strings.Contains(text, p) {
			e := NewBridgeUnavailable()
			e.Err = err
			return e
		}
	}
	for _, p := range invokePatterns {
		if strings.Contains(text, p) {
			return NewBridgeInvoke(err)
		}
	}
	return NewTransport(err)
}

// Guidance messages shown instead of raw text for capability failures.
const (
	GuidanceBridgeUnavailable = "当前运行环境不支持本地改名，请在桌面客户端中运行，或关闭本地改名以使用服务端执行"
	GuidanceBridgeInvoke      = "本地改名调用参数不匹配，请升级桌面客户端后重试"
	FallbackMessage           = "请求失败"
)

// Normalize produces the single user-facing display string for err.
func Normalize(err error) string {
	if err == nil {
		return ""
	}
	rErr := Classify(err)
	switch rErr.Code {
	case ErrBridgeUnavailable:
		return GuidanceBridgeUnavailable
	case ErrBridgeInvoke:
		return GuidanceBridgeInvoke
	case ErrBackend:
		if rErr.Detail != "" {
			return rErr.Detail
		}
	}
	if rErr.Message == "" {
		return FallbackMessage
	}
	return rErr.Message
}
