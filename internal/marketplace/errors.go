package marketplace

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failed marketplace call.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "InvalidArgument"
	CodeUnauthorized    ErrorCode = "Unauthorized"
	CodeNotFound        ErrorCode = "NotFound"
	CodeConflict        ErrorCode = "Conflict"
	CodeBadRequest      ErrorCode = "BadRequest"
	CodeUnknown         ErrorCode = "Unknown"
)

// Action names the marketplace call that failed. It travels inside Error so
// logs and callers can tell which lifecycle step broke.
type Action string

const (
	ActionGetAllSubscriptions   Action = "GetAllSubscriptions"
	ActionGetSubscription       Action = "GetSubscription"
	ActionGetAllPlans           Action = "GetAllPlans"
	ActionResolve               Action = "Resolve"
	ActionActivate              Action = "Activate"
	ActionChangePlan            Action = "ChangePlan"
	ActionChangeQuantity        Action = "ChangeQuantity"
	ActionDelete                Action = "Delete"
	ActionOperationStatus       Action = "OperationStatus"
	ActionUpdateOperationStatus Action = "UpdateOperationStatus"
)

// Error is the only error type the adapter lets escape. Vendor transport
// failures are folded into it; callers match with errors.As or the Is*
// helpers and never see net/http details.
type Error struct {
	Code       ErrorCode
	Action     Action
	HTTPStatus int
	Message    string
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("marketplace: %s failed: %s (http %d): %s", e.Action, e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("marketplace: %s failed: %s: %s", e.Action, e.Code, e.Message)
}

// NewInvalidArgument builds the pre-flight validation error raised before any
// network call is made.
func NewInvalidArgument(action Action, message string) *Error {
	return &Error{Code: CodeInvalidArgument, Action: action, Message: message}
}

// classifyStatus maps a vendor HTTP status onto the domain taxonomy.
func classifyStatus(action Action, status int, message string) *Error {
	var code ErrorCode
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = CodeUnauthorized
		message = "token invalid or expired, please try again"
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusConflict:
		code = CodeConflict
	case http.StatusBadRequest:
		code = CodeBadRequest
	default:
		code = CodeUnknown
	}
	return &Error{Code: code, Action: action, HTTPStatus: status, Message: message}
}

// transportError wraps failures that never produced an HTTP status
// (connection refused, timeouts, body decode).
func transportError(action Action, err error) *Error {
	return &Error{Code: CodeUnknown, Action: action, Message: err.Error()}
}

func hasCode(err error, code ErrorCode) bool {
	var me *Error
	return errors.As(err, &me) && me.Code == code
}

// IsNotFound reports whether err is a marketplace NotFound.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsInvalidArgument reports whether err failed pre-flight validation.
func IsInvalidArgument(err error) bool { return hasCode(err, CodeInvalidArgument) }

// IsUnauthorized reports whether the vendor rejected our credential.
func IsUnauthorized(err error) bool { return hasCode(err, CodeUnauthorized) }

// IsConflict reports whether the vendor reported a concurrent modification.
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }
