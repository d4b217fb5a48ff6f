package goerror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that the request could not be completed due to a conflict.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	// TypeServer represents unexpected failures (storage, driver, broker).
	TypeServer Type = iota
	// TypeTransient represents failures that are expected to go away on retry.
	TypeTransient
	// TypeTerminal represents failures that must not be retried.
	TypeTerminal
	// TypeValidation represents configuration or input validation failures.
	TypeValidation
)

// String returns the string representation of the error type.
func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	case TypeTransient:
		return "ERROR_TYPE_TRANSIENT"
	case TypeTerminal:
		return "ERROR_TYPE_TERMINAL"
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is a stable identifier used for logs, history records and exit codes.
type Code int

const (
	// CodeInternal represents an internal or unspecified error.
	CodeInternal Code = iota
	// CodeInvalidConfig indicates invalid or missing configuration.
	CodeInvalidConfig
	// CodeFieldNotFound indicates a required form field never became available.
	CodeFieldNotFound
	// CodeActionTimeout indicates an interaction or settle wait exceeded its bound.
	CodeActionTimeout
	// CodeInvalidCodeRejected indicates the site explicitly rejected a submitted OTP.
	CodeInvalidCodeRejected
	// CodeExhaustedRetries indicates a retry budget reached zero.
	CodeExhaustedRetries
	// CodeErrorPageDetected indicates an explicit site-side denial or error page.
	CodeErrorPageDetected
	// CodeConflict indicates another run already owns the same account.
	CodeConflict
	// CodeLoginRejected indicates the site showed the login form again after a submit.
	CodeLoginRejected
)

// String returns the string representation of the error code.
func (c Code) String() string {
	switch c {
	case CodeInvalidConfig:
		return "ERROR_CODE_INVALID_CONFIG"
	case CodeFieldNotFound:
		return "ERROR_CODE_FIELD_NOT_FOUND"
	case CodeActionTimeout:
		return "ERROR_CODE_ACTION_TIMEOUT"
	case CodeInvalidCodeRejected:
		return "ERROR_CODE_INVALID_CODE_REJECTED"
	case CodeExhaustedRetries:
		return "ERROR_CODE_EXHAUSTED_RETRIES"
	case CodeErrorPageDetected:
		return "ERROR_CODE_ERROR_PAGE_DETECTED"
	case CodeConflict:
		return "ERROR_CODE_CONFLICT"
	case CodeLoginRejected:
		return "ERROR_CODE_LOGIN_REJECTED"
	case CodeInternal:
		return "ERROR_CODE_INTERNAL"
	default:
		return "ERROR_CODE_INTERNAL"
	}
}

// Budget names a retry budget reported by CodeExhaustedRetries errors.
type Budget string

const (
	// BudgetRounds is the outer credential round budget.
	BudgetRounds Budget = "rounds"
	// BudgetOTPTries is the second-factor attempt budget.
	BudgetOTPTries Budget = "otp_tries"
)

// Error is a structured error used across the application.
//
// It can wrap an underlying error while also carrying a user-facing message,
// a high-level type, a stable error code and, for exhausted budgets, the
// budget name and a remediation hint.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	budget  Budget
	hint    string
	fields  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.msg
	if msg == "" {
		switch e.errType {
		case TypeValidation:
			msg = "Validation violation"
		case TypeTransient:
			msg = "Transient failure"
		case TypeTerminal:
			msg = "Terminal failure"
		default:
			msg = "Internal error"
		}
	}

	if e.hint != "" {
		msg = msg + "; " + e.hint
	}

	if e.err != nil {
		return msg + ": " + e.err.Error()
	}

	return msg
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Budget: %s, Underlying Error: %v",
		e.errType.String(),
		e.code.String(),
		e.msg,
		e.budget,
		e.err,
	)
}

// Msg returns the user-facing error message, if set.
func (e *Error) Msg() string {
	return e.msg
}

// Type returns the high-level error type.
func (e *Error) Type() Type {
	return e.errType
}

// Code returns the stable error code.
func (e *Error) Code() Code {
	return e.code
}

// Budget returns the exhausted budget for CodeExhaustedRetries errors.
func (e *Error) Budget() Budget {
	return e.budget
}

// Hint returns the remediation hint, if any.
func (e *Error) Hint() string {
	return e.hint
}

// Fields returns validation errors (field to message map), if any.
func (e *Error) Fields() map[string]string {
	return e.fields
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether the failure is expected to be transient.
func (e *Error) Retryable() bool {
	return e.errType == TypeTransient
}

// ExitCode maps the error to a process exit code.
func (e *Error) ExitCode() int {
	switch e.errType {
	case TypeValidation:
		return 2
	default:
		return 1
	}
}

func new(err error, msg string, et Type, code Code) *Error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates a server-type error with the provided error.
func NewServer(err error) error {
	return new(err, "Internal error", TypeServer, CodeInternal)
}

// NewFieldNotFound reports that the named form field was not found or not visible.
func NewFieldNotFound(field string) error {
	return new(nil, fmt.Sprintf("%s field not found or not visible", field), TypeTransient, CodeFieldNotFound)
}

// NewActionTimeout reports that the named action exceeded its time bound.
func NewActionTimeout(action string, err error) error {
	return new(err, fmt.Sprintf("%s timed out", action), TypeTransient, CodeActionTimeout)
}

// NewInvalidCodeRejected reports an explicit "invalid code" answer for the given attempt.
func NewInvalidCodeRejected(attempt int) error {
	return new(nil, fmt.Sprintf("one-time code rejected on attempt %d", attempt), TypeTransient, CodeInvalidCodeRejected)
}

// NewExhausted reports that budget reached zero. last is the error of the
// final attempt, if any.
func NewExhausted(budget Budget, msg, hint string, last error) error {
	e := new(last, msg, TypeTerminal, CodeExhaustedRetries)
	e.budget = budget
	e.hint = hint
	return e
}

// NewErrorPage reports an explicit denial or error page.
func NewErrorPage(msg string) error {
	if msg == "" {
		msg = "error page detected"
	}
	return new(nil, msg, TypeTerminal, CodeErrorPageDetected)
}

// NewLoginRejected reports that a round ended back on the login form.
func NewLoginRejected() error {
	return new(nil, "site returned to the login form", TypeTransient, CodeLoginRejected)
}

// NewConflict reports that another run holds the same account.
func NewConflict(msg string) error {
	return new(ErrConflict, msg, TypeTerminal, CodeConflict)
}

// NewInvalidConfig creates a validation error for configuration, either
// wrapping err or built from field/message pairs.
func NewInvalidConfig(err error, kv ...string) error {
	if err != nil {
		return new(err, "Invalid configuration", TypeValidation, CodeInvalidConfig)
	}

	e := new(nil, "Invalid configuration", TypeValidation, CodeInvalidConfig)
	if len(kv)%2 != 0 {
		return e
	}

	e.fields = make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}
	if len(e.fields) > 0 {
		e.msg = fmt.Sprintf("Invalid configuration: %v", e.fields)
	}

	return e
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	if ge, ok := As(err); ok {
		return ge.Code()
	}
	return CodeInternal
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var ge *Error
		if !errors.As(err, &ge) {
			return false
		}
		if ge.code == code {
			return true
		}
		err = ge.err
	}
	return false
}
