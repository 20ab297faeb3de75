package ledger

import "fmt"

// Kind is the closed enumeration of failure classes the core can report.
// Callers branch on kind rather than on concrete error values so the set
// stays exhaustive.
type Kind uint8

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindInsufficientFunds
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error carries a failure kind plus a machine-readable message. The HTTP
// layer owns any user-facing wording.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so
// errors.Is(err, ledger.ErrInsufficientFunds) works for every
// insufficient-funds failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks, one per kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
)

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// InsufficientFundsf builds a KindInsufficientFunds error.
func InsufficientFundsf(format string, args ...any) error {
	return &Error{Kind: KindInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a KindConflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}
