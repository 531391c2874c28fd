package cli

import "fmt"

// Exit codes returned through ExitError.
const (
	ExitGeneric        = 1
	ExitUsage          = 2
	ExitLogicalFailure = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}
