package call

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultPause   = 100 * time.Millisecond
	DefaultTimeout = 60 * time.Second
)

// Policy bounds one logical call. Attempts are separated by Pause and the
// whole call, pauses included, gives up after Timeout.
type Policy struct {
	Pause   time.Duration
	Timeout time.Duration
}

// DefaultPolicy returns the pause and timeout used when nothing is
// configured.
func DefaultPolicy() Policy {
	return Policy{Pause: DefaultPause, Timeout: DefaultTimeout}
}

// Validate reports a policy that could retry forever or spin.
func (p Policy) Validate() error {
	var problems []error
	if p.Pause <= 0 {
		problems = append(problems, fmt.Errorf("retry pause must be positive, got %s", p.Pause))
	}
	if p.Timeout <= 0 {
		problems = append(problems, fmt.Errorf("timeout must be positive, got %s", p.Timeout))
	}
	return errors.Join(problems...)
}
