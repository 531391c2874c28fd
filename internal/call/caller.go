package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/principal"
	"github.com/vk/caniput/internal/transport"
)

// Result is the outcome of a call that got a reply.
type Result struct {
	Reply    []byte
	Elapsed  time.Duration
	Attempts int
}

// Caller submits calls to one canister under a retry policy.
type Caller struct {
	tr       transport.Transport
	canister principal.Principal
	policy   Policy
}

// NewCaller returns a Caller for canister. The policy is validated here so
// that Call never runs unbounded.
func NewCaller(tr transport.Transport, canister principal.Principal, policy Policy) (*Caller, error) {
	if tr == nil {
		return nil, errors.New("call: nil transport")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("call: invalid policy: %w", err)
	}
	return &Caller{tr: tr, canister: canister, policy: policy}, nil
}

// Canister returns the target canister.
func (c *Caller) Canister() principal.Principal { return c.canister }

// Policy returns the retry policy.
func (c *Caller) Policy() Policy { return c.policy }

// Call submits arg to method until a definitive answer arrives. Retryable
// transport failures are retried after the policy's pause; any other error
// is returned at once. When the timeout runs out the error matches
// errs.ErrTimeout.
func (c *Caller) Call(ctx context.Context, method string, arg []byte) (Result, error) {
	return c.call(ctx, time.Now(), method, arg)
}

func (c *Caller) call(ctx context.Context, start time.Time, method string, arg []byte) (Result, error) {
	parent := ctx
	ctx, cancel := context.WithDeadline(ctx, start.Add(c.policy.Timeout))
	defer cancel()

	ctx, logger := ctxlog.With(ctx, "canister", c.canister.String(), "method", method)
	req := transport.Request{Canister: c.canister, Method: method, Arg: arg}

	var (
		attempt int
		lastErr error
	)
	for ctx.Err() == nil {
		attempt++
		reply, err := c.tr.Submit(ctx, req)
		if err == nil {
			elapsed := time.Since(start)
			logger.Debug("Call replied.", "attempt", attempt, "elapsed", elapsed, "bytes", len(reply))
			return Result{Reply: reply, Elapsed: elapsed, Attempts: attempt}, nil
		}
		if !errs.IsRetryable(err) {
			logger.Debug("Call failed.", "attempt", attempt, "error", err)
			return Result{Elapsed: time.Since(start), Attempts: attempt}, err
		}
		lastErr = err
		logger.Debug("Attempt failed, retrying.", "attempt", attempt, "pause", c.policy.Pause, "error", err)

		if !sleep(ctx, c.policy.Pause) {
			break
		}
	}

	res := Result{Elapsed: time.Since(start), Attempts: attempt}
	if err := parent.Err(); err != nil {
		return res, errs.Transport("call "+method, err)
	}
	logger.Warn("Call timed out.", "attempts", attempt, "elapsed", res.Elapsed, "timeout", c.policy.Timeout)
	return res, errs.Timeout("call "+method, lastErr)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
