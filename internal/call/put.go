package call

import (
	"context"
	"time"

	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/idl"
	"github.com/vk/caniput/internal/value"
)

// MethodPut is the canister method that stores values.
const MethodPut = "put"

// PutOutcome reports whether the canister stored the values. Stored false
// is a logical failure: the call itself succeeded.
type PutOutcome struct {
	Stored  bool
	Elapsed time.Duration
}

// PutArgTypes returns the argument types of put: (text, vec text, vec Value).
func PutArgTypes() []*idl.Type {
	text := idl.Prim(idl.KindText)
	return []*idl.Type{text, idl.VecOf(text), idl.VecOf(value.WireType())}
}

// PutReplyType returns the reply type of put: (opt null).
func PutReplyType() *idl.Type {
	return idl.OptOf(idl.Prim(idl.KindNull))
}

// Put stores vals under path on behalf of user. Values that cannot be
// encoded fail before any network I/O.
func (c *Caller) Put(ctx context.Context, user string, path []string, vals []value.Value) (PutOutcome, error) {
	start := time.Now()
	logger := ctxlog.FromContext(ctx).With("user", user, "path", path, "values", len(vals))

	arg, err := EncodePut(user, path, vals)
	if err != nil {
		return PutOutcome{}, err
	}
	logger.Debug("Encoded put argument.", "bytes", len(arg))

	res, err := c.call(ctx, start, MethodPut, arg)
	if err != nil {
		return PutOutcome{Elapsed: res.Elapsed}, err
	}
	stored, err := DecodePutReply(res.Reply)
	if err != nil {
		return PutOutcome{Elapsed: res.Elapsed}, err
	}
	logger.Info("Put finished.", "stored", stored, "attempts", res.Attempts, "elapsed", res.Elapsed)
	return PutOutcome{Stored: stored, Elapsed: res.Elapsed}, nil
}

// EncodePut encodes the put argument message.
func EncodePut(user string, path []string, vals []value.Value) ([]byte, error) {
	segs := make([]idl.Value, len(path))
	for i, s := range path {
		segs[i] = idl.Text(s)
	}
	wireVals := make([]idl.Value, len(vals))
	for i, v := range vals {
		w, err := value.ToWire(v)
		if err != nil {
			return nil, errs.Codec("encode put", err)
		}
		wireVals[i] = w
	}
	arg, err := idl.EncodeArgs(PutArgTypes(), []idl.Value{idl.Text(user), idl.Vec(segs...), idl.Vec(wireVals...)})
	if err != nil {
		return nil, errs.Codec("encode put", err)
	}
	return arg, nil
}

// DecodePutReply decodes the (opt null) reply of put. A present opt means
// the values were stored.
func DecodePutReply(reply []byte) (bool, error) {
	types, vals, err := idl.DecodeArgs(reply)
	if err != nil {
		return false, errs.Codec("decode put reply", err)
	}
	if len(vals) == 0 {
		return false, errs.Errorf(errs.KindCodec, "decode put reply", "reply has no values")
	}
	if types[0].Kind != idl.KindOpt {
		return false, errs.Errorf(errs.KindCodec, "decode put reply", "reply is %s, want opt null", types[0])
	}
	return vals[0].Kind == idl.KindOpt, nil
}
