package value

import (
	"fmt"
	"math/big"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/idl"
)

// FromIDL converts a parsed or decoded idl value into a Value tree. The
// mapping preserves structure: every variant maps to its namesake, Number
// keeps its digit string and big integers are copied.
func FromIDL(v idl.Value) (Value, error) {
	switch v.Kind {
	case idl.KindBool:
		return Bool(v.Bool), nil
	case idl.KindNull:
		return Null{}, nil
	case idl.KindText:
		return Text(v.Text), nil
	case idl.KindNumber:
		return Number(v.Text), nil
	case idl.KindFloat64:
		return Float64(v.Float), nil
	case idl.KindFloat32:
		return Float32(float32(v.Float)), nil
	case idl.KindOpt:
		inner, err := FromIDL(v.OptValue())
		if err != nil {
			return nil, err
		}
		return Opt{Value: inner}, nil
	case idl.KindVec:
		out := make(Vec, len(v.Elems))
		for i, e := range v.Elems {
			c, err := FromIDL(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case idl.KindRecord:
		out := make(Record, len(v.Fields))
		for i, f := range v.Fields {
			c, err := fieldFromIDL(f)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case idl.KindVariant:
		f, err := fieldFromIDL(v.VariantField())
		if err != nil {
			return nil, err
		}
		return Variant{Field: f}, nil
	case idl.KindPrincipal:
		return Principal{ID: v.Principal}, nil
	case idl.KindService:
		return Service{ID: v.Principal}, nil
	case idl.KindFunc:
		return Func{Service: v.Principal, Method: v.Text}, nil
	case idl.KindNone:
		return None{}, nil
	case idl.KindReserved:
		return Reserved{}, nil
	case idl.KindNat:
		return Nat{N: new(big.Int).Set(v.Int)}, nil
	case idl.KindInt:
		return Int{N: new(big.Int).Set(v.Int)}, nil
	case idl.KindNat8:
		return Nat8(v.Int.Uint64()), nil
	case idl.KindNat16:
		return Nat16(v.Int.Uint64()), nil
	case idl.KindNat32:
		return Nat32(v.Int.Uint64()), nil
	case idl.KindNat64:
		return Nat64(v.Int.Uint64()), nil
	case idl.KindInt8:
		return Int8(v.Int.Int64()), nil
	case idl.KindInt16:
		return Int16(v.Int.Int64()), nil
	case idl.KindInt32:
		return Int32(v.Int.Int64()), nil
	case idl.KindInt64:
		return Int64(v.Int.Int64()), nil
	}
	return nil, errs.Unsupported("value.FromIDL", "no value variant for %s", v.Kind)
}

func fieldFromIDL(f idl.Field) (Field, error) {
	v, err := FromIDL(f.Value)
	if err != nil {
		return Field{}, err
	}
	return Field{Label: f.Label, Value: v}, nil
}

// ArgsFromIDL converts every argument of a parsed or decoded argument list.
func ArgsFromIDL(vals []idl.Value) (Args, error) {
	out := make(Args, len(vals))
	for i, v := range vals {
		c, err := FromIDL(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// ToIDL is the inverse of FromIDL. Trees holding a FileValue have no idl
// form and fail with errs.ErrUnsupported.
func ToIDL(v Value) (idl.Value, error) {
	switch v := v.(type) {
	case Bool:
		return idl.Bool(bool(v)), nil
	case Null:
		return idl.Null(), nil
	case Text:
		return idl.Text(string(v)), nil
	case Number:
		return idl.Number(string(v)), nil
	case Float64:
		return idl.Float64(float64(v)), nil
	case Float32:
		return idl.Float32(float32(v)), nil
	case Opt:
		inner, err := ToIDL(v.Value)
		if err != nil {
			return idl.Value{}, err
		}
		return idl.Opt(inner), nil
	case Vec:
		elems := make([]idl.Value, len(v))
		for i, e := range v {
			c, err := ToIDL(e)
			if err != nil {
				return idl.Value{}, err
			}
			elems[i] = c
		}
		return idl.Vec(elems...), nil
	case Record:
		fields := make([]idl.Field, len(v))
		for i, f := range v {
			c, err := ToIDL(f.Value)
			if err != nil {
				return idl.Value{}, err
			}
			fields[i] = idl.Field{Label: f.Label, Value: c}
		}
		return idl.Record(fields...), nil
	case Variant:
		c, err := ToIDL(v.Field.Value)
		if err != nil {
			return idl.Value{}, err
		}
		return idl.Variant(idl.Field{Label: v.Field.Label, Value: c}), nil
	case Principal:
		return idl.PrincipalVal(v.ID), nil
	case Service:
		return idl.Service(v.ID), nil
	case Func:
		return idl.Func(v.Service, v.Method), nil
	case None:
		return idl.None(), nil
	case Reserved:
		return idl.Reserved(), nil
	case Nat:
		return idl.Integer(idl.KindNat, v.N), nil
	case Int:
		return idl.Integer(idl.KindInt, v.N), nil
	case Nat8:
		return idl.Integer(idl.KindNat8, new(big.Int).SetUint64(uint64(v))), nil
	case Nat16:
		return idl.Integer(idl.KindNat16, new(big.Int).SetUint64(uint64(v))), nil
	case Nat32:
		return idl.Integer(idl.KindNat32, new(big.Int).SetUint64(uint64(v))), nil
	case Nat64:
		return idl.Integer(idl.KindNat64, new(big.Int).SetUint64(uint64(v))), nil
	case Int8:
		return idl.Integer(idl.KindInt8, big.NewInt(int64(v))), nil
	case Int16:
		return idl.Integer(idl.KindInt16, big.NewInt(int64(v))), nil
	case Int32:
		return idl.Integer(idl.KindInt32, big.NewInt(int64(v))), nil
	case Int64:
		return idl.Integer(idl.KindInt64, big.NewInt(int64(v))), nil
	}
	return idl.Value{}, errs.Unsupported("value.ToIDL", "%s has no literal form", Kind(v))
}
