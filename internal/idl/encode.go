package idl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"unicode/utf8"
)

// Magic prefixes every encoded message.
const Magic = "DIDL"

// maxDepth bounds value nesting in both directions of the codec.
const maxDepth = 512

var opcodes = map[Kind]int64{
	KindNull:      -1,
	KindBool:      -2,
	KindNat:       -3,
	KindInt:       -4,
	KindNat8:      -5,
	KindNat16:     -6,
	KindNat32:     -7,
	KindNat64:     -8,
	KindInt8:      -9,
	KindInt16:     -10,
	KindInt32:     -11,
	KindInt64:     -12,
	KindFloat32:   -13,
	KindFloat64:   -14,
	KindText:      -15,
	KindReserved:  -16,
	KindEmpty:     -17,
	KindOpt:       -18,
	KindVec:       -19,
	KindRecord:    -20,
	KindVariant:   -21,
	KindFunc:      -22,
	KindService:   -23,
	KindPrincipal: -24,
}

var funcModes = map[string]byte{"query": 1, "oneway": 2, "composite_query": 3}

// EncodeArgs encodes vals as an argument list of the given types.
func EncodeArgs(types []*Type, vals []Value) ([]byte, error) {
	if len(types) != len(vals) {
		return nil, fmt.Errorf("argument count mismatch: %d types, %d values", len(types), len(vals))
	}
	tt := &typeTable{index: make(map[*Type]int)}
	refs := make([]int64, len(types))
	for i, t := range types {
		r, err := tt.ref(t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		refs[i] = r
	}

	out := []byte(Magic)
	out = appendULEB(out, uint64(len(tt.entries)))
	for _, e := range tt.entries {
		out = append(out, e...)
	}
	out = appendULEB(out, uint64(len(refs)))
	for _, r := range refs {
		out = appendSLEB(out, r)
	}

	var err error
	for i, v := range vals {
		out, err = encodeValue(out, types[i], v, 0)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return out, nil
}

// EncodeValues encodes vals with types inferred by InferType.
func EncodeValues(vals ...Value) ([]byte, error) {
	types := make([]*Type, len(vals))
	for i, v := range vals {
		t, err := InferType(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		types[i] = t
	}
	return EncodeArgs(types, vals)
}

// InferType picks a wire type for an untyped value: numbers become int,
// vectors take the type of their first element, an absent optional is
// opt null.
func InferType(v Value) (*Type, error) {
	switch v.Kind {
	case KindNumber:
		return Prim(KindInt), nil
	case KindNone:
		return OptOf(Prim(KindNull)), nil
	case KindOpt:
		elem, err := InferType(v.OptValue())
		if err != nil {
			return nil, err
		}
		return OptOf(elem), nil
	case KindVec:
		if len(v.Elems) == 0 {
			return VecOf(Prim(KindEmpty)), nil
		}
		elem, err := InferType(v.Elems[0])
		if err != nil {
			return nil, err
		}
		return VecOf(elem), nil
	case KindRecord, KindVariant:
		fields := make([]FieldType, len(v.Fields))
		for i, f := range v.Fields {
			ft, err := InferType(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Label, err)
			}
			fields[i] = FieldType{Label: f.Label, Type: ft}
		}
		return &Type{Kind: v.Kind, Fields: fields}, nil
	case KindService:
		return &Type{Kind: KindService}, nil
	case KindFunc:
		return &Type{Kind: KindFunc}, nil
	case KindEmpty:
		return nil, errors.New("empty has no values")
	default:
		if v.Kind.IsPrimitive() {
			return Prim(v.Kind), nil
		}
		return nil, fmt.Errorf("cannot infer a type for %s", v.Kind)
	}
}

type typeTable struct {
	index   map[*Type]int
	entries [][]byte
}

func (tt *typeTable) ref(t *Type) (int64, error) {
	if t == nil {
		return 0, errors.New("nil type")
	}
	if t.Kind.IsPrimitive() {
		return opcodes[t.Kind], nil
	}
	if i, ok := tt.index[t]; ok {
		return int64(i), nil
	}
	op, ok := opcodes[t.Kind]
	if !ok {
		return 0, fmt.Errorf("%s is not a wire type", t.Kind)
	}

	// Reserve the slot before descending so recursive references resolve.
	i := len(tt.entries)
	tt.index[t] = i
	tt.entries = append(tt.entries, nil)

	b := appendSLEB(nil, op)
	switch t.Kind {
	case KindOpt, KindVec:
		r, err := tt.ref(t.Elem)
		if err != nil {
			return 0, err
		}
		b = appendSLEB(b, r)
	case KindRecord, KindVariant:
		fields, err := sortedFields(t.Fields)
		if err != nil {
			return 0, err
		}
		b = appendULEB(b, uint64(len(fields)))
		for _, f := range fields {
			r, err := tt.ref(f.Type)
			if err != nil {
				return 0, fmt.Errorf("field %s: %w", f.Label, err)
			}
			b = appendULEB(b, uint64(f.Label.WireID()))
			b = appendSLEB(b, r)
		}
	case KindFunc:
		var err error
		if b, err = tt.appendRefs(b, t.Args); err != nil {
			return 0, err
		}
		if b, err = tt.appendRefs(b, t.Rets); err != nil {
			return 0, err
		}
		b = appendULEB(b, uint64(len(t.Modes)))
		for _, m := range t.Modes {
			code, ok := funcModes[m]
			if !ok {
				return 0, fmt.Errorf("unknown func mode %q", m)
			}
			b = append(b, code)
		}
	case KindService:
		methods := append([]Method(nil), t.Methods...)
		sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
		b = appendULEB(b, uint64(len(methods)))
		for _, m := range methods {
			if m.Type == nil || m.Type.Kind != KindFunc {
				return 0, fmt.Errorf("method %q must have a func type", m.Name)
			}
			r, err := tt.ref(m.Type)
			if err != nil {
				return 0, err
			}
			b = appendULEB(b, uint64(len(m.Name)))
			b = append(b, m.Name...)
			b = appendSLEB(b, r)
		}
	}
	tt.entries[i] = b
	return int64(i), nil
}

func (tt *typeTable) appendRefs(b []byte, ts []*Type) ([]byte, error) {
	b = appendULEB(b, uint64(len(ts)))
	for _, t := range ts {
		r, err := tt.ref(t)
		if err != nil {
			return nil, err
		}
		b = appendSLEB(b, r)
	}
	return b, nil
}

// sortedFields orders fields by wire id and rejects duplicate ids.
func sortedFields(fields []FieldType) ([]FieldType, error) {
	out := append([]FieldType(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label.WireID() < out[j].Label.WireID() })
	for i := 1; i < len(out); i++ {
		if out[i].Label.WireID() == out[i-1].Label.WireID() {
			return nil, fmt.Errorf("duplicate field id %d (%s, %s)", out[i].Label.WireID(), out[i-1].Label, out[i].Label)
		}
	}
	return out, nil
}

func encodeValue(b []byte, t *Type, v Value, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, errors.New("value nested too deeply")
	}
	mismatch := func() error { return fmt.Errorf("cannot encode %s value as %s", v.Kind, t.Kind) }

	switch t.Kind {
	case KindReserved:
		return b, nil
	case KindEmpty:
		return nil, errors.New("cannot encode a value of type empty")
	case KindNull:
		if v.Kind != KindNull {
			return nil, mismatch()
		}
		return b, nil
	case KindBool:
		if v.Kind != KindBool {
			return nil, mismatch()
		}
		if v.Bool {
			return append(b, 1), nil
		}
		return append(b, 0), nil
	case KindText:
		if v.Kind != KindText {
			return nil, mismatch()
		}
		if !utf8.ValidString(v.Text) {
			return nil, errors.New("text is not valid UTF-8")
		}
		b = appendULEB(b, uint64(len(v.Text)))
		return append(b, v.Text...), nil
	case KindNat, KindInt, KindNat8, KindNat16, KindNat32, KindNat64, KindInt8, KindInt16, KindInt32, KindInt64:
		n, err := integerFor(t.Kind, v)
		if err != nil {
			return nil, err
		}
		return appendInteger(b, t.Kind, n), nil
	case KindFloat32, KindFloat64:
		f, err := floatFor(t.Kind, v)
		if err != nil {
			return nil, err
		}
		if t.Kind == KindFloat32 {
			return binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(f))), nil
		}
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(f)), nil
	case KindOpt:
		switch v.Kind {
		case KindNone, KindNull:
			return append(b, 0), nil
		case KindOpt:
			return encodeValue(append(b, 1), t.Elem, v.OptValue(), depth+1)
		default:
			return nil, mismatch()
		}
	case KindVec:
		if v.Kind != KindVec {
			return nil, mismatch()
		}
		b = appendULEB(b, uint64(len(v.Elems)))
		var err error
		for i, e := range v.Elems {
			if b, err = encodeValue(b, t.Elem, e, depth+1); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return b, nil
	case KindRecord:
		if v.Kind != KindRecord {
			return nil, mismatch()
		}
		fields, err := sortedFields(t.Fields)
		if err != nil {
			return nil, err
		}
		for _, ft := range fields {
			fv, ok := v.Field(ft.Label)
			if !ok {
				switch ft.Type.Kind {
				case KindOpt:
					fv = None()
				case KindNull, KindReserved:
					fv = Null()
				default:
					return nil, fmt.Errorf("record is missing field %s", ft.Label)
				}
			}
			if b, err = encodeValue(b, ft.Type, fv, depth+1); err != nil {
				return nil, fmt.Errorf("field %s: %w", ft.Label, err)
			}
		}
		return b, nil
	case KindVariant:
		if v.Kind != KindVariant {
			return nil, mismatch()
		}
		fields, err := sortedFields(t.Fields)
		if err != nil {
			return nil, err
		}
		active := v.VariantField()
		for i, ft := range fields {
			if ft.Label.WireID() != active.Label.WireID() {
				continue
			}
			b = appendULEB(b, uint64(i))
			b, err = encodeValue(b, ft.Type, active.Value, depth+1)
			if err != nil {
				return nil, fmt.Errorf("variant %s: %w", ft.Label, err)
			}
			return b, nil
		}
		return nil, fmt.Errorf("variant tag %s is not in type %s", active.Label, t)
	case KindPrincipal:
		if v.Kind != KindPrincipal {
			return nil, mismatch()
		}
		return appendPrincipal(append(b, 1), v), nil
	case KindService:
		if v.Kind != KindService && v.Kind != KindPrincipal {
			return nil, mismatch()
		}
		return appendPrincipal(append(b, 1), v), nil
	case KindFunc:
		if v.Kind != KindFunc {
			return nil, mismatch()
		}
		b = appendPrincipal(append(b, 1, 1), v)
		b = appendULEB(b, uint64(len(v.Text)))
		return append(b, v.Text...), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t.Kind)
}

func appendPrincipal(b []byte, v Value) []byte {
	raw := v.Principal.Bytes()
	b = appendULEB(b, uint64(len(raw)))
	return append(b, raw...)
}

type intRange struct {
	min, max *big.Int
	width    int
}

func pow2(n uint) *big.Int { return new(big.Int).Lsh(big.NewInt(1), n) }

var intRanges = map[Kind]intRange{
	KindNat8:  {big.NewInt(0), new(big.Int).Sub(pow2(8), big.NewInt(1)), 1},
	KindNat16: {big.NewInt(0), new(big.Int).Sub(pow2(16), big.NewInt(1)), 2},
	KindNat32: {big.NewInt(0), new(big.Int).Sub(pow2(32), big.NewInt(1)), 4},
	KindNat64: {big.NewInt(0), new(big.Int).Sub(pow2(64), big.NewInt(1)), 8},
	KindInt8:  {new(big.Int).Neg(pow2(7)), new(big.Int).Sub(pow2(7), big.NewInt(1)), 1},
	KindInt16: {new(big.Int).Neg(pow2(15)), new(big.Int).Sub(pow2(15), big.NewInt(1)), 2},
	KindInt32: {new(big.Int).Neg(pow2(31)), new(big.Int).Sub(pow2(31), big.NewInt(1)), 4},
	KindInt64: {new(big.Int).Neg(pow2(63)), new(big.Int).Sub(pow2(63), big.NewInt(1)), 8},
}

// integerFor checks that v can be represented as kind k and returns its
// integer payload. Untyped numbers are resolved here.
func integerFor(k Kind, v Value) (*big.Int, error) {
	var n *big.Int
	switch {
	case v.Kind == KindNumber:
		parsed, ok := new(big.Int).SetString(v.Text, 10)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", v.Text)
		}
		n = parsed
	case v.Kind == k, k == KindInt && v.Kind == KindNat:
		n = v.Int
	default:
		return nil, fmt.Errorf("cannot encode %s value as %s", v.Kind, k)
	}
	if n == nil {
		return nil, fmt.Errorf("%s value has no payload", v.Kind)
	}
	if k == KindNat && n.Sign() < 0 {
		return nil, fmt.Errorf("%s is negative, expected nat", n)
	}
	if r, ok := intRanges[k]; ok && (n.Cmp(r.min) < 0 || n.Cmp(r.max) > 0) {
		return nil, fmt.Errorf("%s out of range for %s", n, k)
	}
	return n, nil
}

func appendInteger(b []byte, k Kind, n *big.Int) []byte {
	switch k {
	case KindNat:
		return appendBigULEB(b, n)
	case KindInt:
		return appendBigSLEB(b, n)
	}
	width := intRanges[k].width
	var u uint64
	if n.Sign() < 0 {
		u = uint64(n.Int64())
	} else {
		u = n.Uint64()
	}
	for i := 0; i < width; i++ {
		b = append(b, byte(u>>(8*i)))
	}
	return b
}

func floatFor(k Kind, v Value) (float64, error) {
	switch v.Kind {
	case KindFloat32, KindFloat64:
		return v.Float, nil
	case KindNumber:
		f, _, err := big.ParseFloat(v.Text, 10, 64, big.ToNearestEven)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number: %w", v.Text, err)
		}
		out, _ := f.Float64()
		return out, nil
	}
	return 0, fmt.Errorf("cannot encode %s value as %s", v.Kind, k)
}
