package idl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/vk/caniput/internal/principal"
)

// maxValues bounds the number of values one message decodes to. Elements
// of zero-sized types consume no input, so the message size alone does not.
const maxValues = 1 << 20

var kindsByOpcode = func() map[int64]Kind {
	m := make(map[int64]Kind, len(opcodes))
	for k, op := range opcodes {
		m[op] = k
	}
	return m
}()

// DecodeArgs decodes a complete message, returning the wire type of every
// argument alongside its value. Trailing bytes are an error.
func DecodeArgs(data []byte) ([]*Type, []Value, error) {
	r := &reader{buf: data}
	magic, err := r.read(len(Magic))
	if err != nil || string(magic) != Magic {
		return nil, nil, errors.New("missing DIDL magic")
	}
	table, err := readTypeTable(r)
	if err != nil {
		return nil, nil, fmt.Errorf("type table: %w", err)
	}

	count, err := r.uleb()
	if err != nil {
		return nil, nil, fmt.Errorf("argument count: %w", err)
	}
	if count > uint64(r.remaining()) {
		return nil, nil, fmt.Errorf("argument count %d exceeds message size", count)
	}
	types := make([]*Type, count)
	for i := range types {
		ref, err := r.sleb()
		if err != nil {
			return nil, nil, fmt.Errorf("argument %d type: %w", i, err)
		}
		if types[i], err = table.resolve(ref); err != nil {
			return nil, nil, fmt.Errorf("argument %d type: %w", i, err)
		}
	}

	vals := make([]Value, count)
	for i, t := range types {
		if vals[i], err = decodeValue(r, t, 0); err != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	if r.remaining() != 0 {
		return nil, nil, fmt.Errorf("%d trailing bytes after arguments", r.remaining())
	}
	return types, vals, nil
}

// DecodeValue decodes a message that carries exactly one argument.
func DecodeValue(data []byte) (Value, error) {
	_, vals, err := DecodeArgs(data)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, fmt.Errorf("expected a single value, message has %d arguments", len(vals))
	}
	return vals[0], nil
}

type typeTableReader struct {
	types []*Type
}

func (tt *typeTableReader) resolve(ref int64) (*Type, error) {
	if ref >= 0 {
		if ref >= int64(len(tt.types)) {
			return nil, fmt.Errorf("type index %d out of range", ref)
		}
		return tt.types[ref], nil
	}
	k, ok := kindsByOpcode[ref]
	if !ok || !k.IsPrimitive() {
		return nil, fmt.Errorf("invalid type reference %d", ref)
	}
	return Prim(k), nil
}

func readTypeTable(r *reader) (*typeTableReader, error) {
	n, err := r.uleb()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%d entries exceed message size", n)
	}
	tt := &typeTableReader{types: make([]*Type, n)}
	for i := range tt.types {
		tt.types[i] = &Type{}
	}

	// Entries may refer forward, so read everything before resolving.
	type pending struct {
		t    *Type
		refs []int64
	}
	var todo []pending
	refs := func(r *reader) ([]int64, error) {
		m, err := r.uleb()
		if err != nil {
			return nil, err
		}
		if m > uint64(r.remaining()) {
			return nil, errEOF
		}
		out := make([]int64, m)
		for j := range out {
			if out[j], err = r.sleb(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	for i, t := range tt.types {
		op, err := r.sleb()
		if err != nil {
			return nil, err
		}
		k, ok := kindsByOpcode[op]
		if !ok || k.IsPrimitive() {
			return nil, fmt.Errorf("entry %d: invalid opcode %d", i, op)
		}
		t.Kind = k
		switch k {
		case KindOpt, KindVec:
			ref, err := r.sleb()
			if err != nil {
				return nil, err
			}
			todo = append(todo, pending{t, []int64{ref}})
		case KindRecord, KindVariant:
			m, err := r.uleb()
			if err != nil {
				return nil, err
			}
			if m > uint64(r.remaining()) {
				return nil, errEOF
			}
			fieldRefs := make([]int64, m)
			t.Fields = make([]FieldType, m)
			for j := range t.Fields {
				id, err := r.uleb()
				if err != nil {
					return nil, err
				}
				if id > math.MaxUint32 {
					return nil, fmt.Errorf("entry %d: field id %d overflows", i, id)
				}
				if j > 0 && uint32(id) <= t.Fields[j-1].Label.ID {
					return nil, fmt.Errorf("entry %d: field ids not strictly increasing", i)
				}
				t.Fields[j].Label = IDLabel(uint32(id))
				if fieldRefs[j], err = r.sleb(); err != nil {
					return nil, err
				}
			}
			todo = append(todo, pending{t, fieldRefs})
		case KindFunc:
			args, err := refs(r)
			if err != nil {
				return nil, err
			}
			rets, err := refs(r)
			if err != nil {
				return nil, err
			}
			t.Args = make([]*Type, len(args))
			t.Rets = make([]*Type, len(rets))
			todo = append(todo, pending{t, append(args, rets...)})
			m, err := r.uleb()
			if err != nil {
				return nil, err
			}
			if m > uint64(r.remaining()) {
				return nil, errEOF
			}
			modes, err := r.read(int(m))
			if err != nil {
				return nil, err
			}
			for _, code := range modes {
				name, err := modeName(code)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", i, err)
				}
				t.Modes = append(t.Modes, name)
			}
		case KindService:
			m, err := r.uleb()
			if err != nil {
				return nil, err
			}
			if m > uint64(r.remaining()) {
				return nil, errEOF
			}
			methodRefs := make([]int64, m)
			t.Methods = make([]Method, m)
			for j := range t.Methods {
				name, err := readText(r)
				if err != nil {
					return nil, err
				}
				t.Methods[j].Name = name
				if methodRefs[j], err = r.sleb(); err != nil {
					return nil, err
				}
			}
			todo = append(todo, pending{t, methodRefs})
		}
	}

	for _, p := range todo {
		resolved := make([]*Type, len(p.refs))
		for j, ref := range p.refs {
			rt, err := tt.resolve(ref)
			if err != nil {
				return nil, err
			}
			resolved[j] = rt
		}
		switch p.t.Kind {
		case KindOpt, KindVec:
			p.t.Elem = resolved[0]
		case KindRecord, KindVariant:
			for j := range p.t.Fields {
				p.t.Fields[j].Type = resolved[j]
			}
		case KindFunc:
			copy(p.t.Args, resolved[:len(p.t.Args)])
			copy(p.t.Rets, resolved[len(p.t.Args):])
		case KindService:
			for j := range p.t.Methods {
				if resolved[j].Kind != KindFunc {
					return nil, fmt.Errorf("method %q is not a func type", p.t.Methods[j].Name)
				}
				p.t.Methods[j].Type = resolved[j]
			}
		}
	}
	return tt, nil
}

func modeName(code byte) (string, error) {
	for name, c := range funcModes {
		if c == code {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown func mode %d", code)
}

func readText(r *reader) (string, error) {
	n, err := r.uleb()
	if err != nil {
		return "", err
	}
	if n > uint64(r.remaining()) {
		return "", errEOF
	}
	b, err := r.read(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(b), nil
}

func readPrincipal(r *reader) (principal.Principal, error) {
	flag, err := r.readByte()
	if err != nil {
		return principal.Principal{}, err
	}
	if flag != 1 {
		return principal.Principal{}, errors.New("opaque principal references are not supported")
	}
	n, err := r.uleb()
	if err != nil {
		return principal.Principal{}, err
	}
	if n > principal.MaxLength {
		return principal.Principal{}, fmt.Errorf("principal too long: %d bytes", n)
	}
	b, err := r.read(int(n))
	if err != nil {
		return principal.Principal{}, err
	}
	return principal.FromBytes(b)
}

var errTooManyValues = fmt.Errorf("message decodes to more than %d values", maxValues)

func zeroSized(t *Type) bool {
	return t.Kind == KindNull || t.Kind == KindReserved
}

func decodeValue(r *reader, t *Type, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, errors.New("value nested too deeply")
	}
	if r.values++; r.values > maxValues {
		return Value{}, errTooManyValues
	}
	switch t.Kind {
	case KindNull:
		return Null(), nil
	case KindReserved:
		return Reserved(), nil
	case KindEmpty:
		return Value{}, errors.New("cannot decode a value of type empty")
	case KindBool:
		c, err := r.readByte()
		if err != nil {
			return Value{}, err
		}
		if c > 1 {
			return Value{}, fmt.Errorf("invalid bool byte %#x", c)
		}
		return Bool(c == 1), nil
	case KindNat:
		n, err := r.bigULEB()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindNat, Int: n}, nil
	case KindInt:
		n, err := r.bigSLEB()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: n}, nil
	case KindNat8, KindNat16, KindNat32, KindNat64, KindInt8, KindInt16, KindInt32, KindInt64:
		width := intRanges[t.Kind].width
		b, err := r.read(width)
		if err != nil {
			return Value{}, err
		}
		var u uint64
		for i := width - 1; i >= 0; i-- {
			u = u<<8 | uint64(b[i])
		}
		n := new(big.Int).SetUint64(u)
		if intRanges[t.Kind].min.Sign() < 0 && u>>(8*width-1)&1 == 1 {
			n.Sub(n, pow2(uint(8*width)))
		}
		return Value{Kind: t.Kind, Int: n}, nil
	case KindFloat32:
		b, err := r.read(4)
		if err != nil {
			return Value{}, err
		}
		return Float32(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case KindFloat64:
		b, err := r.read(8)
		if err != nil {
			return Value{}, err
		}
		return Float64(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case KindText:
		s, err := readText(r)
		if err != nil {
			return Value{}, err
		}
		return Text(s), nil
	case KindOpt:
		c, err := r.readByte()
		if err != nil {
			return Value{}, err
		}
		switch c {
		case 0:
			return None(), nil
		case 1:
			inner, err := decodeValue(r, t.Elem, depth+1)
			if err != nil {
				return Value{}, err
			}
			return Opt(inner), nil
		default:
			return Value{}, fmt.Errorf("invalid opt tag %#x", c)
		}
	case KindVec:
		n, err := r.uleb()
		if err != nil {
			return Value{}, err
		}
		if !zeroSized(t.Elem) && n > uint64(r.remaining()) {
			return Value{}, fmt.Errorf("vector length %d exceeds message size", n)
		}
		if n > uint64(maxValues-r.values) {
			return Value{}, errTooManyValues
		}
		elems := make([]Value, n)
		for i := range elems {
			if elems[i], err = decodeValue(r, t.Elem, depth+1); err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return Vec(elems...), nil
	case KindRecord:
		fields := make([]Field, len(t.Fields))
		for i, ft := range t.Fields {
			v, err := decodeValue(r, ft.Type, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("field %s: %w", ft.Label, err)
			}
			fields[i] = Field{Label: ft.Label, Value: v}
		}
		return Record(fields...), nil
	case KindVariant:
		idx, err := r.uleb()
		if err != nil {
			return Value{}, err
		}
		if idx >= uint64(len(t.Fields)) {
			return Value{}, fmt.Errorf("variant index %d out of range", idx)
		}
		ft := t.Fields[idx]
		v, err := decodeValue(r, ft.Type, depth+1)
		if err != nil {
			return Value{}, fmt.Errorf("variant %s: %w", ft.Label, err)
		}
		return Variant(Field{Label: ft.Label, Value: v}), nil
	case KindPrincipal:
		p, err := readPrincipal(r)
		if err != nil {
			return Value{}, err
		}
		return PrincipalVal(p), nil
	case KindService:
		p, err := readPrincipal(r)
		if err != nil {
			return Value{}, err
		}
		return Service(p), nil
	case KindFunc:
		c, err := r.readByte()
		if err != nil {
			return Value{}, err
		}
		if c != 1 {
			return Value{}, errors.New("opaque func references are not supported")
		}
		p, err := readPrincipal(r)
		if err != nil {
			return Value{}, err
		}
		method, err := readText(r)
		if err != nil {
			return Value{}, err
		}
		return Func(p, method), nil
	}
	return Value{}, fmt.Errorf("unsupported type %s", t.Kind)
}
