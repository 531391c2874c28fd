package idl

import (
	"fmt"
	"strings"
)

// Kind tags both values and types.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNat
	KindInt
	KindNat8
	KindNat16
	KindNat32
	KindNat64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindText
	KindReserved
	KindEmpty
	KindOpt
	KindVec
	KindRecord
	KindVariant
	KindFunc
	KindService
	KindPrincipal

	// Value-only kinds produced by the literal parser.

	// KindNumber is an integer literal whose width is not yet known.
	KindNumber
	// KindNone is an absent optional.
	KindNone
)

var kindNames = map[Kind]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindNat:       "nat",
	KindInt:       "int",
	KindNat8:      "nat8",
	KindNat16:     "nat16",
	KindNat32:     "nat32",
	KindNat64:     "nat64",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindText:      "text",
	KindReserved:  "reserved",
	KindEmpty:     "empty",
	KindOpt:       "opt",
	KindVec:       "vec",
	KindRecord:    "record",
	KindVariant:   "variant",
	KindFunc:      "func",
	KindService:   "service",
	KindPrincipal: "principal",
	KindNumber:    "number",
	KindNone:      "none",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// primitiveKinds maps type keywords to their kinds.
var primitiveKinds = map[string]Kind{
	"null":      KindNull,
	"bool":      KindBool,
	"nat":       KindNat,
	"int":       KindInt,
	"nat8":      KindNat8,
	"nat16":     KindNat16,
	"nat32":     KindNat32,
	"nat64":     KindNat64,
	"int8":      KindInt8,
	"int16":     KindInt16,
	"int32":     KindInt32,
	"int64":     KindInt64,
	"float32":   KindFloat32,
	"float64":   KindFloat64,
	"text":      KindText,
	"reserved":  KindReserved,
	"empty":     KindEmpty,
	"principal": KindPrincipal,
}

// IsPrimitive reports whether k is a type kind without a type table entry.
func (k Kind) IsPrimitive() bool {
	return k <= KindEmpty || k == KindPrincipal
}

// Type describes the shape of a value on the wire. Types may be recursive:
// a composite Type can refer back to itself through Elem or Fields.
type Type struct {
	Kind Kind
	// Elem is the element type of opt and vec.
	Elem *Type
	// Fields of record and variant types, in declaration order.
	Fields []FieldType
	// Func signature, for func types.
	Args, Rets []*Type
	Modes      []string
	// Methods of service types.
	Methods []Method
}

type FieldType struct {
	Label Label
	Type  *Type
}

type Method struct {
	Name string
	Type *Type
}

var primitiveTypes = func() map[Kind]*Type {
	m := make(map[Kind]*Type)
	for _, k := range primitiveKinds {
		m[k] = &Type{Kind: k}
	}
	return m
}()

// Prim returns the shared Type for a primitive kind.
func Prim(k Kind) *Type {
	t, ok := primitiveTypes[k]
	if !ok {
		panic(fmt.Sprintf("idl: %s is not a primitive kind", k))
	}
	return t
}

func OptOf(elem *Type) *Type { return &Type{Kind: KindOpt, Elem: elem} }
func VecOf(elem *Type) *Type { return &Type{Kind: KindVec, Elem: elem} }

func RecordOf(fields ...FieldType) *Type  { return &Type{Kind: KindRecord, Fields: fields} }
func VariantOf(fields ...FieldType) *Type { return &Type{Kind: KindVariant, Fields: fields} }

// Named is shorthand for a field type with a named label.
func Named(name string, t *Type) FieldType { return FieldType{Label: NamedLabel(name), Type: t} }

// String renders t in type syntax. Recursive references print as "μ".
func (t *Type) String() string {
	var sb strings.Builder
	t.write(&sb, map[*Type]bool{})
	return sb.String()
}

func (t *Type) write(sb *strings.Builder, open map[*Type]bool) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	if t.Kind.IsPrimitive() {
		sb.WriteString(t.Kind.String())
		return
	}
	if open[t] {
		sb.WriteString("μ")
		return
	}
	open[t] = true
	defer delete(open, t)

	switch t.Kind {
	case KindOpt, KindVec:
		sb.WriteString(t.Kind.String())
		sb.WriteByte(' ')
		t.Elem.write(sb, open)
	case KindRecord, KindVariant:
		sb.WriteString(t.Kind.String())
		sb.WriteString(" {")
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			sb.WriteString(f.Label.String())
			sb.WriteString(" : ")
			f.Type.write(sb, open)
		}
		sb.WriteString(" }")
	case KindFunc:
		sb.WriteString("func (")
		writeTypes(sb, t.Args, open)
		sb.WriteString(") -> (")
		writeTypes(sb, t.Rets, open)
		sb.WriteByte(')')
		for _, m := range t.Modes {
			sb.WriteByte(' ')
			sb.WriteString(m)
		}
	case KindService:
		sb.WriteString("service {")
		for i, m := range t.Methods {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			sb.WriteString(m.Name)
			sb.WriteString(" : ")
			m.Type.write(sb, open)
		}
		sb.WriteString(" }")
	default:
		sb.WriteString(t.Kind.String())
	}
}

func writeTypes(sb *strings.Builder, ts []*Type, open map[*Type]bool) {
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(", ")
		}
		t.write(sb, open)
	}
}
