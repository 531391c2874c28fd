package idl

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/vk/caniput/internal/principal"
)

// LabelKind distinguishes how a field was labelled.
type LabelKind int

const (
	// LabelID is a numeric field id, as written in source or read off the wire.
	LabelID LabelKind = iota
	// LabelNamed is a textual field name; on the wire it becomes Hash(name).
	LabelNamed
	// LabelUnnamed is a positional field of a tuple-like record.
	LabelUnnamed
)

// Label identifies a record or variant field.
type Label struct {
	Kind LabelKind
	ID   uint32
	Name string
}

func IDLabel(id uint32) Label       { return Label{Kind: LabelID, ID: id} }
func NamedLabel(name string) Label  { return Label{Kind: LabelNamed, Name: name} }
func UnnamedLabel(pos uint32) Label { return Label{Kind: LabelUnnamed, ID: pos} }

// WireID is the numeric id the label takes on the wire.
func (l Label) WireID() uint32 {
	if l.Kind == LabelNamed {
		return Hash(l.Name)
	}
	return l.ID
}

func (l Label) String() string {
	switch l.Kind {
	case LabelNamed:
		if isIdent(l.Name) && !isKeyword(l.Name) {
			return l.Name
		}
		return strconv.Quote(l.Name)
	default:
		return strconv.FormatUint(uint64(l.ID), 10)
	}
}

// Hash is the field-id hash of a textual label.
func Hash(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*223 + uint32(name[i])
	}
	return h
}

// Value is a parsed or decoded value. Kind selects which payload fields are
// meaningful:
//
//	Bool                       bool
//	Text                       text; the digit string of number; method of func
//	Float                      float32, float64
//	Int                        nat, int and the fixed-width integers
//	Elems                      vec elements; opt holds exactly one
//	Fields                     record fields; variant holds exactly one
//	Principal                  principal, service, func
type Value struct {
	Kind      Kind
	Bool      bool
	Text      string
	Float     float64
	Int       *big.Int
	Elems     []Value
	Fields    []Field
	Principal principal.Principal
}

// Field is one labelled member of a record or variant value.
type Field struct {
	Label Label
	Value Value
}

func Null() Value                { return Value{Kind: KindNull} }
func Reserved() Value            { return Value{Kind: KindReserved} }
func None() Value                { return Value{Kind: KindNone} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Text(s string) Value        { return Value{Kind: KindText, Text: s} }
func Number(digits string) Value { return Value{Kind: KindNumber, Text: digits} }
func Float64(f float64) Value    { return Value{Kind: KindFloat64, Float: f} }
func Float32(f float32) Value    { return Value{Kind: KindFloat32, Float: float64(f)} }
func Opt(v Value) Value          { return Value{Kind: KindOpt, Elems: []Value{v}} }
func Vec(elems ...Value) Value   { return Value{Kind: KindVec, Elems: elems} }
func Record(fields ...Field) Value {
	return Value{Kind: KindRecord, Fields: fields}
}
func Variant(f Field) Value { return Value{Kind: KindVariant, Fields: []Field{f}} }
func PrincipalVal(p principal.Principal) Value {
	return Value{Kind: KindPrincipal, Principal: p}
}
func Service(p principal.Principal) Value { return Value{Kind: KindService, Principal: p} }
func Func(p principal.Principal, method string) Value {
	return Value{Kind: KindFunc, Principal: p, Text: method}
}

// Integer builds a value of an integral kind (nat, int, nat8 ... int64).
func Integer(k Kind, i *big.Int) Value {
	return Value{Kind: k, Int: new(big.Int).Set(i)}
}

func Nat64(n uint64) Value { return Value{Kind: KindNat64, Int: new(big.Int).SetUint64(n)} }
func Int64(n int64) Value  { return Value{Kind: KindInt64, Int: big.NewInt(n)} }
func Nat8(n uint8) Value   { return Value{Kind: KindNat8, Int: big.NewInt(int64(n))} }

// Blob builds a vec nat8 value.
func Blob(b []byte) Value {
	elems := make([]Value, len(b))
	for i, c := range b {
		elems[i] = Nat8(c)
	}
	return Vec(elems...)
}

// OptValue returns the wrapped value of an opt.
func (v Value) OptValue() Value {
	if v.Kind != KindOpt || len(v.Elems) != 1 {
		panic(fmt.Sprintf("idl: OptValue on %s", v.Kind))
	}
	return v.Elems[0]
}

// VariantField returns the active field of a variant.
func (v Value) VariantField() Field {
	if v.Kind != KindVariant || len(v.Fields) != 1 {
		panic(fmt.Sprintf("idl: VariantField on %s", v.Kind))
	}
	return v.Fields[0]
}

// Bytes returns the payload of a vec nat8 value, and false for anything
// else.
func (v Value) Bytes() ([]byte, bool) {
	if v.Kind != KindVec {
		return nil, false
	}
	out := make([]byte, len(v.Elems))
	for i, e := range v.Elems {
		if e.Kind != KindNat8 {
			return nil, false
		}
		out[i] = byte(e.Int.Uint64())
	}
	return out, true
}

// Field looks up a record field by wire id.
func (v Value) Field(l Label) (Value, bool) {
	id := l.WireID()
	for _, f := range v.Fields {
		if f.Label.WireID() == id {
			return f.Value, true
		}
	}
	return Value{}, false
}
