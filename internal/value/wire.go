package value

import (
	"fmt"
	"math"
	"math/big"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/idl"
)

// Wire form of a tree: every Go variant becomes a tagged variant case named
// after it, structs become records.
//
//	type Value = variant { Bool : bool; Null; Text : text; Number : text; ... ; File : File };
//	type Field = record { id : Label; val : Value };
//	type Label = variant { Id : nat32; Named : text; Unnamed : nat32 };
//	type File = variant { Directory : vec NameFile; Text : text; Binary : blob; Value : Value; Args : Args };
//	type NameFile = record { name : text; file : File };
//	type Args = record { args : vec Value };
type wireTypes struct {
	value, label, file *idl.Type
}

var wire = newWireTypes()

func newWireTypes() wireTypes {
	var (
		text   = idl.Prim(idl.KindText)
		null   = idl.Prim(idl.KindNull)
		nat32  = idl.Prim(idl.KindNat32)
		prin   = idl.Prim(idl.KindPrincipal)
		value  = &idl.Type{Kind: idl.KindVariant}
		file   = &idl.Type{Kind: idl.KindVariant}
		label  = idl.VariantOf(idl.Named("Id", nat32), idl.Named("Named", text), idl.Named("Unnamed", nat32))
		field  = idl.RecordOf(idl.Named("id", label), idl.Named("val", value))
		nameF  = idl.RecordOf(idl.Named("name", text), idl.Named("file", file))
		args   = idl.RecordOf(idl.Named("args", idl.VecOf(value)))
		funcTy = idl.RecordOf(
			idl.FieldType{Label: idl.UnnamedLabel(0), Type: prin},
			idl.FieldType{Label: idl.UnnamedLabel(1), Type: text},
		)
	)
	value.Fields = []idl.FieldType{
		idl.Named("Bool", idl.Prim(idl.KindBool)),
		idl.Named("Null", null),
		idl.Named("Text", text),
		idl.Named("Number", text),
		idl.Named("Float64", idl.Prim(idl.KindFloat64)),
		idl.Named("Opt", value),
		idl.Named("Vec", idl.VecOf(value)),
		idl.Named("Record", idl.VecOf(field)),
		idl.Named("Variant", field),
		idl.Named("Principal", prin),
		idl.Named("Service", prin),
		idl.Named("Func", funcTy),
		idl.Named("None", null),
		idl.Named("Int", idl.Prim(idl.KindInt)),
		idl.Named("Nat", idl.Prim(idl.KindNat)),
		idl.Named("Nat8", idl.Prim(idl.KindNat8)),
		idl.Named("Nat16", idl.Prim(idl.KindNat16)),
		idl.Named("Nat32", nat32),
		idl.Named("Nat64", idl.Prim(idl.KindNat64)),
		idl.Named("Int8", idl.Prim(idl.KindInt8)),
		idl.Named("Int16", idl.Prim(idl.KindInt16)),
		idl.Named("Int32", idl.Prim(idl.KindInt32)),
		idl.Named("Int64", idl.Prim(idl.KindInt64)),
		idl.Named("Float32", idl.Prim(idl.KindFloat32)),
		idl.Named("Reserved", null),
		idl.Named("File", file),
	}
	file.Fields = []idl.FieldType{
		idl.Named("Directory", idl.VecOf(nameF)),
		idl.Named("Text", text),
		idl.Named("Binary", idl.VecOf(idl.Prim(idl.KindNat8))),
		idl.Named("Value", value),
		idl.Named("Args", args),
	}
	return wireTypes{value: value, label: label, file: file}
}

// WireType is the recursive type of a Value on the wire.
func WireType() *idl.Type { return wire.value }

func tagged(tag string, payload idl.Value) idl.Value {
	return idl.Variant(idl.Field{Label: idl.NamedLabel(tag), Value: payload})
}

func named(name string, v idl.Value) idl.Field {
	return idl.Field{Label: idl.NamedLabel(name), Value: v}
}

// ToWire maps v onto WireType. It fails only on malformed trees (nil
// values or nil big integers).
func ToWire(v Value) (idl.Value, error) {
	switch v := v.(type) {
	case Bool:
		return tagged("Bool", idl.Bool(bool(v))), nil
	case Null:
		return tagged("Null", idl.Null()), nil
	case Text:
		return tagged("Text", idl.Text(string(v))), nil
	case Number:
		return tagged("Number", idl.Text(string(v))), nil
	case Float64:
		return tagged("Float64", idl.Float64(float64(v))), nil
	case Opt:
		inner, err := ToWire(v.Value)
		if err != nil {
			return idl.Value{}, err
		}
		return tagged("Opt", inner), nil
	case Vec:
		elems, err := wireSlice(v)
		if err != nil {
			return idl.Value{}, err
		}
		return tagged("Vec", idl.Vec(elems...)), nil
	case Record:
		fields := make([]idl.Value, len(v))
		for i, f := range v {
			wf, err := fieldToWire(f)
			if err != nil {
				return idl.Value{}, err
			}
			fields[i] = wf
		}
		return tagged("Record", idl.Vec(fields...)), nil
	case Variant:
		wf, err := fieldToWire(v.Field)
		if err != nil {
			return idl.Value{}, err
		}
		return tagged("Variant", wf), nil
	case Principal:
		return tagged("Principal", idl.PrincipalVal(v.ID)), nil
	case Service:
		return tagged("Service", idl.PrincipalVal(v.ID)), nil
	case Func:
		return tagged("Func", idl.Record(
			idl.Field{Label: idl.UnnamedLabel(0), Value: idl.PrincipalVal(v.Service)},
			idl.Field{Label: idl.UnnamedLabel(1), Value: idl.Text(v.Method)},
		)), nil
	case None:
		return tagged("None", idl.Null()), nil
	case Int:
		if v.N == nil {
			return idl.Value{}, errs.Errorf(errs.KindCodec, "value.ToWire", "int without payload")
		}
		return tagged("Int", idl.Integer(idl.KindInt, v.N)), nil
	case Nat:
		if v.N == nil || v.N.Sign() < 0 {
			return idl.Value{}, errs.Errorf(errs.KindCodec, "value.ToWire", "nat without a non-negative payload")
		}
		return tagged("Nat", idl.Integer(idl.KindNat, v.N)), nil
	case Nat8:
		return tagged("Nat8", idl.Nat8(uint8(v))), nil
	case Nat16:
		return tagged("Nat16", idl.Integer(idl.KindNat16, big.NewInt(int64(v)))), nil
	case Nat32:
		return tagged("Nat32", idl.Integer(idl.KindNat32, big.NewInt(int64(v)))), nil
	case Nat64:
		return tagged("Nat64", idl.Nat64(uint64(v))), nil
	case Int8:
		return tagged("Int8", idl.Integer(idl.KindInt8, big.NewInt(int64(v)))), nil
	case Int16:
		return tagged("Int16", idl.Integer(idl.KindInt16, big.NewInt(int64(v)))), nil
	case Int32:
		return tagged("Int32", idl.Integer(idl.KindInt32, big.NewInt(int64(v)))), nil
	case Int64:
		return tagged("Int64", idl.Int64(int64(v))), nil
	case Float32:
		return tagged("Float32", idl.Float32(float32(v))), nil
	case Reserved:
		return tagged("Reserved", idl.Null()), nil
	case FileValue:
		wf, err := FileToWire(v.File)
		if err != nil {
			return idl.Value{}, err
		}
		return tagged("File", wf), nil
	}
	return idl.Value{}, errs.Errorf(errs.KindCodec, "value.ToWire", "cannot ship %s", Kind(v))
}

// ArgsToWire maps an argument list onto the wire Args record.
func ArgsToWire(args Args) (idl.Value, error) {
	elems, err := wireSlice(args)
	if err != nil {
		return idl.Value{}, err
	}
	return idl.Record(named("args", idl.Vec(elems...))), nil
}

// FileToWire maps a file tree onto the wire File variant.
func FileToWire(f File) (idl.Value, error) {
	switch f := f.(type) {
	case Directory:
		entries := make([]idl.Value, len(f.Entries))
		for i, e := range f.Entries {
			wf, err := FileToWire(e.File)
			if err != nil {
				return idl.Value{}, fmt.Errorf("%s: %w", e.Name, err)
			}
			entries[i] = idl.Record(named("name", idl.Text(e.Name)), named("file", wf))
		}
		return tagged("Directory", idl.Vec(entries...)), nil
	case TextFile:
		return tagged("Text", idl.Text(string(f))), nil
	case BinaryFile:
		return tagged("Binary", idl.Blob(f)), nil
	case ValueFile:
		wv, err := ToWire(f.Value)
		if err != nil {
			return idl.Value{}, err
		}
		return tagged("Value", wv), nil
	case ArgsFile:
		wa, err := ArgsToWire(f.Args)
		if err != nil {
			return idl.Value{}, err
		}
		return tagged("Args", wa), nil
	}
	return idl.Value{}, errs.Errorf(errs.KindCodec, "value.FileToWire", "cannot ship %s file", FileKind(f))
}

func wireSlice(vals []Value) ([]idl.Value, error) {
	out := make([]idl.Value, len(vals))
	for i, v := range vals {
		w, err := ToWire(v)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func fieldToWire(f Field) (idl.Value, error) {
	var l idl.Value
	switch f.Label.Kind {
	case idl.LabelID:
		l = tagged("Id", idl.Integer(idl.KindNat32, big.NewInt(int64(f.Label.ID))))
	case idl.LabelNamed:
		l = tagged("Named", idl.Text(f.Label.Name))
	default:
		l = tagged("Unnamed", idl.Integer(idl.KindNat32, big.NewInt(int64(f.Label.ID))))
	}
	v, err := ToWire(f.Value)
	if err != nil {
		return idl.Value{}, err
	}
	return idl.Record(named("id", l), named("val", v)), nil
}

// tagName resolves the case of a decoded wire variant. Decoded labels carry
// only the hash, so the name is looked up among the cases of t. The payload
// must have the kind the case declares.
func tagName(t *idl.Type, v idl.Value) (string, idl.Value, error) {
	if v.Kind != idl.KindVariant || len(v.Fields) != 1 {
		return "", idl.Value{}, fmt.Errorf("expected a variant, found %s", v.Kind)
	}
	f := v.VariantField()
	id := f.Label.WireID()
	for _, ft := range t.Fields {
		if ft.Label.WireID() != id {
			continue
		}
		if f.Value.Kind != ft.Type.Kind {
			return "", idl.Value{}, fmt.Errorf("tag %s carries %s, want %s", ft.Label.Name, f.Value.Kind, ft.Type.Kind)
		}
		return ft.Label.Name, f.Value, nil
	}
	return "", idl.Value{}, fmt.Errorf("unknown tag %s", f.Label)
}

// recordField fetches a named field of a wire record, checking its kind.
func recordField(op string, v idl.Value, name string, kind idl.Kind) (idl.Value, error) {
	if v.Kind != idl.KindRecord {
		return idl.Value{}, errs.Errorf(errs.KindCodec, op, "expected a record, found %s", v.Kind)
	}
	f, ok := v.Field(idl.NamedLabel(name))
	if !ok {
		return idl.Value{}, errs.Errorf(errs.KindCodec, op, "record has no field %q", name)
	}
	if f.Kind != kind {
		return idl.Value{}, errs.Errorf(errs.KindCodec, op, "field %q is %s, want %s", name, f.Kind, kind)
	}
	return f, nil
}

// FromWire is the inverse of ToWire for decoded messages.
func FromWire(v idl.Value) (Value, error) {
	const op = "value.FromWire"
	tag, payload, err := tagName(wire.value, v)
	if err != nil {
		return nil, errs.Codec(op, err)
	}
	switch tag {
	case "Number":
		return Number(payload.Text), nil
	case "Opt":
		inner, err := FromWire(payload)
		if err != nil {
			return nil, err
		}
		return Opt{Value: inner}, nil
	case "Vec":
		return fromWireSlice(payload)
	case "Record":
		out := make(Record, len(payload.Elems))
		for i, e := range payload.Elems {
			f, err := fieldFromWire(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case "Variant":
		f, err := fieldFromWire(payload)
		if err != nil {
			return nil, err
		}
		return Variant{Field: f}, nil
	case "Service":
		return Service{ID: payload.Principal}, nil
	case "Func":
		p, ok := payload.Field(idl.UnnamedLabel(0))
		m, ok2 := payload.Field(idl.UnnamedLabel(1))
		if !ok || !ok2 || p.Kind != idl.KindPrincipal || m.Kind != idl.KindText {
			return nil, errs.Errorf(errs.KindCodec, op, "malformed func reference")
		}
		return Func{Service: p.Principal, Method: m.Text}, nil
	case "None":
		return None{}, nil
	case "Reserved":
		return Reserved{}, nil
	case "File":
		f, err := FileFromWire(payload)
		if err != nil {
			return nil, err
		}
		return FileValue{File: f}, nil
	}
	// The remaining cases carry their payload in the matching idl kind.
	return FromIDL(payload)
}

// FileFromWire is the inverse of FileToWire.
func FileFromWire(v idl.Value) (File, error) {
	const op = "value.FileFromWire"
	tag, payload, err := tagName(wire.file, v)
	if err != nil {
		return nil, errs.Codec(op, err)
	}
	switch tag {
	case "Directory":
		entries := make([]NameFile, len(payload.Elems))
		for i, e := range payload.Elems {
			name, err := recordField(op, e, "name", idl.KindText)
			if err != nil {
				return nil, err
			}
			wf, err := recordField(op, e, "file", idl.KindVariant)
			if err != nil {
				return nil, err
			}
			f, err := FileFromWire(wf)
			if err != nil {
				return nil, err
			}
			entries[i] = NameFile{Name: name.Text, File: f}
		}
		return Directory{Entries: entries}, nil
	case "Text":
		return TextFile(payload.Text), nil
	case "Binary":
		b, ok := payload.Bytes()
		if !ok {
			return nil, errs.Errorf(errs.KindCodec, op, "binary payload is not a blob")
		}
		return BinaryFile(b), nil
	case "Value":
		fv, err := FromWire(payload)
		if err != nil {
			return nil, err
		}
		return ValueFile{Value: fv}, nil
	default:
		inner, err := recordField(op, payload, "args", idl.KindVec)
		if err != nil {
			return nil, err
		}
		args, err := fromWireSlice(inner)
		if err != nil {
			return nil, err
		}
		return ArgsFile{Args: Args(args)}, nil
	}
}

func fromWireSlice(v idl.Value) (Vec, error) {
	out := make(Vec, len(v.Elems))
	for i, e := range v.Elems {
		c, err := FromWire(e)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func fieldFromWire(v idl.Value) (Field, error) {
	const op = "value.FromWire"
	wl, err := recordField(op, v, "id", idl.KindVariant)
	if err != nil {
		return Field{}, err
	}
	wv, err := recordField(op, v, "val", idl.KindVariant)
	if err != nil {
		return Field{}, err
	}
	tag, payload, err := tagName(wire.label, wl)
	if err != nil {
		return Field{}, errs.Codec(op, err)
	}
	var l Label
	switch tag {
	case "Named":
		l = NamedLabel(payload.Text)
	default:
		if payload.Int == nil || !payload.Int.IsUint64() || payload.Int.Uint64() > math.MaxUint32 {
			return Field{}, errs.Errorf(errs.KindCodec, op, "label id out of range")
		}
		if tag == "Id" {
			l = IDLabel(uint32(payload.Int.Uint64()))
		} else {
			l = UnnamedLabel(uint32(payload.Int.Uint64()))
		}
	}
	val, err := FromWire(wv)
	if err != nil {
		return Field{}, err
	}
	return Field{Label: l, Value: val}, nil
}
