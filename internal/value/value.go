package value

import (
	"math/big"

	"github.com/vk/caniput/internal/idl"
	"github.com/vk/caniput/internal/principal"
)

// Value is one node of a value tree. The set of implementations is closed.
type Value interface {
	isValue()
}

type (
	Bool     bool
	Text     string
	Null     struct{}
	Reserved struct{}
	// None is an absent optional.
	None    struct{}
	Float32 float32
	Float64 float64
	// Number is an integer literal whose width was never resolved. It keeps
	// the source digits.
	Number string

	// Opt is a present optional.
	Opt struct{ Value Value }
	// Vec is an ordered sequence; element homogeneity is not enforced.
	Vec    []Value
	Record []Field
	// Variant holds exactly one field.
	Variant struct{ Field Field }

	Principal struct{ ID principal.Principal }
	Service   struct{ ID principal.Principal }
	Func      struct {
		Service principal.Principal
		Method  string
	}

	Nat8  uint8
	Nat16 uint16
	Nat32 uint32
	Nat64 uint64
	Int8  int8
	Int16 int16
	Int32 int32
	Int64 int64
	// Nat and Int are unbounded. The pointer is never nil in a well-formed
	// tree and is not shared with the source the value was built from.
	Nat struct{ N *big.Int }
	Int struct{ N *big.Int }

	// FileValue embeds local filesystem structure in a value tree.
	FileValue struct{ File File }
)

func (Bool) isValue()      {}
func (Text) isValue()      {}
func (Null) isValue()      {}
func (Reserved) isValue()  {}
func (None) isValue()      {}
func (Float32) isValue()   {}
func (Float64) isValue()   {}
func (Number) isValue()    {}
func (Opt) isValue()       {}
func (Vec) isValue()       {}
func (Record) isValue()    {}
func (Variant) isValue()   {}
func (Principal) isValue() {}
func (Service) isValue()   {}
func (Func) isValue()      {}
func (Nat8) isValue()      {}
func (Nat16) isValue()     {}
func (Nat32) isValue()     {}
func (Nat64) isValue()     {}
func (Int8) isValue()      {}
func (Int16) isValue()     {}
func (Int32) isValue()     {}
func (Int64) isValue()     {}
func (Nat) isValue()       {}
func (Int) isValue()       {}
func (FileValue) isValue() {}

// Label names a record or variant field. Labels compare structurally: a
// named label and the numeric id of its hash are different labels.
type Label = idl.Label

var (
	IDLabel      = idl.IDLabel
	NamedLabel   = idl.NamedLabel
	UnnamedLabel = idl.UnnamedLabel
)

type Field struct {
	Label Label
	Value Value
}

// Args is an argument list.
type Args []Value

// File is one node of an ingested filesystem tree.
type File interface {
	isFile()
}

type (
	// Directory lists entries in the order the filesystem yielded them.
	Directory struct{ Entries []NameFile }
	// TextFile is UTF-8 content that is neither a literal nor hex.
	TextFile string
	// BinaryFile is raw or hex-decoded bytes with no interpretation.
	BinaryFile []byte
	ValueFile  struct{ Value Value }
	ArgsFile   struct{ Args Args }
)

func (Directory) isFile()  {}
func (TextFile) isFile()   {}
func (BinaryFile) isFile() {}
func (ValueFile) isFile()  {}
func (ArgsFile) isFile()   {}

type NameFile struct {
	Name string
	File File
}

// Kind names the variant of v for logs and tables.
func Kind(v Value) string {
	switch v := v.(type) {
	case Bool:
		return "bool"
	case Text:
		return "text"
	case Null:
		return "null"
	case Reserved:
		return "reserved"
	case None:
		return "none"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Number:
		return "number"
	case Opt:
		return "opt"
	case Vec:
		return "vec"
	case Record:
		return "record"
	case Variant:
		return "variant"
	case Principal:
		return "principal"
	case Service:
		return "service"
	case Func:
		return "func"
	case Nat8:
		return "nat8"
	case Nat16:
		return "nat16"
	case Nat32:
		return "nat32"
	case Nat64:
		return "nat64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Nat:
		return "nat"
	case Int:
		return "int"
	case FileValue:
		return "file:" + FileKind(v.File)
	case nil:
		return "nil"
	}
	return "unknown"
}

// FileKind names the variant of f.
func FileKind(f File) string {
	switch f.(type) {
	case Directory:
		return "directory"
	case TextFile:
		return "text"
	case BinaryFile:
		return "binary"
	case ValueFile:
		return "value"
	case ArgsFile:
		return "args"
	case nil:
		return "nil"
	}
	return "unknown"
}
