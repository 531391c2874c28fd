package idl

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/vk/caniput/internal/principal"
)

// ParseValue parses a single literal value, optionally annotated with a
// type: `record { name = "x"; 42 }`, `(5 : nat8)`, `opt vec { 1; 2 }`.
func ParseValue(src string) (Value, error) {
	p, err := newParser(src)
	if err != nil {
		return Value{}, err
	}
	v, err := p.annotatedValue()
	if err != nil {
		return Value{}, err
	}
	if err := p.expect(tokEOF); err != nil {
		return Value{}, err
	}
	return v, nil
}

// ParseArgs parses a parenthesised, comma-separated argument list such as
// `("alice", vec { 1; 2 })`. An empty list `()` is valid.
func ParseArgs(src string) ([]Value, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	args := []Value{}
	for p.peek().Type != tokRParen {
		v, err := p.annotatedValue()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		if !p.accept(tokComma) {
			break
		}
	}
	if err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return args, nil
}

// ParseType parses a type expression such as `opt vec record { a : nat8 }`.
func ParseType(src string) (*Type, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	t, err := p.typ()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return t, nil
}

type parser struct {
	toks  []token
	i     int
	depth int
}

func newParser(src string) (*parser, error) {
	toks, err := newLexer(src).tokens()
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(off int) token {
	if p.i+off < len(p.toks) {
		return p.toks[p.i+off]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.Type != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) accept(tt tokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

// enter guards recursion into a nested value or type. Callers pair it
// with a deferred leave.
func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf(p.peek(), "nesting deeper than %d levels", maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expect(tt tokenType) error {
	if t := p.peek(); t.Type != tt {
		return p.errorf(t, "expected %s, found %s", tt, describe(t))
	}
	p.advance()
	return nil
}

func describe(t token) string {
	switch t.Type {
	case tokIdent, tokNumber, tokFloat:
		return fmt.Sprintf("%s %q", t.Type, t.Lit)
	default:
		return t.Type.String()
	}
}

func (p *parser) annotatedValue() (Value, error) {
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	if !p.accept(tokColon) {
		return v, nil
	}
	at := p.peek()
	t, err := p.typ()
	if err != nil {
		return Value{}, err
	}
	out, err := Annotate(v, t)
	if err != nil {
		return Value{}, p.errorf(at, "%v", err)
	}
	return out, nil
}

func (p *parser) value() (Value, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	t := p.advance()
	switch t.Type {
	case tokLParen:
		v, err := p.annotatedValue()
		if err != nil {
			return Value{}, err
		}
		return v, p.expect(tokRParen)
	case tokNumber:
		return Number(t.Lit), nil
	case tokFloat:
		f, err := strconv.ParseFloat(t.Lit, 64)
		if err != nil {
			return Value{}, p.errorf(t, "invalid float %q", t.Lit)
		}
		return Float64(f), nil
	case tokText:
		if !utf8.ValidString(t.Lit) {
			return Value{}, p.errorf(t, "text literal is not valid UTF-8")
		}
		return Text(t.Lit), nil
	case tokIdent:
		return p.keywordValue(t)
	}
	return Value{}, p.errorf(t, "expected a value, found %s", describe(t))
}

func (p *parser) keywordValue(t token) (Value, error) {
	switch t.Lit {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return Null(), nil
	case "opt":
		inner, err := p.value()
		if err != nil {
			return Value{}, err
		}
		return Opt(inner), nil
	case "vec":
		return p.vecBody()
	case "blob":
		s := p.peek()
		if err := p.expect(tokText); err != nil {
			return Value{}, err
		}
		return Blob([]byte(s.Lit)), nil
	case "record":
		return p.recordBody()
	case "variant":
		return p.variantBody()
	case "principal", "service":
		s := p.peek()
		if err := p.expect(tokText); err != nil {
			return Value{}, err
		}
		pr, err := principal.FromText(s.Lit)
		if err != nil {
			return Value{}, p.errorf(s, "%v", err)
		}
		if t.Lit == "service" {
			return Service(pr), nil
		}
		return PrincipalVal(pr), nil
	case "func":
		s := p.peek()
		if err := p.expect(tokText); err != nil {
			return Value{}, err
		}
		pr, err := principal.FromText(s.Lit)
		if err != nil {
			return Value{}, p.errorf(s, "%v", err)
		}
		if err := p.expect(tokDot); err != nil {
			return Value{}, err
		}
		m := p.advance()
		if m.Type != tokIdent && m.Type != tokText {
			return Value{}, p.errorf(m, "expected method name, found %s", describe(m))
		}
		return Func(pr, m.Lit), nil
	}
	return Value{}, p.errorf(t, "unexpected identifier %q", t.Lit)
}

func (p *parser) vecBody() (Value, error) {
	if err := p.expect(tokLBrace); err != nil {
		return Value{}, err
	}
	elems := []Value{}
	for p.peek().Type != tokRBrace {
		v, err := p.annotatedValue()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
		if !p.accept(tokSemi) {
			break
		}
	}
	return Vec(elems...), p.expect(tokRBrace)
}

// fieldLabel consumes `label =` when present.
func (p *parser) fieldLabel(sep tokenType) (Label, bool, error) {
	t := p.peek()
	if p.peekAt(1).Type != sep {
		return Label{}, false, nil
	}
	switch t.Type {
	case tokIdent:
		p.advance()
		return NamedLabel(t.Lit), true, nil
	case tokText:
		p.advance()
		return NamedLabel(t.Lit), true, nil
	case tokNumber:
		p.advance()
		id, err := strconv.ParseUint(t.Lit, 10, 32)
		if err != nil {
			return Label{}, false, p.errorf(t, "field id %s is not a nat32", t.Lit)
		}
		return IDLabel(uint32(id)), true, nil
	}
	return Label{}, false, nil
}

func (p *parser) recordBody() (Value, error) {
	if err := p.expect(tokLBrace); err != nil {
		return Value{}, err
	}
	fields := []Field{}
	var position uint32
	for p.peek().Type != tokRBrace {
		label, named, err := p.fieldLabel(tokEquals)
		if err != nil {
			return Value{}, err
		}
		if named {
			p.advance()
		} else {
			label = UnnamedLabel(position)
			position++
		}
		v, err := p.annotatedValue()
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Label: label, Value: v})
		if !p.accept(tokSemi) {
			break
		}
	}
	return Record(fields...), p.expect(tokRBrace)
}

func (p *parser) variantBody() (Value, error) {
	if err := p.expect(tokLBrace); err != nil {
		return Value{}, err
	}
	var f Field
	label, named, err := p.fieldLabel(tokEquals)
	if err != nil {
		return Value{}, err
	}
	if named {
		p.advance()
		v, err := p.annotatedValue()
		if err != nil {
			return Value{}, err
		}
		f = Field{Label: label, Value: v}
	} else {
		t := p.advance()
		switch t.Type {
		case tokIdent, tokText:
			f = Field{Label: NamedLabel(t.Lit), Value: Null()}
		case tokNumber:
			id, err := strconv.ParseUint(t.Lit, 10, 32)
			if err != nil {
				return Value{}, p.errorf(t, "field id %s is not a nat32", t.Lit)
			}
			f = Field{Label: IDLabel(uint32(id)), Value: Null()}
		default:
			return Value{}, p.errorf(t, "expected a variant tag, found %s", describe(t))
		}
	}
	p.accept(tokSemi)
	return Variant(f), p.expect(tokRBrace)
}

func (p *parser) typ() (*Type, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	t := p.advance()
	if t.Type != tokIdent {
		return nil, p.errorf(t, "expected a type, found %s", describe(t))
	}
	if k, ok := primitiveKinds[t.Lit]; ok {
		return Prim(k), nil
	}
	switch t.Lit {
	case "opt", "vec":
		elem, err := p.typ()
		if err != nil {
			return nil, err
		}
		if t.Lit == "opt" {
			return OptOf(elem), nil
		}
		return VecOf(elem), nil
	case "blob":
		return VecOf(Prim(KindNat8)), nil
	case "record", "variant":
		return p.fieldTypes(t.Lit == "variant")
	case "service":
		if err := p.expect(tokLBrace); err != nil {
			return nil, err
		}
		return &Type{Kind: KindService}, p.expect(tokRBrace)
	}
	return nil, p.errorf(t, "unknown type %q", t.Lit)
}

func (p *parser) fieldTypes(variant bool) (*Type, error) {
	if err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	out := &Type{Kind: KindRecord}
	if variant {
		out.Kind = KindVariant
	}
	var position uint32
	for p.peek().Type != tokRBrace {
		label, named, err := p.fieldLabel(tokColon)
		if err != nil {
			return nil, err
		}
		var ft *Type
		switch {
		case named:
			p.advance()
			if ft, err = p.typ(); err != nil {
				return nil, err
			}
		case variant:
			// A bare tag: `variant { ok; err : text }`.
			tag := p.advance()
			if tag.Type != tokIdent && tag.Type != tokText {
				return nil, p.errorf(tag, "expected a variant tag, found %s", describe(tag))
			}
			label, ft = NamedLabel(tag.Lit), Prim(KindNull)
		default:
			label = UnnamedLabel(position)
			position++
			if ft, err = p.typ(); err != nil {
				return nil, err
			}
		}
		out.Fields = append(out.Fields, FieldType{Label: label, Type: ft})
		if !p.accept(tokSemi) {
			break
		}
	}
	return out, p.expect(tokRBrace)
}

// Annotate resolves an untyped value against a type: numbers take the
// annotated width, null under an opt type becomes an absent optional, and
// composite values are annotated element by element.
func Annotate(v Value, t *Type) (Value, error) {
	mismatch := fmt.Errorf("value of kind %s does not match type %s", v.Kind, t)
	switch t.Kind {
	case KindReserved:
		return Reserved(), nil
	case KindNat, KindInt, KindNat8, KindNat16, KindNat32, KindNat64, KindInt8, KindInt16, KindInt32, KindInt64:
		n, err := integerFor(t.Kind, v)
		if err != nil {
			return Value{}, err
		}
		return Integer(t.Kind, n), nil
	case KindFloat32, KindFloat64:
		f, err := floatFor(t.Kind, v)
		if err != nil {
			return Value{}, err
		}
		if t.Kind == KindFloat32 {
			if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
				return Value{}, fmt.Errorf("%v out of range for float32", f)
			}
			return Float32(float32(f)), nil
		}
		return Float64(f), nil
	case KindNull, KindBool, KindText, KindPrincipal:
		if v.Kind != t.Kind {
			return Value{}, mismatch
		}
		return v, nil
	case KindOpt:
		switch v.Kind {
		case KindNull, KindNone:
			return None(), nil
		case KindOpt:
			inner, err := Annotate(v.OptValue(), t.Elem)
			if err != nil {
				return Value{}, err
			}
			return Opt(inner), nil
		}
		return Value{}, mismatch
	case KindVec:
		if v.Kind != KindVec {
			return Value{}, mismatch
		}
		elems := make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			a, err := Annotate(e, t.Elem)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = a
		}
		return Vec(elems...), nil
	case KindRecord, KindVariant:
		if v.Kind != t.Kind {
			return Value{}, mismatch
		}
		fields := make([]Field, len(v.Fields))
		for i, f := range v.Fields {
			ft, ok := fieldType(t, f.Label)
			if !ok {
				return Value{}, fmt.Errorf("field %s is not in type %s", f.Label, t)
			}
			a, err := Annotate(f.Value, ft)
			if err != nil {
				return Value{}, fmt.Errorf("field %s: %w", f.Label, err)
			}
			fields[i] = Field{Label: f.Label, Value: a}
		}
		return Value{Kind: v.Kind, Fields: fields}, nil
	case KindService:
		if v.Kind != KindService && v.Kind != KindPrincipal {
			return Value{}, mismatch
		}
		return Service(v.Principal), nil
	}
	return Value{}, mismatch
}

func fieldType(t *Type, l Label) (*Type, bool) {
	id := l.WireID()
	for _, f := range t.Fields {
		if f.Label.WireID() == id {
			return f.Type, true
		}
	}
	return nil, false
}
