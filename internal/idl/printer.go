package idl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format renders v in literal syntax. Values carrying a width (nat8, int32,
// float32 ...) are printed with an annotation so that ParseValue(Format(v))
// yields v again.
func Format(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

// FormatArgs renders an argument list as `(a, b)`.
func FormatArgs(vals []Value) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeValue(&sb, v)
	}
	sb.WriteByte(')')
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value) {
	switch v.Kind {
	case KindNull:
		sb.WriteString("null")
	case KindReserved:
		sb.WriteString("(null : reserved)")
	case KindNone:
		sb.WriteString("(null : opt empty)")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case KindNumber:
		sb.WriteString(v.Text)
	case KindNat, KindInt, KindNat8, KindNat16, KindNat32, KindNat64, KindInt8, KindInt16, KindInt32, KindInt64:
		fmt.Fprintf(sb, "(%s : %s)", v.Int, v.Kind)
	case KindFloat32:
		fmt.Fprintf(sb, "(%s : float32)", formatFloat(v.Float, 32))
	case KindFloat64:
		sb.WriteString(formatFloat(v.Float, 64))
	case KindText:
		writeText(sb, v.Text)
	case KindOpt:
		sb.WriteString("opt ")
		writeValue(sb, v.OptValue())
	case KindVec:
		if b, ok := v.Bytes(); ok && len(b) > 0 {
			sb.WriteString("blob ")
			writeText(sb, string(b))
			return
		}
		sb.WriteString("vec {")
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			writeValue(sb, e)
		}
		sb.WriteString(" }")
	case KindRecord:
		sb.WriteString("record {")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			writeField(sb, f)
		}
		sb.WriteString(" }")
	case KindVariant:
		sb.WriteString("variant { ")
		writeField(sb, v.VariantField())
		sb.WriteString(" }")
	case KindPrincipal:
		fmt.Fprintf(sb, "principal %q", v.Principal)
	case KindService:
		fmt.Fprintf(sb, "service %q", v.Principal)
	case KindFunc:
		fmt.Fprintf(sb, "func %q.", v.Principal)
		if isIdent(v.Text) && !isKeyword(v.Text) {
			sb.WriteString(v.Text)
		} else {
			writeText(sb, v.Text)
		}
	default:
		fmt.Fprintf(sb, "<%s>", v.Kind)
	}
}

func writeField(sb *strings.Builder, f Field) {
	if f.Label.Kind != LabelUnnamed {
		sb.WriteString(f.Label.String())
		sb.WriteString(" = ")
	}
	writeValue(sb, f.Value)
}

func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// writeText quotes s using only escapes the lexer understands.
func writeText(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(sb, "\\%02x", s[i])
		case r == '"' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(sb, "\\%02x", r)
		default:
			sb.WriteRune(r)
		}
		i += size
	}
	sb.WriteByte('"')
}
