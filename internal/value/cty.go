package value

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/caniput/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

// FromCty converts an evaluated HCL value. The adapter is partial: it covers
// the value shapes an HCL literal can produce and rejects everything else
// (unknown values, capsules) as an unsupported conversion.
//
// Integral numbers become Number so that their width is resolved the same
// way as literal input; fractional numbers become Float64. Objects and maps
// become records with named labels in key order.
func FromCty(v cty.Value) (Value, error) {
	const op = "value.FromCty"
	if v.IsMarked() {
		v, _ = v.Unmark()
	}
	if !v.IsKnown() {
		return nil, errs.Unsupported(op, "unsupported conversion of unknown %s value", v.Type().FriendlyName())
	}
	if v.IsNull() {
		return Null{}, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return Bool(v.True()), nil
	case ty == cty.String:
		return Text(v.AsString()), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(nil)
			return Number(i.String()), nil
		}
		f, _ := bf.Float64()
		return Float64(f), nil
	case ty.IsTupleType(), ty.IsListType(), ty.IsSetType():
		out := make(Vec, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			c, err := FromCty(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case ty.IsObjectType(), ty.IsMapType():
		m := v.AsValueMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Record, 0, len(keys))
		for _, k := range keys {
			c, err := FromCty(m[k])
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Label: NamedLabel(k), Value: c})
		}
		return out, nil
	}
	return nil, errs.Unsupported(op, "unsupported conversion of %s value", ty.FriendlyName())
}

// ParseHCL parses text as a single HCL expression, evaluates it without
// variables or functions and converts the result with FromCty.
func ParseHCL(text string) (Value, error) {
	const op = "value.ParseHCL"
	expr, diags := hclsyntax.ParseExpression([]byte(text), "<literal>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errs.Codec(op, diags)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, errs.Codec(op, diags)
	}
	return FromCty(v)
}
