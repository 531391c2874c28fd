package value

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/idl"
	"github.com/vk/caniput/internal/principal"
)

func TestFromIDL(t *testing.T) {
	anon := principal.Anonymous()
	tests := []struct {
		name string
		src  string
		want Value
	}{
		{"bool", "true", Bool(true)},
		{"null", "null", Null{}},
		{"text", `"hello"`, Text("hello")},
		{"number keeps digits", "00042", Number("00042")},
		{"float", "2.5", Float64(2.5)},
		{"none", "(null : opt text)", None{}},
		{"reserved", "(1 : reserved)", Reserved{}},
		{"nat8", "(255 : nat8)", Nat8(255)},
		{"int16", "(-3 : int16)", Int16(-3)},
		{"nat64", "(18446744073709551615 : nat64)", Nat64(18446744073709551615)},
		{"float32", "(0.5 : float32)", Float32(0.5)},
		{"nat", "(123456789012345678901234567890 : nat)", Nat{N: mustBig("123456789012345678901234567890")}},
		{"principal", `principal "2vxsx-fae"`, Principal{ID: anon}},
		{"service", `service "2vxsx-fae"`, Service{ID: anon}},
		{"func", `func "2vxsx-fae".get`, Func{Service: anon, Method: "get"}},
		{
			"nested opt vec record",
			`opt vec { record { name = "a"; 7 }; record { 1 = true } }`,
			Opt{Value: Vec{
				Record{
					{Label: NamedLabel("name"), Value: Text("a")},
					{Label: UnnamedLabel(0), Value: Number("7")},
				},
				Record{{Label: IDLabel(1), Value: Bool(true)}},
			}},
		},
		{
			"variant",
			`variant { err = vec {} }`,
			Variant{Field: Field{Label: NamedLabel("err"), Value: Vec{}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			parsed, err := idl.ParseValue(tc.src)
			require.NoError(t, err)

			// --- Act ---
			got, err := FromIDL(parsed)

			// --- Assert ---
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "want %s, got %s", Format(tc.want), Format(got))
		})
	}
}

func TestFromIDLCopiesBigIntegers(t *testing.T) {
	n := big.NewInt(41)
	got, err := FromIDL(idl.Value{Kind: idl.KindNat, Int: n})
	require.NoError(t, err)

	n.SetInt64(99)
	assert.Equal(t, int64(41), got.(Nat).N.Int64())
}

func TestFromIDLRejectsUnknownVariant(t *testing.T) {
	_, err := FromIDL(idl.Value{Kind: idl.KindEmpty})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnsupported))
	assert.Equal(t, errs.KindCodec, errs.KindOf(err))
}

func TestArgsFromIDL(t *testing.T) {
	parsed, err := idl.ParseArgs(`("a", opt 1)`)
	require.NoError(t, err)

	args, err := ArgsFromIDL(parsed)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.True(t, Equal(Text("a"), args[0]))
	assert.True(t, Equal(Opt{Value: Number("1")}, args[1]))
}

func TestToIDLInvertsFromIDL(t *testing.T) {
	src := `record { a = opt vec { (1 : nat8); (2 : nat8) }; b = variant { x = (-1 : int) }; "c d" = (1.5 : float32) }`
	parsed, err := idl.ParseValue(src)
	require.NoError(t, err)
	v, err := FromIDL(parsed)
	require.NoError(t, err)

	back, err := ToIDL(v)
	require.NoError(t, err)
	again, err := FromIDL(back)
	require.NoError(t, err)
	assert.True(t, Equal(v, again))

	_, err = ToIDL(FileValue{File: TextFile("x")})
	assert.True(t, errors.Is(err, errs.ErrUnsupported))
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return n
}
