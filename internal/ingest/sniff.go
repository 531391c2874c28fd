package ingest

import (
	"encoding/hex"
	"unicode/utf8"

	"github.com/vk/caniput/internal/idl"
	"github.com/vk/caniput/internal/value"
)

// Source names the rule that classified a file, for logs.
type Source string

const (
	SourceTextValue   Source = "text value"
	SourceTextArgs    Source = "text args"
	SourceHexArgs     Source = "hex args"
	SourceHexValue    Source = "hex value"
	SourceHexRaw      Source = "hex, uninterpreted"
	SourceText        Source = "text, uninterpreted"
	SourceBinaryValue Source = "binary value"
	SourceBinaryArgs  Source = "binary args"
	SourceBinaryRaw   Source = "binary, uninterpreted"
)

// TrimNewline removes one trailing "\n" and then, if present, one "\r".
// Anything else, including a lone trailing "\r", is kept.
func TrimNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s
	}
	s = s[:len(s)-1]
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}

// Sniff classifies file content. The first matching rule wins:
//
//	UTF-8 content, after TrimNewline:
//	  1. a single literal value          -> ValueFile
//	  2. a literal argument list         -> ArgsFile
//	  3. hex of a binary argument list   -> ArgsFile
//	  4. hex of a single binary value    -> ValueFile
//	  5. other hex                       -> BinaryFile (decoded bytes)
//	  6. anything else                   -> TextFile
//	other content:
//	  7. a single binary value           -> ValueFile
//	     a binary argument list          -> ArgsFile
//	     anything else                   -> BinaryFile (raw bytes)
//
// A single binary value is a well-formed message with exactly one argument,
// so every well-formed hex message is already taken by rule 3 and rule 4
// only remains for completeness.
//
// Rule 7 keeps every argument of a multi-argument binary message as an
// ArgsFile rather than reducing it to its first value, so no argument is
// dropped on the way to the replica.
func Sniff(data []byte) (value.File, Source) {
	if !utf8.Valid(data) {
		if args, ok := decodeArgs(data); ok {
			if len(args) == 1 {
				return value.ValueFile{Value: args[0]}, SourceBinaryValue
			}
			return value.ArgsFile{Args: args}, SourceBinaryArgs
		}
		return value.BinaryFile(data), SourceBinaryRaw
	}

	s := TrimNewline(string(data))
	if pv, err := idl.ParseValue(s); err == nil {
		if v, err := value.FromIDL(pv); err == nil {
			return value.ValueFile{Value: v}, SourceTextValue
		}
	}
	if pa, err := idl.ParseArgs(s); err == nil {
		if args, err := value.ArgsFromIDL(pa); err == nil {
			return value.ArgsFile{Args: args}, SourceTextArgs
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return value.TextFile(s), SourceText
	}
	if args, ok := decodeArgs(b); ok {
		return value.ArgsFile{Args: args}, SourceHexArgs
	}
	if v, ok := decodeValue(b); ok {
		return value.ValueFile{Value: v}, SourceHexValue
	}
	return value.BinaryFile(b), SourceHexRaw
}

func decodeArgs(b []byte) (value.Args, bool) {
	_, vals, err := idl.DecodeArgs(b)
	if err != nil {
		return nil, false
	}
	args, err := value.ArgsFromIDL(vals)
	if err != nil {
		return nil, false
	}
	return args, true
}

func decodeValue(b []byte) (value.Value, bool) {
	iv, err := idl.DecodeValue(b)
	if err != nil {
		return nil, false
	}
	v, err := value.FromIDL(iv)
	if err != nil {
		return nil, false
	}
	return v, true
}
