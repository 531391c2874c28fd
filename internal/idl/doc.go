// Package idl implements the typed-value interchange format caniput speaks
// with remote canisters: a human-readable literal syntax (ParseValue,
// ParseArgs), a type model (Type), and the DIDL binary encoding
// (EncodeArgs, DecodeArgs).
//
// Values produced here are "parsed" values: a flat tagged struct that mirrors
// the grammar and the wire format. Higher layers convert them into their own
// models rather than using them directly.
package idl
