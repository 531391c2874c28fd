// Package value is the typed value model shipped by caniput: a closed,
// recursive tree of Candid-style values extended with a File arm that
// embeds local filesystem structure.
//
// Trees are built by the adapters in this package (FromIDL for literal and
// binary input, FromCty/ParseHCL for HCL expressions) and by the ingest
// package for filesystem input. They are immutable after construction.
package value
