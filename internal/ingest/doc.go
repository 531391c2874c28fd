// Package ingest turns a filesystem path into a value.File tree.
//
// Directories become Directory nodes. Regular files are sniffed: a file
// holding a literal becomes a ValueFile, an argument list an ArgsFile,
// hex-encoded or raw binary messages are decoded, and anything else is kept
// as text or bytes. See Sniff for the precedence.
package ingest
