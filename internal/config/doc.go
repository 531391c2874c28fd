// Package config reads the optional caniput configuration file. The file
// may be written in HCL (caniput.hcl) or TOML (caniput.toml); both decode
// into the same format-agnostic File model through a Loader chosen by the
// file's extension.
//
// Every field is optional. Unset fields leave the built-in defaults alone
// and command-line flags override whatever the file sets.
package config
