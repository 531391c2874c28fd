// Package cli builds the cobra command tree. It turns flags, the optional
// configuration file and built-in defaults into an app.Config, runs the
// chosen use case and maps outcomes onto ExitError codes.
package cli
