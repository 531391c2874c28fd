// Package app contains the core application logic. It defines the App
// struct, its configuration, and the put and inspect use cases, decoupled
// from any specific entrypoint like a CLI.
package app
