// Package errs defines the closed set of failure kinds that every layer of
// caniput reports: codec, transport, local I/O, identity and internal
// channel hand-off failures. Callers classify errors with errors.Is against
// the exported markers or with KindOf.
package errs
