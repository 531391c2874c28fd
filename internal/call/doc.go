// Package call performs logical calls against a canister: it submits an
// encoded argument through a transport, retrying retryable failures with a
// fixed pause until a reply arrives or the policy's timeout runs out.
//
// Put is the one remote operation the tool knows. It ships a user name, a
// destination path and a list of values, and reports whether the canister
// stored them.
package call
