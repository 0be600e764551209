// Package flows contains pure-function orchestrators for every Gate operation.
//
// Each flow function (RunAuthorize, RunIssue, RunRefresh, RunLogout) accepts a
// typed dependency struct and returns a classified result. The root gate maps
// results to sentinel errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token manager and the session store.
// They do NOT own either resource; ownership stays with the Gate.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goGate (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
