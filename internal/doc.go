// Package internal groups implementation packages that are private to goGate.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - config: YAML file, environment and flag loading for the server
//   - flows: pure-function orchestrators for authorize, issue, refresh and logout
//   - rate: local fixed-window and Redis sliding-window limiters behind one interface
//   - blog: the demo blog API mounted behind the gate
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGate API.
//   - Be imported by any package outside the goGate module.
package internal
