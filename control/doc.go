// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-aio.
//
// Provides concurrent-safe state handling primitives including:
//   - A dotted-key config store with YAML loading and typed decoding
//   - Reload listeners and SIGHUP driven hot reload
//   - A Prometheus backed reactor metrics sink
//   - Probe registration for state export
package control
