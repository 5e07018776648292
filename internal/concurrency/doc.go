// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker goroutines that drive a reactor, with optional CPU pinning of the
// underlying OS threads.
package concurrency
