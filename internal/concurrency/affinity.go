// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform CPU affinity management.

package concurrency

import (
	"runtime"
)

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}

// PreferredCPUID spreads worker i over the available CPUs.
func PreferredCPUID(worker int) int {
	if worker < 0 {
		return 0
	}
	return worker % NumCPUs()
}

// PinCurrentThread locks the calling goroutine to its OS thread and binds
// that thread to cpu. The goroutine stays locked even if binding fails.
func PinCurrentThread(cpu int) error {
	runtime.LockOSThread()
	return platformPin(cpu)
}

// UnpinCurrentThread clears the affinity set by PinCurrentThread and
// unlocks the OS thread.
func UnpinCurrentThread() error {
	defer runtime.UnlockOSThread()
	return platformUnpin()
}
