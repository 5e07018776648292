// File: internal/concurrency/affinity_linux.go
//go:build linux
// +build linux

package concurrency

import (
	"github.com/momentics/hioload-aio/api"
	"golang.org/x/sys/unix"
)

// platformPin binds the current thread (tid 0) to a single CPU.
func platformPin(cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.Wrap(api.ErrCodeOS, "sched_setaffinity", err).WithContext("cpu", cpu)
	}
	return nil
}

// platformUnpin restores every CPU the process may run on.
func platformUnpin() error {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(unix.Getpid(), &set); err != nil {
		return api.Wrap(api.ErrCodeOS, "sched_getaffinity", err)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.Wrap(api.ErrCodeOS, "sched_setaffinity", err)
	}
	return nil
}

// CurrentAffinity lists the CPUs the calling thread may run on.
func CurrentAffinity() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, api.Wrap(api.ErrCodeOS, "sched_getaffinity", err)
	}
	var cpus []int
	for i := 0; len(cpus) < set.Count(); i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
