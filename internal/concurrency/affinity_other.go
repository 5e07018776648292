// File: internal/concurrency/affinity_other.go
//go:build !linux
// +build !linux

package concurrency

import "github.com/momentics/hioload-aio/api"

func platformPin(int) error { return api.Wrap(api.ErrCodeNotSupported, "pin", nil) }

func platformUnpin() error { return nil }

// CurrentAffinity is not available on this platform.
func CurrentAffinity() ([]int, error) {
	return nil, api.Wrap(api.ErrCodeNotSupported, "affinity", nil)
}
