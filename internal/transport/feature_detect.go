// File: internal/transport/feature_detect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Advertises the detected capabilities of the platform transport.

package transport

import (
	"runtime"
	"sync"

	"github.com/momentics/hioload-aio/ip"
)

var (
	featuresOnce sync.Once
	features     Features
)

// DetectFeatures probes the platform once and caches the answer.
func DetectFeatures() Features {
	featuresOnce.Do(func() {
		features = Features{
			Supported:   platformSupported,
			EdgePolling: platformSupported,
			OS:          runtime.GOOS,
		}
		if platformSupported {
			features.PingSockets = probe(ip.ICMPv4())
		}
	})
	return features
}

// probe reports whether an unprivileged handle for d can be allocated.
func probe(d ip.Descriptor) bool {
	fd, err := Socket(d)
	if err != nil {
		return false
	}
	_ = Close(fd)
	return true
}
