// File: ip/hostname.go
// Author: momentics <momentics@gmail.com>

package ip

import (
	"os"

	"github.com/momentics/hioload-aio/api"
)

var hostnameFunc = os.Hostname

// HostName returns the local host name as reported by the OS.
func HostName() (string, error) {
	name, err := hostnameFunc()
	if err != nil {
		return "", &api.ResolutionError{Kind: api.ResolutionNotFound, Query: "hostname", Err: err}
	}
	if name == "" {
		return "", &api.ResolutionError{Kind: api.ResolutionNotFound, Query: "hostname"}
	}
	return name, nil
}
