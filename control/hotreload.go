// control/hotreload.go
// Reloads a config file into a ConfigStore whenever the process receives
// SIGHUP. The signal wait runs on the reactor, so listeners fire on a
// reactor goroutine.

package control

import (
	"syscall"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/reactor"
	"go.uber.org/zap"
)

// HotReload owns the SIGHUP wait for one config file.
type HotReload struct {
	set  *reactor.SignalSet
	cs   *ConfigStore
	path string
	log  *zap.Logger
}

// WatchSIGHUP starts reloading path into cs on every SIGHUP. The pending
// signal wait keeps r's Run loop alive until Close.
func WatchSIGHUP(r *reactor.Reactor, cs *ConfigStore, path string) *HotReload {
	h := &HotReload{
		set:  reactor.NewSignalSet(r, syscall.SIGHUP),
		cs:   cs,
		path: path,
		log:  r.Logger().With(zap.String("config", path)),
	}
	h.arm()
	return h
}

func (h *HotReload) arm() {
	h.set.AsyncWait(func(c api.Completion) {
		if c.Err != nil {
			return
		}
		if err := h.cs.LoadFile(h.path); err != nil {
			h.log.Warn("config reload failed", zap.Error(err))
		} else {
			h.log.Info("config reloaded")
		}
		h.arm()
	})
}

// Close stops watching. The pending wait completes as cancelled.
func (h *HotReload) Close() error {
	return h.set.Close()
}
