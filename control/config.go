// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with YAML loading, typed decoding and
// reload propagation.

package control

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/momentics/hioload-aio/api"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config is the typed view of a ConfigStore.
type Config struct {
	Workers        int            `mapstructure:"workers"`
	CPUAffinity    bool           `mapstructure:"cpu_affinity"`
	PollBatch      int            `mapstructure:"poll_batch"`
	LogLevel       string         `mapstructure:"log_level"`
	LogDevelopment bool           `mapstructure:"log_development"`
	Resolver       ResolverConfig `mapstructure:"resolver"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
}

// ResolverConfig selects and tunes the naming backend. With no servers the
// platform resolver is used.
type ResolverConfig struct {
	Servers   []string      `mapstructure:"servers"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MetricsConfig names the Prometheus namespace.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// DefaultConfig returns the values used for keys a store does not set.
func DefaultConfig() Config {
	return Config{
		Workers:   1,
		PollBatch: 128,
		LogLevel:  "info",
		Resolver: ResolverConfig{
			CacheSize: 1024,
			CacheTTL:  time.Minute,
			Timeout:   5 * time.Second,
		},
		Metrics: MetricsConfig{Namespace: "hioload_aio"},
	}
}

// Validate rejects values the runtime cannot honour.
func (c Config) Validate() error {
	switch {
	case c.Workers < 1:
		return invalidConfig("workers", c.Workers)
	case c.PollBatch < 1:
		return invalidConfig("poll_batch", c.PollBatch)
	case c.Resolver.CacheSize < 0:
		return invalidConfig("resolver.cache_size", c.Resolver.CacheSize)
	case c.Resolver.Timeout < 0:
		return invalidConfig("resolver.timeout", c.Resolver.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return invalidConfig("log_level", c.LogLevel)
	}
	return nil
}

func invalidConfig(key string, v any) error {
	return api.NewError(api.ErrCodeInvalidValue, "invalid config value").
		WithContext("key", key).WithContext("value", v)
}

// ConfigStore is a dotted-key map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// Get returns the value stored under a dotted key.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values and notifies listeners. Nested maps are
// flattened into dotted keys.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	flat := make(map[string]any, len(newCfg))
	for k, v := range newCfg {
		flatten(flat, k, v)
	}
	cs.mu.Lock()
	for k, v := range flat {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers a listener called after every SetConfig.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// LoadYAML merges a YAML document into the store.
func (cs *ConfigStore) LoadYAML(b []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return api.Wrap(api.ErrCodeInvalidValue, "config_yaml", err)
	}
	cs.SetConfig(doc)
	return nil
}

// LoadFile merges the YAML file at path into the store.
func (cs *ConfigStore) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return api.Wrap(api.ErrCodeOS, "config_read", err).WithContext("path", path)
	}
	return cs.LoadYAML(b)
}

// Decode overlays the stored values on DefaultConfig and validates the
// result. Durations accept Go syntax ("250ms") and lists accept a comma
// separated string.
func (cs *ConfigStore) Decode() (Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, api.Wrap(api.ErrCodeInvalidValue, "config_decode", err)
	}
	if err := dec.Decode(nest(cs.GetSnapshot())); err != nil {
		return Config{}, api.Wrap(api.ErrCodeInvalidValue, "config_decode", err)
	}
	return cfg, cfg.Validate()
}

// flatten stores v under key, descending into maps. yaml.v2 produces
// map[interface{}]interface{} for nested mappings.
func flatten(dst map[string]any, key string, v any) {
	switch m := v.(type) {
	case map[string]any:
		for k, sub := range m {
			flatten(dst, key+"."+k, sub)
		}
	case map[any]any:
		for k, sub := range m {
			flatten(dst, key+"."+fmt.Sprint(k), sub)
		}
	default:
		dst[key] = v
	}
}

// nest rebuilds the nested form mapstructure decodes from.
func nest(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		parts := strings.Split(k, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			sub, ok := m[p].(map[string]any)
			if !ok {
				sub = make(map[string]any)
				m[p] = sub
			}
			m = sub
		}
		m[parts[len(parts)-1]] = v
	}
	return out
}
