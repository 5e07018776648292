// File: facade/service.go
// Unified facade layer for hioload-aio.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Service aggregates the runtime pieces an application needs behind one
// value: configuration, logger, metrics, a reactor, the worker goroutines
// that drive it, and the naming backend resolvers share. Everything is
// built from a control.ConfigStore.

package facade

import (
	"context"
	"sync"

	"github.com/momentics/hioload-aio/control"
	"github.com/momentics/hioload-aio/internal/concurrency"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"github.com/momentics/hioload-aio/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Option customises New.
type Option func(*settings)

type settings struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	reactor  []reactor.Option
}

// WithLogger uses l instead of building a logger from config. The
// log_level key then has no effect.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithRegistry registers metrics in reg rather than a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *settings) { s.registry = reg }
}

// WithReactorOptions passes extra options to reactor.New.
func WithReactorOptions(opts ...reactor.Option) Option {
	return func(s *settings) { s.reactor = append(s.reactor, opts...) }
}

// Service is the main facade type.
type Service struct {
	store   *control.ConfigStore
	cfg     control.Config
	level   zap.AtomicLevel
	log     *zap.Logger
	metrics *control.Metrics
	probes  *control.DebugProbes
	reactor *reactor.Reactor
	workers *concurrency.WorkerGroup
	backend resolver.Backend

	mu      sync.Mutex
	started bool
	reload  *control.HotReload
}

// New decodes store and constructs every component. Nothing runs until
// Start.
func New(store *control.ConfigStore, opts ...Option) (*Service, error) {
	if store == nil {
		store = control.NewConfigStore()
	}
	var st settings
	for _, opt := range opts {
		opt(&st)
	}
	cfg, err := store.Decode()
	if err != nil {
		return nil, err
	}

	s := &Service{store: store, cfg: cfg}
	if st.logger != nil {
		s.log = st.logger
		s.level = zap.NewAtomicLevelAt(st.logger.Level())
	} else {
		s.log, s.level, err = NewLogger(cfg)
		if err != nil {
			return nil, err
		}
	}

	if s.metrics, err = control.NewMetrics(cfg.Metrics.Namespace, st.registry); err != nil {
		return nil, err
	}
	ropts := append([]reactor.Option{
		reactor.WithLogger(s.log),
		reactor.WithMetrics(s.metrics),
		reactor.WithBatch(cfg.PollBatch),
	}, st.reactor...)
	if s.reactor, err = reactor.New(ropts...); err != nil {
		return nil, err
	}
	if s.backend, err = newBackend(cfg.Resolver, s.log); err != nil {
		return nil, multierr.Append(err, s.reactor.Close())
	}
	s.workers = concurrency.NewWorkerGroup(s.reactor, cfg.Workers, cfg.CPUAffinity)

	s.probes = control.NewDebugProbes()
	s.probes.RegisterReactor(s.reactor)
	s.probes.RegisterMetrics(s.metrics)
	s.probes.RegisterProbe("workers", func() any { return s.workers.Stats() })
	control.RegisterPlatformProbes(s.probes)

	store.OnReload(s.applyReload)
	return s, nil
}

func newBackend(rc control.ResolverConfig, log *zap.Logger) (resolver.Backend, error) {
	var b resolver.Backend = resolver.NewSystemBackend()
	if len(rc.Servers) > 0 {
		dnsb, err := resolver.NewDNSBackend(rc.Servers, rc.Timeout, log.Named("dns"))
		if err != nil {
			return nil, err
		}
		b = dnsb
	}
	if rc.CacheSize > 0 {
		b = resolver.NewCachingBackend(b, rc.CacheSize, rc.CacheTTL)
	}
	return b, nil
}

// applyReload picks up the settings that can change at runtime: the log
// level. Worker count and backends keep their startup values.
func (s *Service) applyReload() {
	cfg, err := s.store.Decode()
	if err != nil {
		s.log.Warn("ignoring invalid config reload", zap.Error(err))
		return
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		s.level.SetLevel(lvl.Level())
	}
	s.mu.Lock()
	s.cfg.LogLevel = cfg.LogLevel
	s.mu.Unlock()
}

// Start launches the worker goroutines. Subsequent calls have no effect.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.workers.Start(ctx)
	s.started = true
	s.log.Info("service started", zap.String("reactor", s.reactor.ID()), zap.Int("workers", s.cfg.Workers))
	return nil
}

// WatchConfig reloads path into the config store on every SIGHUP until
// Shutdown.
func (s *Service) WatchConfig(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reload != nil {
		_ = s.reload.Close()
	}
	s.reload = control.WatchSIGHUP(s.reactor, s.store, path)
}

// Stop halts the workers. Pending operations stay queued.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	return s.workers.Stop()
}

// Shutdown stops the workers, cancels every pending operation, closes the
// reactor and flushes the logger.
func (s *Service) Shutdown() error {
	err := s.Stop()
	s.mu.Lock()
	if s.reload != nil {
		err = multierr.Append(err, s.reload.Close())
		s.reload = nil
	}
	s.mu.Unlock()
	err = multierr.Append(err, s.reactor.Close())
	_ = s.log.Sync()
	return err
}

// Config returns the decoded configuration.
func (s *Service) Config() control.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Store returns the config store the service was built from.
func (s *Service) Store() *control.ConfigStore { return s.store }

func (s *Service) Logger() *zap.Logger { return s.log }

func (s *Service) Reactor() *reactor.Reactor { return s.reactor }

func (s *Service) Metrics() *control.Metrics { return s.metrics }

func (s *Service) Probes() *control.DebugProbes { return s.probes }

func (s *Service) Backend() resolver.Backend { return s.backend }

// NewResolver returns a resolver for P sharing the service's backend,
// logger and timeout.
func NewResolver[P ip.Protocol[P]](s *Service) *resolver.Resolver[P] {
	return resolver.New[P](s.reactor,
		resolver.WithBackend(s.backend),
		resolver.WithTimeout(s.cfg.Resolver.Timeout),
		resolver.WithLogger(s.log.Named("resolver")),
	)
}
