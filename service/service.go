package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/heptiolabs/healthcheck"
	"github.com/rs/zerolog"

	"github.com/timzifer/pharmadesk/basket"
	"github.com/timzifer/pharmadesk/config"
	"github.com/timzifer/pharmadesk/forms"
	"github.com/timzifer/pharmadesk/internal/logging"
	"github.com/timzifer/pharmadesk/pages"
	"github.com/timzifer/pharmadesk/remote"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
	"github.com/timzifer/pharmadesk/session"
	"github.com/timzifer/pharmadesk/telemetry"
)

// Sessions is what the service needs from the session store.
type Sessions interface {
	pages.SessionStore
	Current() (session.Session, bool)
}

// Option customises the service wiring.
type Option func(*options)

type options struct {
	backend   pages.Backend
	sessions  Sessions
	router    pages.Router
	notifier  pages.Notifier
	collector telemetry.Collector
}

// WithBackend replaces the REST client, mostly for tests.
func WithBackend(backend pages.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithSessions replaces the file backed session store.
func WithSessions(sessions Sessions) Option {
	return func(o *options) { o.sessions = sessions }
}

// WithRouter sets the navigation target of the pages.
func WithRouter(router pages.Router) Option {
	return func(o *options) { o.router = router }
}

// WithNotifier sets where page notifications go.
func WithNotifier(notifier pages.Notifier) Option {
	return func(o *options) { o.notifier = notifier }
}

// WithCollector overrides the telemetry collector chosen from config.
func WithCollector(collector telemetry.Collector) Option {
	return func(o *options) { o.collector = collector }
}

// Service wires configuration, the lifecycle store, the dispatcher and the
// backend client into the environment the pages run on.
type Service struct {
	cfg        *config.Config
	logger     zerolog.Logger
	store      *lifecycle.Store
	dispatcher *bridge.Dispatcher
	client     *remote.Client
	sessions   Sessions
	console    *Console
	env        *pages.Env
	activity   *activityTracker
	health     healthcheck.Handler
	telemetry  bool

	mu        sync.Mutex
	inspector *inspectorServer
	closeOnce sync.Once
}

// New builds a service from cfg.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	collector := o.collector
	if collector == nil {
		collector = telemetry.Noop()
		if cfg.Telemetry.Enabled {
			prom, err := telemetry.NewPrometheusCollector(nil)
			if err != nil {
				return nil, fmt.Errorf("telemetry: %w", err)
			}
			collector = prom
		}
	}

	sessions := o.sessions
	if sessions == nil {
		store, err := session.Open(cfg.SessionFile())
		if err != nil {
			return nil, err
		}
		sessions = store
	}

	svc := &Service{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		telemetry: cfg.Telemetry.Enabled,
	}

	backend := o.backend
	if backend == nil {
		clientOpts := []remote.Option{
			remote.WithMetrics(collector),
			remote.WithLogger(logging.Component(logger, "remote")),
		}
		if tokens, ok := sessions.(remote.TokenSource); ok {
			clientOpts = append(clientOpts, remote.WithTokenSource(tokens))
		}
		client, err := remote.New(cfg.Backend, clientOpts...)
		if err != nil {
			return nil, err
		}
		svc.client = client
		backend = client
	}

	validator, err := forms.New(cfg.Validation)
	if err != nil {
		return nil, err
	}

	svc.store = lifecycle.NewStore(lifecycle.WithObserver(collector))
	dispatcher, err := bridge.NewDispatcher(svc.store, logging.Component(logger, "dispatch"), bridge.Options{
		Workers:     cfg.Dispatch.Workers,
		CallTimeout: cfg.Dispatch.CallTimeout.Duration,
		InFlight:    collector,
	})
	if err != nil {
		svc.store.Close()
		return nil, err
	}
	svc.dispatcher = dispatcher

	ops := pages.NewOperations(backend)
	svc.store.Register(ops.Names()...)
	svc.activity = newActivityTracker(svc.store, defaultRecentTransitions)

	router, notifier := o.router, o.notifier
	if router == nil || notifier == nil {
		svc.console = NewConsole(os.Stdout, logger)
		if router == nil {
			router = svc.console
		}
		if notifier == nil {
			notifier = svc.console
		}
	}

	svc.env = &pages.Env{
		Dispatcher:       dispatcher,
		Ops:              ops,
		Basket:           basket.New(),
		Forms:            validator,
		Session:          sessions,
		Router:           router,
		Notifier:         notifier,
		Logger:           logging.Component(logger, "pages"),
		PageSize:         cfg.PageSize(),
		MedicinePageSize: cfg.MedicinePageSize(),
	}
	svc.health = svc.newHealth()
	return svc, nil
}

// Env returns the page environment.
func (s *Service) Env() *pages.Env { return s.env }

// Sessions returns the session store.
func (s *Service) Sessions() Sessions { return s.sessions }

// Config returns the active configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Await blocks until the named operation reaches a terminal state.
func (s *Service) Await(ctx context.Context, name string) (lifecycle.Record, error) {
	return s.dispatcher.Await(ctx, name)
}

func (s *Service) newHealth() healthcheck.Handler {
	health := healthcheck.NewHandler()
	if limit := s.cfg.Inspector.MaxGoroutines; limit > 0 {
		health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(limit))
	}
	health.AddReadinessCheck("lifecycle-store", func() error {
		if s.store.Closed() {
			return errors.New("lifecycle store closed")
		}
		return nil
	})
	if s.client == nil {
		return health
	}
	timeout := s.cfg.BackendTimeout()
	if path := strings.TrimLeft(strings.TrimSpace(s.cfg.Backend.HealthPath), "/"); path != "" {
		health.AddReadinessCheck("backend", healthcheck.HTTPGetCheck(s.client.BaseURL()+path, timeout))
		return health
	}
	if addr := dialAddress(s.client.BaseURL()); addr != "" {
		health.AddReadinessCheck("backend", healthcheck.TCPDialCheck(addr, timeout))
	}
	return health
}

func dialAddress(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	port := parsed.Port()
	if port == "" {
		port = "80"
		if parsed.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(parsed.Hostname(), port)
}

// StartInspector starts the HTTP inspector on the configured address.
func (s *Service) StartInspector() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspector != nil {
		return s.inspector.addr(), nil
	}
	srv, err := newInspectorServer(s.cfg.Inspector.Listen, s, logging.Component(s.logger, "inspector"))
	if err != nil {
		return "", fmt.Errorf("start inspector: %w", err)
	}
	s.inspector = srv
	return srv.addr(), nil
}

// Serve runs the inspector until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if _, err := s.StartInspector(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Close stops the inspector, the dispatcher and the store.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		srv := s.inspector
		s.inspector = nil
		s.mu.Unlock()
		srv.close()
		s.dispatcher.Close()
		s.store.Close()
		s.activity.close()
	})
}
