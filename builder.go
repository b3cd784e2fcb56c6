package goSession

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/remote"
	"github.com/MrEthical07/goSession/rolegate"
	"github.com/MrEthical07/goSession/store"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Session]. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config

	caller     remote.Caller
	httpClient *http.Client
	store      store.Store
	redis      redis.UniversalClient

	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Remote.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Remote.BaseURL = baseURL
	return b
}

// WithCaller overrides the HTTP transport entirely. BaseURL and
// WithHTTPClient are ignored when a caller is set.
func (b *Builder) WithCaller(caller remote.Caller) *Builder {
	b.caller = caller
	return b
}

// WithHTTPClient sets the client used by the default HTTP caller.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithStore enables persistence backed by s.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	b.config.Persistence.Enabled = s != nil
	return b
}

// WithRedis enables persistence in Redis under Persistence.RedisKey.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	b.config.Persistence.Enabled = client != nil
	return b
}

// WithLogger sets the structured logger. The default discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithClock overrides time.Now. Used by tests to drive token expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready, unauthenticated
// Session. A Builder can be built only once.
func (b *Builder) Build() (*Session, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- TRANSPORT --------
	caller := b.caller
	if caller == nil {
		if cfg.Remote.BaseURL == "" {
			return nil, errors.New("Remote BaseURL or a caller is required")
		}
		opts := []remote.Option{
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithUserAgent(cfg.Remote.UserAgent),
		}
		if b.httpClient != nil {
			opts = append(opts, remote.WithHTTPClient(b.httpClient))
		}
		hc, err := remote.NewHTTPCaller(cfg.Remote.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		caller = hc
	}

	// -------- PERSISTENCE --------
	var st store.Store
	if cfg.Persistence.Enabled {
		switch {
		case b.store != nil:
			st = b.store
		case b.redis != nil:
			st = store.NewRedisStore(b.redis, cfg.Persistence.RedisKey, cfg.Persistence.RedisTTL)
		default:
			return nil, errors.New("Persistence requires a store or redis client")
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	expiry := flows.Expiry{
		Now:                 now,
		AccessTokenLifetime: cfg.Tokens.AccessTokenLifetime,
		HonorServerExpiry:   cfg.Tokens.HonorServerExpiry,
	}
	paths := cfg.Remote.Paths

	s := &Session{
		config: cloneConfig(cfg),
		store:  st,
		logger: logger,
		now:    now,
		flows: flows.Deps{
			Login: flows.LoginDeps{
				Caller: caller,
				Path:   paths.Login,
				Expiry: expiry,
			},
			Bootstrap: flows.BootstrapDeps{
				Caller:    caller,
				MePath:    paths.Me,
				RolesPath: paths.Roles,
			},
			SecondFactor: flows.SecondFactorDeps{
				Caller:              caller,
				Path:                paths.VerifySecondFactor,
				TOTPDigits:          cfg.SecondFactor.TOTPDigits,
				BackupCodeMaxLength: cfg.SecondFactor.BackupCodeMaxLength,
				Expiry:              expiry,
			},
			Refresh: flows.RefreshDeps{
				Caller: caller,
				Path:   paths.Refresh,
				Expiry: expiry,
			},
		},
		policy: rolegate.Policy{
			AdminRoles:     append([]string(nil), cfg.Roles.AdminRoles...),
			SuperAdminRole: cfg.Roles.SuperAdminRole,
		},
		subs: make(map[uint64]func(State)),
	}
	s.metrics = NewMetrics(cfg.Metrics)
	s.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        s.now,
	}, b.auditSink)

	b.built = true

	return s, nil
}
