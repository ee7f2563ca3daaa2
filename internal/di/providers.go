package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	domrepo "AgriPrice/internal/domain/repository"
	"AgriPrice/internal/handler/api"
	"AgriPrice/internal/handler/ws"
	internalrepo "AgriPrice/internal/repository"
	"AgriPrice/internal/service/ratelimit"
	"AgriPrice/internal/services/dataset"
	"AgriPrice/internal/services/llm"
	"AgriPrice/internal/services/narrative"
	"AgriPrice/internal/services/nlu"
	"AgriPrice/internal/usecase"
	"AgriPrice/pkg/cache"
	pkgch "AgriPrice/pkg/clickhouse"
	"AgriPrice/pkg/config"
	xhttp "AgriPrice/pkg/http"
	"AgriPrice/pkg/http/middleware"
	pkgkafka "AgriPrice/pkg/kafka"
	applogger "AgriPrice/pkg/logger"
	"AgriPrice/pkg/metrics"
	"AgriPrice/pkg/server"
)

// InstanceID tells replicas apart on the refresh topic.
type InstanceID string

const setupTimeout = 10 * time.Second

func ProvideInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry returns a private registry with the Go and process collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideCache builds the answer cache. An unreachable Redis degrades to memory.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	memory := func() cache.Service {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryTTL(cfg.Cache.TTL),
		)
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.Noop{}, func() {}, nil
	case "memory":
		return memory(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPoolSize(cfg.Redis.PoolSize),
		cache.WithRedisPrefix(cfg.Cache.Prefix),
	)
	if err != nil {
		l.Warn("redis unavailable, using memory cache",
			applogger.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
			applogger.Error(err))
		return memory(), func() {}, nil
	}

	var svc cache.Service = rc
	if cfg.Cache.Backend == "layered" {
		svc = cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
			cache.WithLayeredL1TTL(cfg.Cache.TTL/2),
		)
	}
	cleanup := func() {
		if err := svc.Close(); err != nil {
			l.Warn("cache close failed", applogger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// ProvideRowSource opens the configured dataset source.
func ProvideRowSource(cfg *config.Config, l *applogger.Logger) (domrepo.RowSource, func(), error) {
	ds := cfg.Dataset
	switch ds.Source {
	case "file":
		return internalrepo.NewFileSource(ds.Path,
			internalrepo.WithSheet(ds.Sheet),
			internalrepo.WithEncoding(ds.Encoding),
		), func() {}, nil

	case "http":
		client := xhttp.NewClient(
			xhttp.WithTimeout(ds.FetchTimeout),
			xhttp.WithUserAgent("agriprice/1.0"),
		)
		return internalrepo.NewHTTPSource(client, ds.URL, nil), func() {}, nil

	case "sqlite":
		dsn := ds.DSN
		if dsn == "" {
			dsn = ds.Path
		}
		src, err := internalrepo.OpenSQLite(dsn, ds.Table)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		if err := src.EnsureSchema(ctx); err != nil {
			_ = src.Close()
			return nil, nil, fmt.Errorf("sqlite schema: %w", err)
		}
		cleanup := func() {
			if err := src.Close(); err != nil {
				l.Warn("sqlite close failed", applogger.Error(err))
			}
		}
		return src, cleanup, nil

	case "clickhouse":
		ch := cfg.ClickHouse
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(ch.Host, ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		src, err := internalrepo.NewClickHouseSource(client, ds.Table, l)
		if err == nil {
			err = src.EnsureSchema(ctx)
		}
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse source: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close failed", applogger.Error(err))
			}
		}
		return src, cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown dataset source %q", ds.Source)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := p.Close(); err != nil {
			l.Warn("kafka producer close failed", applogger.Error(err))
		}
	}
	return p, cleanup, nil
}

// ProvideAuditPublisher falls back to the log when there is no producer.
func ProvideAuditPublisher(cfg *config.Config, p *pkgkafka.Producer, l *applogger.Logger) domrepo.AuditPublisher {
	if p == nil {
		return internalrepo.NewLogAuditPublisher(l)
	}
	return internalrepo.NewKafkaPublisher(p, cfg.Kafka.AuditTopic, cfg.Kafka.RefreshTopic)
}

// ProvideRefreshPublisher returns nil when there is nothing to broadcast to.
func ProvideRefreshPublisher(cfg *config.Config, p *pkgkafka.Producer) domrepo.RefreshPublisher {
	if p == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(p, cfg.Kafka.AuditTopic, cfg.Kafka.RefreshTopic)
}

// ProvideGenerator returns nil unless the LLM is enabled and keyed.
func ProvideGenerator(cfg *config.Config, l *applogger.Logger) (llm.Generator, error) {
	if !cfg.LLM.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	g, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		Attempts:    cfg.LLM.Attempts,
		Temperature: cfg.LLM.Temperature,
	})
	if errors.Is(err, llm.ErrDisabled) {
		l.Warn("llm enabled without api key, using rules only")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return g, nil
}

func ProvideAskService(
	cfg *config.Config,
	holder *dataset.Holder,
	gen llm.Generator,
	c cache.Service,
	audit domrepo.AuditPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.AskService {
	rules := nlu.NewRuleOracle()
	tmpl := narrative.NewTemplateNarrator()
	deps := usecase.AskDeps{
		Holder:   holder,
		Rules:    rules,
		Narrator: tmpl,
		Cache:    c,
		CacheTTL: cfg.Cache.TTL,
		Audit:    audit,
		Metrics:  m,
		Logger:   l,
	}
	if gen != nil {
		deps.LLMOracle = nlu.NewLLMOracle(gen, rules, l)
		if cfg.LLM.Narrate {
			deps.LLMNarrator = narrative.NewLLMNarrator(gen, tmpl, l)
		}
	}
	return usecase.NewAskService(deps)
}

// ProvideLimiter returns nil when rate limiting is off.
func ProvideLimiter(cfg *config.Config) middleware.Allower {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

func ProvideRefreshScheduler(cfg *config.Config, r *usecase.Refresher, l *applogger.Logger) (*usecase.RefreshScheduler, error) {
	return usecase.NewRefreshScheduler(cfg.Dataset.RefreshCron, r, cfg.Dataset.FetchTimeout+30*time.Second, l)
}

// ProvideKafkaConsumer subscribes to the refresh topic. Every replica gets
// its own group so each one reloads.
func ProvideKafkaConsumer(
	cfg *config.Config,
	id InstanceID,
	r *usecase.Refresher,
	m domrepo.Metrics,
	reg *prometheus.Registry,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID+"-"+string(id)),
		pkgkafka.WithConsumerStartLatest(),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.RetryMax, 200*time.Millisecond, 5*time.Second),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	c.RegisterHandler(usecase.NewKafkaRefreshHandler(cfg.Kafka.RefreshTopic, string(id), r, m))
	return c, nil
}

func ProvideHandlers(
	cfg *config.Config,
	id InstanceID,
	svc *usecase.AskService,
	r *usecase.Refresher,
	pub domrepo.RefreshPublisher,
	limiter middleware.Allower,
	l *applogger.Logger,
) []xhttp.Handler {
	opts := []api.AskHandlerOption{api.WithAdminToken(cfg.Server.AdminToken)}
	if limiter != nil {
		opts = append(opts, api.WithRateLimit(limiter))
	}
	if pub != nil {
		opts = append(opts, api.WithRefreshBroadcast(pub, string(id)))
	}
	return []xhttp.Handler{
		api.NewAskHandler(l, svc, r, opts...),
		ws.NewAskHandler(l, svc, limiter, cfg.Server.CORSOrigins),
	}
}

func ProvideHTTPServer(
	cfg *config.Config,
	handlers []xhttp.Handler,
	holder *dataset.Holder,
	reg *prometheus.Registry,
	l *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithLogger(l),
		xhttp.WithHealth(func(context.Context) error {
			if holder.Current() == nil {
				return errors.New("dataset not loaded")
			}
			return nil
		}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithRegistry(reg), xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(handlers, opts...)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	r *usecase.Refresher,
	sched *usecase.RefreshScheduler,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, srv, r, sched, consumer)
	if producer != nil {
		app.ShipLogs(producer, cfg.Kafka.LogsTopic)
	}
	return app
}
