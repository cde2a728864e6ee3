// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	kitchenapp "github.com/alchemorsel/chefnano/internal/application/kitchen"
	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/infrastructure/ai/gemini"
	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/alchemorsel/chefnano/internal/infrastructure/export"
	"github.com/alchemorsel/chefnano/internal/infrastructure/http/webserver"
	"github.com/alchemorsel/chefnano/internal/infrastructure/monitoring"
	"github.com/alchemorsel/chefnano/internal/infrastructure/persistence/memory"
	redisrepo "github.com/alchemorsel/chefnano/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/chefnano/internal/ports/inbound"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
	"github.com/alchemorsel/chefnano/pkg/healthcheck"
	"github.com/alchemorsel/chefnano/pkg/logger"
)

// ConfigPath is the configuration file handed to config.Load; empty
// means the default search paths.
type ConfigPath string

// Options builds the server application for the given config file.
func Options(configPath string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(configPath)),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		CoreModule,
		ServerModule,
	)
}

// CoreModule provides everything the kitchen use cases need, without
// the HTTP server. The CLI runs on this module alone.
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	ObservabilityModule,
	StateModule,
	AIModule,
	ExportModule,
	ServiceModule,
)

// ServerModule adds the web server and its lifecycle.
var ServerModule = fx.Options(
	HealthModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging and live log level reload
var LoggerModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
			var outputs []string
			if cfg.App.LogOutput != "" {
				outputs = []string{cfg.App.LogOutput}
			}
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
				OutputPaths: outputs,
			})
		},
	),
	fx.Invoke(WatchLogLevel),
)

// WatchLogLevel applies app.log_level edits of the config file while running.
func WatchLogLevel(cfg *config.Config, level zap.AtomicLevel, log *zap.Logger) {
	watching := cfg.OnChange(func(next *config.Config) {
		newLevel := logger.ParseLevel(next.App.LogLevel)
		if newLevel == level.Level() {
			return
		}
		level.SetLevel(newLevel)
		log.Info("Log level changed", zap.String("level", newLevel.String()))
	}, func(err error) {
		log.Warn("Ignoring invalid configuration change", zap.Error(err))
	})
	if watching {
		log.Debug("Watching configuration file for changes")
	}
}

// ObservabilityModule provides metrics and tracing
var ObservabilityModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(m *monitoring.MetricsCollector) outbound.KitchenMetrics {
		return m
	},
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(monitoring.TracingConfig{
			ServiceName:    "chefnano",
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// StateModule provides the session state repository
var StateModule = fx.Provide(NewStateRepository)

// NewStateRepository selects the state store named by state.store.
func NewStateRepository(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
) (outbound.StateRepository, error) {
	repoConfig := outbound.StateRepositoryConfig{
		TTL:         cfg.State.TTL,
		MaxSessions: cfg.State.MaxSessions,
		KeyPrefix:   cfg.State.KeyPrefix,
	}

	switch cfg.State.Store {
	case "memory":
		log.Info("Using in-memory session state",
			zap.Int("max_sessions", cfg.State.MaxSessions),
			zap.Duration("ttl", cfg.State.TTL),
		)
		repo := memory.NewStateRepository(repoConfig, log)
		return monitoring.InstrumentStateRepository("memory", repo, metrics), nil

	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{cfg.Redis.Addr()},
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.Database,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
		})
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
				}
				log.Info("Connected to Redis session state", zap.String("addr", cfg.Redis.Addr()))
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		repo := redisrepo.NewStateRepository(client, repoConfig, log)
		return monitoring.InstrumentStateRepository("redis", repo, metrics), nil

	default:
		return nil, fmt.Errorf("unknown state store %q", cfg.State.Store)
	}
}

// AIModule provides the Gemini gateway
var AIModule = fx.Provide(
	NewGeminiClient,
	func(c *gemini.Client) outbound.KitchenAI {
		return c
	},
)

// NewGeminiClient creates the gateway. The API key is resolved per call.
func NewGeminiClient(
	cfg *config.Config,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
) *gemini.Client {
	httpClient := &http.Client{}
	if cfg.Monitoring.EnableTracing {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	if cfg.AI.ResolveAPIKey() == "" {
		log.Warn("No Gemini API key configured; recipe requests will fail until one is set")
	}

	return gemini.NewClient(gemini.Config{
		TextModel:  cfg.AI.TextModel,
		ImageModel: cfg.AI.ImageModel,
		BaseURL:    cfg.AI.BaseURL,
		Locale:     kitchen.ParseLocale(cfg.App.Locale),
	}, cfg.AI.ResolveAPIKey, httpClient, log, metrics, tracing)
}

// ExportModule provides the configured image sharers
var ExportModule = fx.Provide(NewImageSharers)

// NewImageSharers returns the sharers tried before a plain download, in
// order: bucket, then local directory.
func NewImageSharers(cfg *config.Config, log *zap.Logger) ([]outbound.ImageSharer, error) {
	var sharers []outbound.ImageSharer

	if s3 := cfg.Export.S3; s3.Bucket != "" {
		sharer, err := export.NewS3Sharer(export.S3Config{
			Bucket:          s3.Bucket,
			Region:          s3.Region,
			Endpoint:        s3.Endpoint,
			Prefix:          s3.Prefix,
			ForcePathStyle:  s3.ForcePathStyle,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 sharer: %w", err)
		}
		sharers = append(sharers, sharer)
	}

	if cfg.Export.LocalDir != "" {
		sharers = append(sharers, export.NewDirectorySharer(cfg.Export.LocalDir, log))
	}

	names := make([]string, 0, len(sharers))
	for _, s := range sharers {
		names = append(names, s.Name())
	}
	log.Info("Image save capabilities", zap.Strings("sharers", append(names, "download")))

	return sharers, nil
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	NewKitchenService,
	func(s *kitchenapp.Service) inbound.KitchenService {
		return s
	},
)

// NewKitchenService creates the kitchen use cases and waits for their
// background requests on shutdown.
func NewKitchenService(
	lc fx.Lifecycle,
	cfg *config.Config,
	states outbound.StateRepository,
	ai outbound.KitchenAI,
	sharers []outbound.ImageSharer,
	metrics outbound.KitchenMetrics,
	tracing *monitoring.TracingProvider,
	log *zap.Logger,
) *kitchenapp.Service {
	svc := kitchenapp.NewService(states, ai, sharers, metrics, kitchenapp.Config{
		FolderURL:      cfg.Export.FolderURL,
		BannerDuration: cfg.Export.BannerDuration,
		RequestTimeout: cfg.AI.RequestTimeout,
	}, log, kitchenapp.WithTracer(tracing))
	lc.Append(fx.Hook{OnStop: svc.Close})
	return svc
}

// HealthModule provides the health check registry
var HealthModule = fx.Provide(NewHealthCheck)

// NewHealthCheck registers the state store and AI gateway checks. A
// missing API key degrades the service without making it unready.
func NewHealthCheck(
	cfg *config.Config,
	log *zap.Logger,
	states outbound.StateRepository,
	ai *gemini.Client,
) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)

	hc.Register("state_store", healthcheck.NewPingChecker(states, map[string]interface{}{
		"store": cfg.State.Store,
	}))
	hc.Register("gemini", healthcheck.NewCustomChecker(func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		metadata := map[string]interface{}{
			"text_model":  cfg.AI.TextModel,
			"image_model": cfg.AI.ImageModel,
		}
		if err := ai.HealthCheck(ctx); err != nil {
			return healthcheck.StatusDegraded, err.Error(), metadata
		}
		return healthcheck.StatusHealthy, "API key configured", metadata
	}))

	return hc
}

// HTTPModule provides the web server
var HTTPModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*webserver.SessionManager, error) {
		return webserver.NewSessionManager(cfg.Session, log)
	},
	webserver.NewWebServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

// RegisterLifecycleHooks starts and stops the web server. Binding happens
// in OnStart so a busy port fails startup instead of a background goroutine.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Chef Nano",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("state_store", cfg.State.Store),
			)

			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.ListenAddr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr(), err)
			}

			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Chef Nano")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
