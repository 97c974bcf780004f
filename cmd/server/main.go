package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	modbilling "github.com/botframe/billingcore/modules/billing"
	"github.com/botframe/billingcore/pkg/automation"
	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/config"
	"github.com/botframe/billingcore/pkg/email"
	"github.com/botframe/billingcore/pkg/httpserver"
	"github.com/botframe/billingcore/pkg/logger"
	"github.com/botframe/billingcore/pkg/metrics"
	"github.com/botframe/billingcore/pkg/pg"
	"github.com/botframe/billingcore/pkg/redis"
)

type appConfig struct {
	Env             string `env:"APP_ENV" envDefault:"development"`
	TickToken       string `env:"AUTOMATION_TICK_TOKEN,required"`
	DefinitionsPath string `env:"AUTOMATION_DEFINITIONS_PATH"`
	OperatorWebhook string `env:"OPERATOR_WEBHOOK_URL"`
	DevEmailDir     string `env:"DEV_EMAIL_DIR" envDefault:"./tmp/outbox"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	var (
		appCfg     appConfig
		httpCfg    httpserver.Config
		pgCfg      pg.Config
		redisCfg   redis.Config
		emailCfg   email.Config
		paygateCfg billing.PaygateConfig
		lemonCfg   billing.LemonSqueezyConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&paygateCfg)
	config.MustLoad(&lemonCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Env, "billingcore"))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck

	// Billing: durable stores, provider API clients, the event service.
	store := billing.NewPGStore(pool)

	svcOpts := []billing.ServiceOption{billing.WithLogger(log)}
	if paygateCfg.APIKey != "" {
		client, err := billing.NewPaygateClient(paygateCfg)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, billing.WithProviderClient(billing.ProviderPaygate, client))
	}
	if lemonCfg.APIKey != "" {
		client, err := billing.NewLemonSqueezyClient(lemonCfg)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, billing.WithProviderClient(billing.ProviderLemonSqueezy, client))
	}
	svc := billing.NewService(store, store, store, svcOpts...)

	// Automation: definitions, executor collaborators, the engine.
	var sender email.EmailSender
	if emailCfg.PostmarkServerToken != "" {
		sender = email.MustNewPostmarkClient(emailCfg)
	} else {
		sender = email.NewDevSender(appCfg.DevEmailDir)
		log.Info("postmark not configured, writing email to disk",
			slog.String("dir", appCfg.DevEmailDir))
	}

	var operator automation.OperatorNotifier
	if appCfg.OperatorWebhook != "" {
		notifier, err := automation.NewWebhookNotifier(appCfg.OperatorWebhook)
		if err != nil {
			return err
		}
		operator = notifier
	}

	autoStore := automation.NewPGStore(pool)
	var defs automation.DefinitionStore = autoStore
	if appCfg.DefinitionsPath != "" {
		fileDefs, err := automation.LoadDefinitionsFile(appCfg.DefinitionsPath)
		if err != nil {
			return err
		}
		defs = automation.NewStaticDefinitionSource(fileDefs)
		log.Info("automation definitions loaded from file",
			slog.String("path", appCfg.DefinitionsPath),
			slog.Int("count", len(fileDefs)))
	}

	executor := automation.NewActionExecutor(sender, operator, store)
	engine := automation.NewEngine(defs, automation.NewPGAccountSource(pool), autoStore, executor,
		automation.WithReserver(automation.NewRedisReserver(redisClient, "")),
		automation.WithEngineLogger(log))

	// HTTP surface.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Mount("/billing", modbilling.Router(modbilling.RouterOptions{
		Paygate:      modbilling.NewPaygateWebhook(billing.NewPaygateVerifier(paygateCfg), svc, log),
		LemonSqueezy: modbilling.NewLemonWebhook(lemonCfg.WebhookSecret, svc, log),
		Manage:       modbilling.NewManageService(svc, headerAccountResolver, log),
		Tick:         modbilling.NewTickService(appCfg.TickToken, engine, log),
	}))

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("http server listening", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("http server stopped")
		}),
	)

	return srv.Run(ctx, r)
}

// headerAccountResolver trusts the X-Account-ID header set by the
// authenticating reverse proxy in front of this service.
func headerAccountResolver(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Account-ID")
	if raw == "" {
		return uuid.Nil, errors.New("missing account identity")
	}
	return uuid.Parse(raw)
}
