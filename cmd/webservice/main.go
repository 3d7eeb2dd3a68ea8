package main

import (
	"context"
	stlog "log"
	"time"

	"go-referral/analytics"
	"go-referral/auth"
	"go-referral/counter"
	"go-referral/log"
	"go-referral/metrics"
	"go-referral/payment/gateway"
	"go-referral/referral"
	"go-referral/utils"
	"go-referral/web/controllers"
	"go-referral/web/db"
	"go-referral/web/email"
	"go-referral/web/jobs"
	"go-referral/web/middleware"
	"go-referral/web/storage"

	"github.com/go-redis/redis/v8"
)

func openStore(cfg utils.Config, logger *log.Logger) db.Store {
	if cfg.DSN == "" {
		logger.Warn("DB not set, using the in-memory store")
		return db.NewMemoryStore()
	}
	if err := db.Connect(cfg.DSN); err != nil {
		stlog.Fatalln("Error connecting to db:", err)
	}
	if err := db.Sync(db.DB); err != nil {
		stlog.Fatalln("Error migrating db:", err)
	}
	return db.NewGormStore(db.DB)
}

func openCounters(cfg utils.Config, store db.Store, logger *log.Logger) counter.Counter {
	if cfg.RedisAddr == "" {
		return counter.NewStore(store)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, counters stay in the store")
		return counter.NewStore(store)
	}
	return counter.NewRedis(client, store)
}

func openEvents(cfg utils.Config, logger *log.Logger) analytics.Sink {
	sinks := analytics.Multi{analytics.NewLog(logger)}
	if cfg.NATSURL != "" {
		n, _, err := analytics.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("nats unreachable, analytics only logged")
		} else {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

func openGateway(cfg utils.Config) gateway.Gateway {
	if cfg.PaymentGateway == "http" {
		if cfg.PaymentServiceURL == "" {
			stlog.Fatalln("PAYMENT_SERVICE_URL is required with PAYMENT_GATEWAY=http")
		}
		g := gateway.NewHTTP(cfg.PaymentServiceURL)
		g.Timeout = cfg.PaymentTimeout
		return g
	}
	return gateway.NewSimulated(cfg.PaymentDelay)
}

func openMailer(logger *log.Logger) email.Sender {
	smtpCfg := email.ConfigFromEnv()
	if !smtpCfg.Complete() {
		logger.Warn("SMTP not configured, reset mails are kept in memory")
		return &email.Outbox{}
	}
	return email.NewSMTP(smtpCfg)
}

func main() {
	cfg := utils.LoadConfig()
	logger := log.New("webservice")
	if cfg.Secret == "" {
		stlog.Fatalln("SECRET is required")
	}

	store := openStore(cfg, logger)
	counters := openCounters(cfg, store, logger)
	events := openEvents(cfg, logger)
	m := metrics.New("referral")

	authSvc := auth.NewService(store, auth.Config{
		Secret:     cfg.Secret,
		CodePrefix: cfg.CodePrefix,
		ResetURL:   cfg.PublicURL + "/password/reset",
	}, openMailer(logger), events, logger)

	services := referral.New(referral.Deps{
		Store:    store,
		Counters: counters,
		Gateway:  openGateway(cfg),
		Objects:  storage.NewLocal(cfg.UploadDir, cfg.PublicURL+"/uploads"),
		Events:   events,
		Metrics:  m,
		Logger:   logger,
	})

	reconciler := jobs.NewReconciler(store, counters, logger)
	cron, err := jobs.Start(reconciler, cfg.ReconcileSchedule)
	if err != nil {
		stlog.Fatalln(err)
	}
	defer cron.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	limiter.StartCleanup(10 * time.Minute)

	r := controllers.Router(&controllers.Handler{
		Auth:         authSvc,
		Services:     services,
		Reconciler:   reconciler,
		Logger:       logger,
		UPIPayee:     cfg.UPIPayee,
		UPIPayeeName: cfg.UPIPayeeName,
	}, controllers.RouterConfig{
		AdminKey:  cfg.AdminKey,
		UploadDir: cfg.UploadDir,
		Metrics:   m,
		Limiter:   limiter,
	})

	logger.WithField("port", cfg.GinPort).Info("starting webservice")
	if err := r.Run(":" + cfg.GinPort); err != nil {
		stlog.Fatalln(err)
	}
}
