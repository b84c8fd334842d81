package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timeslot-service/internal/app"
	"timeslot-service/internal/availability"
	"timeslot-service/internal/catalog"
	"timeslot-service/internal/config"
	"timeslot-service/internal/events"
	"timeslot-service/internal/gcal"
	"timeslot-service/internal/logging"
	"timeslot-service/internal/rulecache"
	"timeslot-service/internal/server"
	"timeslot-service/internal/sheets"
	"timeslot-service/internal/store"
	"timeslot-service/internal/timezone"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	norm, err := timezone.New(cfg.SchedulingTimezone)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	rules, err := ruleSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defaults, _ := cfg.MeetingTypes()
	cat := catalog.New(rules,
		catalog.WithLogger(logger),
		catalog.WithLegacyPrefix(cfg.LegacyPrefixMatch),
		catalog.WithMeetingTypes(defaults))
	if err := cat.Load(ctx); err != nil {
		// Serve with the empty snapshot; an admin refresh can recover.
		logger.Error("initial rule load failed", zap.Error(err))
	}
	if cfg.RuleRefreshInterval > 0 {
		go cat.Watch(ctx, cfg.RuleRefreshInterval)
	}

	filterOpts := []availability.FilterOption{availability.WithLogger(logger)}
	if day, ok, _ := cfg.OverrideDay(); ok {
		filterOpts = append(filterOpts, availability.WithAlwaysAvailableDay(availability.WeekdayPolicy(day)))
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaBookingTopic)
	defer publisher.Close()
	if _, ok := publisher.(events.Nop); ok {
		logger.Warn("booking events disabled (no kafka brokers configured)")
	}

	a := app.New(app.App{
		Store:   db,
		Catalog: cat,
		Norm:    norm,
		Filter:  availability.NewFilter(norm, filterOpts...),
		Events:  publisher,
		Logger:  logger,
		OAuth:   app.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
	})
	if cfg.GoogleCredentialsFile != "" {
		src, err := gcal.NewSource(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCalendarID, norm, logger)
		if err != nil {
			return err
		}
		a.Calendar = src
	} else {
		logger.Warn("calendar sync disabled (GOOGLE_CREDENTIALS_FILE not set)")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// Forwarding headers are honoured only from these; none by default.
	if err := router.SetTrustedProxies(cfg.Proxies()); err != nil {
		return err
	}
	router.Use(app.Recovery(logger), app.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.Origins()),
		MaxAge:           12 * time.Hour,
	}))
	a.Routes(router, app.RouterOptions{
		JWTSecret:         cfg.JWTSecret,
		AdminTokens:       cfg.AdminTokens(),
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
	})

	return server.Run(ctx, router, cfg.AppPort, logger)
}

// ruleSource picks the spreadsheet when configured, otherwise the global
// meeting types alone, and puts the Redis snapshot cache in front when set.
func ruleSource(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.RuleSource, error) {
	var src catalog.RuleSource = catalog.StaticSource{}
	if cfg.RulesSpreadsheetID != "" {
		s, err := sheets.NewSource(ctx, cfg.GoogleCredentialsFile, cfg.RulesSpreadsheetID, cfg.RulesSheetRange, cfg.MeetingTypesSheetRange)
		if err != nil {
			return nil, err
		}
		src = s
	} else {
		logger.Warn("no rules spreadsheet configured; serving global meeting types only")
	}

	if cfg.RedisAddr == "" {
		return src, nil
	}
	rdb, err := rulecache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		// The cache is an optimisation for cold starts; run without it.
		logger.Warn("rule cache unavailable", zap.Error(err))
		return src, nil
	}
	return rulecache.New(src, rulecache.NewRedisStore(rdb, cfg.RuleCacheKey), logger), nil
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
