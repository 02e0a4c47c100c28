package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/common"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/auth"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/config"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/geo"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/handlers/api"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/mail"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/middlewares"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/ratelimit"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/security"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/store"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/users"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/storage/redis/v3"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
	gitTag    string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "tuning-portal - security event pipeline and auth API for the Tuning Portal"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
		{
			Name:   "migrate",
			Usage:  "Create or update the database schema",
			Action: migrate,
		},
		{
			Name:   "sweep",
			Usage:  "Purge expired security events and resolved alerts once",
			Action: sweep,
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustLoadConfig(ctx *cli.Context) *config.Config {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		log.Fatalf("Could not load config file: %v", err)
	}
	mustInitLogger(cfg.Debug || ctx.IsSet(debugFlag.Name))
	return cfg
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(dbConfig.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbConfig.Replicas))
		for _, dsn := range dbConfig.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if err := db.Use(resolver); err != nil {
			slog.Error("Failed to register read replicas", "error", err)
			os.Exit(1)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to access database pool", "error", err)
		os.Exit(1)
	}
	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(dbConfig.ConnMaxIdleTime) * time.Second)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Second)
	}
	return db
}

func mustMigrate(db *gorm.DB) {
	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
}

func mustInitMailSender(mailCfg config.MailConfig) mail.MailSender {
	switch mailCfg.Backend {
	case config.MailBackendSMTP:
		sender, err := mail.NewSMTPMailSender(mailCfg.SMTP, mailCfg.From)
		if err != nil {
			log.Fatalf("Failed to initialize smtp mail sender: %v", err)
		}
		return sender
	case config.MailBackendLog:
		return mail.LogMailSender{}
	}
	log.Fatalf("Unsupported mail sender backend %s", mailCfg.Backend)
	return nil
}

func mustInitLocator(geoCfg config.GeolocationConfig) geo.Locator {
	switch geoCfg.Provider {
	case "":
		return nil
	case "ipapi":
		return geo.NewIPAPILocator(geoCfg.BaseURL, geoCfg.Timeout)
	}
	log.Fatalf("Unsupported geolocation provider %s", geoCfg.Provider)
	return nil
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

// initLimiter builds the limiter for one purpose. Sweepers of process-local
// backends run until ctx is done.
func initLimiter(ctx context.Context, cfg config.RateLimitConfig, rule config.RateLimitRule, purpose string, db *gorm.DB, storage store.Storage) ratelimit.Limiter {
	opts := ratelimit.Options{Limit: rule.Limit, Window: rule.Window}
	switch cfg.Backend {
	case config.RateLimitBackendRedis:
		return ratelimit.NewStoreLimiter(storage, purpose, opts)
	case config.RateLimitBackendDatabase:
		limiter := ratelimit.NewDBLimiter(db, purpose, opts)
		go limiter.Run(ctx)
		return limiter
	default:
		limiter := ratelimit.NewMemoryLimiter(opts)
		go limiter.Run(ctx)
		return limiter
	}
}

func newRetentionSweeper(db *gorm.DB) *security.RetentionSweeper {
	return security.NewRetentionSweeper(security.NewEventRepository(db), security.NewAlertRepository(db))
}

func migrate(ctx *cli.Context) error {
	cfg := mustLoadConfig(ctx)
	db := mustInitDatabase(cfg.MySQL)
	mustMigrate(db)
	slog.Info("Database schema is up to date")
	return nil
}

func sweep(ctx *cli.Context) error {
	cfg := mustLoadConfig(ctx)
	db := mustInitDatabase(cfg.MySQL)
	result, err := newRetentionSweeper(db).Sweep(ctx.Context)
	if err != nil {
		return err
	}
	slog.Info("Retention sweep finished", "events", result.EventsDeleted, "alerts", result.AlertsDeleted)
	return nil
}

func run(ctx *cli.Context) error {
	config := mustLoadConfig(ctx)

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := mustInitDatabase(config.MySQL)
	mustMigrate(db)

	readinessChecks := map[string]common.ReadinessCheck{
		"mysql": common.DatabaseCheck(db),
	}
	var cacheStorage store.Storage
	if config.Redis.URL != "" {
		redisStorage := mustInitRedisStorage(config.Redis)
		defer redisStorage.Close()
		cacheStorage = store.NewRedisStorage(redisStorage.Conn())
		readinessChecks["redis"] = common.RedisCheck(redisStorage.Conn())
	} else {
		memoryStorage := store.NewMemoryStorage(time.Minute)
		defer memoryStorage.Close()
		cacheStorage = memoryStorage
	}

	notifier := mail.NewAlertNotifier(mustInitMailSender(config.Mail), config.SiteName, config.Mail.AlertRecipients)
	defer notifier.Wait()

	// repositories
	var (
		userRepo     = users.NewUserRepository(db)
		eventRepo    = security.NewEventRepository(db)
		alertRepo    = security.NewAlertRepository(db)
		locationRepo = security.NewLocationRepository(db)
	)

	// services
	var (
		userService     = users.NewUserService(userRepo)
		tokenService    = auth.NewTokenService(config.JWTSecret, config.TokenExpiry, cacheStorage)
		securityService = security.NewSecurityService(eventRepo, alertRepo, locationRepo, mustInitLocator(config.Geolocation), notifier)
		monitor         = security.NewMonitor(securityService, userService)
		reporter        = security.NewReporter(eventRepo, alertRepo)
		sweeper         = security.NewRetentionSweeper(eventRepo, alertRepo)
	)

	if !config.Retention.Disabled {
		scheduler := cron.New(cron.WithLocation(time.UTC))
		if _, err := sweeper.Schedule(runCtx, scheduler, config.Retention.Schedule); err != nil {
			slog.Error("Invalid retention schedule", "schedule", config.Retention.Schedule, "error", err)
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		JSONEncoder:   json.Marshal,
		JSONDecoder:   json.Unmarshal,
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(requestid.New())
	router.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(config.AllowOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api.SetupRoutes(router, api.RouterConfig{
		UserService:     userService,
		TokenService:    tokenService,
		Monitor:         monitor,
		Reporter:        reporter,
		LoginLimiter:    initLimiter(runCtx, config.RateLimit, config.RateLimit.Login, api.PurposeLogin, db, cacheStorage),
		RegisterLimiter: initLimiter(runCtx, config.RateLimit, config.RateLimit.Register, api.PurposeRegister, db, cacheStorage),
		APILimiter:      initLimiter(runCtx, config.RateLimit, config.RateLimit.API, api.PurposeAPI, db, cacheStorage),
	})

	go func() {
		if err := common.StartHealthCheckServer(runCtx, config.HealthAddr, readinessChecks); err != nil {
			slog.Error("Health check server stopped", "error", err)
		}
	}()
	go func() {
		<-runCtx.Done()
		if err := router.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Failed to shut down server", "error", err)
		}
	}()

	slog.Info("Starting server", "version", params.VersionWithCommit(gitCommit, gitDate), "addr", config.ListenAddr)
	return router.Listen(config.ListenAddr)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
