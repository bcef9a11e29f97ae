package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ankandalui/med-ai-sub001/internal/config"
	"github.com/ankandalui/med-ai-sub001/internal/domain/aiproxy"
	"github.com/ankandalui/med-ai-sub001/internal/domain/assistant"
	"github.com/ankandalui/med-ai-sub001/internal/domain/documents"
	"github.com/ankandalui/med-ai-sub001/internal/domain/emergency"
	"github.com/ankandalui/med-ai-sub001/internal/domain/identity"
	"github.com/ankandalui/med-ai-sub001/internal/domain/monitoring"
	"github.com/ankandalui/med-ai-sub001/internal/domain/portal"
	"github.com/ankandalui/med-ai-sub001/internal/domain/records"
	"github.com/ankandalui/med-ai-sub001/internal/domain/reminders"
	"github.com/ankandalui/med-ai-sub001/internal/platform/auth"
	"github.com/ankandalui/med-ai-sub001/internal/platform/blobstore"
	"github.com/ankandalui/med-ai-sub001/internal/platform/cache"
	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/i18n"
	"github.com/ankandalui/med-ai-sub001/internal/platform/inference"
	"github.com/ankandalui/med-ai-sub001/internal/platform/llm"
	"github.com/ankandalui/med-ai-sub001/internal/platform/metrics"
	"github.com/ankandalui/med-ai-sub001/internal/platform/middleware"
	"github.com/ankandalui/med-ai-sub001/internal/platform/notification"
	"github.com/ankandalui/med-ai-sub001/internal/platform/phi"
	"github.com/ankandalui/med-ai-sub001/internal/platform/scheduler"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "medai-server",
		Short: "MedAI healthcare coordination API server",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, os.DirFS(dir)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, os.DirFS(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// newLogger writes JSON to stdout, or console output in development, and
// tees into a rotating file when LOG_FILE is set. The returned closer
// releases the file.
func newLogger(cfg *config.Config, stdout io.Writer) (zerolog.Logger, io.Closer) {
	var out io.Writer = stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	level := zerolog.InfoLevel
	if cfg.IsDev() {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// resolveJWTSecret returns the configured signing secret, or a random one
// when none is set. Tokens signed with a random secret do not survive a
// restart.
func resolveJWTSecret(secret string) ([]byte, bool, error) {
	if secret != "" {
		return []byte(secret), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random JWT secret: %w", err)
	}
	return key, true, nil
}

// newBlobStore selects the content store backend and fronts it with an LRU
// of fetched content.
func newBlobStore(ctx context.Context, cfg *config.Config, rec blobstore.CacheRecorder) (blobstore.Store, error) {
	var inner blobstore.Store
	switch cfg.BlobBackend {
	case "lighthouse":
		inner = blobstore.NewLighthouseStore(blobstore.LighthouseConfig{
			APIKey:  cfg.LighthouseAPIKey,
			Gateway: cfg.LighthouseGateway,
			Timeout: cfg.InferenceTimeout,
		})
	case "minio":
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		s, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			Gateway:   fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket),
		})
		if err != nil {
			return nil, err
		}
		inner = s
	default:
		inner = blobstore.NewMemoryStore(cfg.LighthouseGateway)
	}
	return blobstore.NewCachedStore(inner, 512, rec)
}

// newCache returns a redis-backed cache when a client is available and an
// in-process cache otherwise.
func newCache(client *redis.Client) cache.Cache {
	if client != nil {
		return cache.NewRedis(client, "medai:cache:")
	}
	return cache.NewLocal(cache.DefaultLocalConfig())
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logCloser := newLogger(cfg, os.Stdout)
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")
	tx := db.NewTransactor(pool)

	// Redis is optional; it backs the diagnosis cache and the auth limiter.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to redis")
	}

	m := metrics.New()

	secret, random, err := resolveJWTSecret(cfg.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve JWT secret")
	}
	if random {
		logger.Warn().Msg("JWT_SECRET is not set; using a random secret, sessions will not survive a restart")
	}
	tokens := auth.NewTokenIssuer(secret, cfg.JWTTTL)

	cipher, err := phi.FromHex(cfg.PHIEncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise PHI cipher")
	}

	store, err := newBlobStore(ctx, cfg, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise content store")
	}
	logger.Info().Str("backend", cfg.BlobBackend).Msg("content store ready")

	cacheStore := newCache(redisClient)
	defer cacheStore.Close()

	sender := notification.LogSender{Logger: logger}
	notifier := notification.NewManager(sender, sender, notification.NewTemplateEngine())

	translator, err := i18n.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load message catalogs")
	}

	openAI := llm.NewOpenAI(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.InferenceTimeout,
	}, m)

	// Domain services
	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewPatientRepoWithEncryption(pool, cipher),
		identity.NewHealthWorkerRepoPG(pool, cipher),
		identity.NewOTPRepoPG(pool),
		tokens,
		auth.OTPConfig{Bypass: cfg.OTPBypass, BypassCode: cfg.OTPBypassCode, TTL: cfg.OTPTTL},
		logger,
	)
	identitySvc.SetTransactor(tx)
	identitySvc.SetNotifier(notifier)

	people := &patientDirectory{svc: identitySvc}

	emergencySvc := emergency.NewService(emergency.NewAlertRepoPG(pool), logger)
	monitoringSvc := monitoring.NewService(monitoring.NewRepoPG(pool), people, logger)
	monitoringSvc.SetTransactor(tx)
	monitoringSvc.SetDispatcher(emergencySvc)
	monitoringSvc.SetNotifier(notifier, cfg.CriticalAlertEmail)
	emergencySvc.SetEscalation(tx, people, monitoringSvc)
	emergencySvc.SetNotifier(notifier)
	emergencySvc.SetRecorder(m)

	remindersSvc := reminders.NewService(reminders.NewRepoPG(pool), logger)
	remindersSvc.SetNotifier(notifier)

	documentsSvc := documents.NewService(documents.NewRepoPG(pool), store, logger)
	documentsSvc.SetPatientResolver(identitySvc)

	recordsSvc := records.NewService(records.NewRecordRepoPG(pool), records.NewEmergencyInfoRepoPG(pool), logger)
	recordsSvc.SetStore(store)
	recordsSvc.SetDirectory(&recordDirectory{svc: identitySvc})
	recordsSvc.SetSources(records.Sources{
		Monitoring:  monitoringSvc,
		Emergencies: emergencySvc,
		Reminders:   remindersSvc,
		Documents:   documentsSvc,
	})
	identitySvc.SetRecordSource(recordsSvc)

	portalSvc := portal.NewService(logger)

	aiSvc := aiproxy.NewService(
		inference.NewClassifier(cfg.PredictionAPIURL, cfg.InferenceTimeout, m),
		inference.NewSymptomModel(cfg.SymptomAPIURL, cfg.InferenceTimeout, m),
		logger,
	)
	aiSvc.SetCache(cacheStore, cfg.CacheTTL, m)

	assistantSvc := assistant.NewService(translator, logger)

	if openAI != nil {
		aiSvc.SetLLM(openAI)
		assistantSvc.SetLLM(openAI)
	} else {
		logger.Info().Msg("OPENAI_API_KEY not set; voice assistant uses keyword routing")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpx.ErrorHandler(logger, !cfg.IsProduction())

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", "12M"))
	e.Use(middleware.Metrics(m))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"version":       "0.1.0",
			"notifications": notifier.Stats(),
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api", auth.OptionalJWT(tokens), middleware.RateLimit(rateLimitCfg))

	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create auth limiter store")
	}
	authLimit, err := middleware.FixedWindowLimit(cfg.AuthRateLimit, limiterStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid AUTH_RATE_LIMIT")
	}
	authGroup := api.Group("/auth", authLimit)

	identity.NewHandler(identitySvc).RegisterRoutes(api, authGroup)
	emergency.NewHandler(emergencySvc).RegisterRoutes(api, nil)
	monitoring.NewHandler(monitoringSvc).RegisterRoutes(api, nil)
	records.NewHandler(recordsSvc, tokens).RegisterRoutes(api, nil)
	reminders.NewHandler(remindersSvc).RegisterRoutes(api, nil)
	documents.NewHandler(documentsSvc).RegisterRoutes(api, nil)
	portal.NewHandler(portalSvc).RegisterRoutes(api, nil)
	aiproxy.NewHandler(aiSvc).RegisterRoutes(api, nil)
	assistant.NewHandler(assistantSvc).RegisterRoutes(api, nil)

	// Background jobs
	sched := scheduler.New(logger, scheduler.WithRecorder(m), scheduler.WithTimeout(time.Minute))
	if err := sched.Add("reminder_dispatch", cfg.ReminderCron, func(ctx context.Context) error {
		n, err := remindersSvc.DispatchDue(ctx)
		if n > 0 {
			logger.Info().Int("count", n).Msg("dispatched due reminders")
		}
		return err
	}); err != nil {
		logger.Fatal().Err(err).Msg("invalid REMINDER_CRON")
	}
	if err := sched.Add("otp_purge", cfg.OTPCleanupCron, identitySvc.PurgeExpiredOTPs); err != nil {
		logger.Fatal().Err(err).Msg("invalid OTP_CLEANUP_CRON")
	}
	if err := sched.Add("notification_retry", "@every 5m", func(ctx context.Context) error {
		n, err := notifier.RetryFailed(ctx)
		if n > 0 {
			logger.Info().Int("count", n).Msg("re-sent failed notifications")
		}
		return err
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule notification retry")
	}
	sched.Start()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scheduler did not stop cleanly")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
