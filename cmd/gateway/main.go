package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/config"
	cronrunner "ipmarket/internal/cron"
	"ipmarket/internal/db"
	"ipmarket/internal/handler"
	"ipmarket/internal/logger"
	"ipmarket/internal/notify"
	gormrepository "ipmarket/internal/repository/gorm"
	"ipmarket/internal/service"
	"ipmarket/internal/session"
	"ipmarket/internal/workflow"

	_ "ipmarket/docs"
)

func main() {
	cfgPath := os.Getenv("IPM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("IPM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	tokenLedger := chain.NewTokenLedgerClient(&http.Client{Timeout: cfg.TokenLedger.Timeout}, cfg.TokenLedger.BaseURL)
	paymentLedger := chain.NewPaymentLedgerClient(&http.Client{Timeout: cfg.PaymentLedger.Timeout}, cfg.PaymentLedger.BaseURL)
	registry := chain.NewRegistryClient(&http.Client{Timeout: cfg.Registry.Timeout}, cfg.Registry.BaseURL)

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	recorder := &workflow.Recorder{Repo: store, Logger: logger}
	listingWf := &workflow.ListingWorkflow{
		Ledger:      tokenLedger,
		Registry:    registry,
		Spender:     cfg.Marketplace.Spender,
		ApprovalTTL: cfg.Marketplace.ApprovalTTL,
		Runs:        recorder,
		Repo:        store,
		Logger:      logger,
	}
	unlistingWf := &workflow.UnlistingWorkflow{
		Ledger:   tokenLedger,
		Registry: registry,
		Spender:  cfg.Marketplace.Spender,
		Runs:     recorder,
		Repo:     store,
		Logger:   logger,
	}
	purchaseWf := &workflow.PurchaseWorkflow{
		Payment:  paymentLedger,
		Registry: registry,
		Spender:  cfg.Marketplace.Spender,
		Runs:     recorder,
		Repo:     store,
		Logger:   logger,
	}
	deletionWf := &workflow.DeletionWorkflow{
		Ledger:   tokenLedger,
		Registry: registry,
		Runs:     recorder,
		Repo:     store,
		Logger:   logger,
	}

	syncSvc := &service.ListingSyncService{
		Repo:     store,
		Registry: registry,
		Logger:   logger,
		Flags:    settingsSvc,
	}
	reconcileSvc := &service.ReconcileService{
		Repo:   store,
		Ledger: tokenLedger,
		Config: cfg.Reconcile,
		Logger: logger,
		Flags:  settingsSvc,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(session.RequireSessionMiddleware())

	notifyClient := initNotifyClient(cfg.Notify, logger)
	if notifyClient != nil {
		notifyClient.Enabled = func(ctx context.Context) bool {
			return settingsSvc.IsEnabled(ctx, service.FeatureNotifications, false)
		}
	}
	engine.Use(notify.InjectClientMiddleware(notifyClient))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, StartedAt: time.Now().UTC()}
	healthHandler.Register(engine)
	listingsHandler := &handler.ListingsHandler{Repo: store, Sync: syncSvc}
	listingsHandler.Register(engine)
	workflowsHandler := &handler.WorkflowsHandler{
		Listing:   listingWf,
		Unlisting: unlistingWf,
		Purchase:  purchaseWf,
		Deletion:  deletionWf,
		Ledger:    tokenLedger,
	}
	workflowsHandler.Register(engine)
	runsHandler := &handler.RunsHandler{Repo: store}
	runsHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseCtx := ctx
	if notifyClient != nil {
		baseCtx = notify.WithClient(ctx, notifyClient)
	}

	cronRunner := cronrunner.New(logger, baseCtx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.ListingSync, func(ctx context.Context) {
			result, err := syncSvc.SyncIfEnabled(ctx, service.SyncOptions{
				Limit:    cfg.ListingSync.PageLimit,
				MaxPages: cfg.ListingSync.MaxPages,
				Resume:   cfg.ListingSync.Resume,
			})
			if err != nil {
				logger.Warn("cron listing sync failed", zap.Error(err))
				return
			}
			logger.Info("cron listing sync ok",
				zap.Int("pages", result.Pages),
				zap.Int("listings", result.Listings),
				zap.Int64("staled", result.Staled),
			)
		})
		if err != nil {
			logger.Warn("cron register listing sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Reconcile.Enabled {
		go func() {
			if err := reconcileSvc.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reconciler stopped", zap.Error(err))
			}
		}()
	}

	if cfg.RegistryStream.URL != "" {
		streamSvc := &service.RegistryStreamService{
			Repo: store,
			Stream: chain.NewEventStream(chain.EventStreamOptions{
				URL:    cfg.RegistryStream.URL,
				Logger: logger,
			}),
			Logger: logger,
			Flags:  settingsSvc,
		}
		go func() {
			if err := streamSvc.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("registry stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Caller-Principal")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func initNotifyClient(cfg config.NotifyConfig, logger *zap.Logger) *notify.Client {
	base := strings.TrimSpace(cfg.BaseURL)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if base == "" || apiKey == "" {
		return nil
	}

	n := &notify.Client{BaseURL: base, APIKey: apiKey}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := n.Login(ctx); err != nil {
		if logger != nil {
			logger.Warn("notify login failed (notifications disabled)", zap.Error(err))
		}
		return nil
	}
	if logger != nil {
		logger.Info("notify login ok")
	}
	return n
}
