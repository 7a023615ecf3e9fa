package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/TPI-Manager/TPI-Manager/api/swagger"
	"github.com/TPI-Manager/TPI-Manager/internal/handler"
	"github.com/TPI-Manager/TPI-Manager/internal/middleware"
	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	"github.com/TPI-Manager/TPI-Manager/internal/service"
	"github.com/TPI-Manager/TPI-Manager/internal/status"
	"github.com/TPI-Manager/TPI-Manager/internal/store"
	"github.com/TPI-Manager/TPI-Manager/pkg/cache"
	"github.com/TPI-Manager/TPI-Manager/pkg/config"
	"github.com/TPI-Manager/TPI-Manager/pkg/database"
	"github.com/TPI-Manager/TPI-Manager/pkg/jobs"
	"github.com/TPI-Manager/TPI-Manager/pkg/logger"
	corsmiddleware "github.com/TPI-Manager/TPI-Manager/pkg/middleware/cors"
	reqidmiddleware "github.com/TPI-Manager/TPI-Manager/pkg/middleware/requestid"
	"github.com/TPI-Manager/TPI-Manager/pkg/storage"
)

// @title TPI Manager API
// @version 1.0.0
// @description Multi-tenant polytechnic portal
// @BasePath /api/v1
// @schemes http

const exportsDir = "./exports"

// instrumentedNotifier counts published events before delegating.
type instrumentedNotifier struct {
	next    realtime.Notifier
	metrics *service.MetricsService
}

func (n *instrumentedNotifier) Publish(ctx context.Context, topic realtime.Topic, event realtime.Event) error {
	n.metrics.ObserveRealtimeEvent(string(topic.Kind), event.Action)
	return n.next.Publish(ctx, topic, event)
}

// instrumentedStore times every document store operation.
type instrumentedStore struct {
	next    store.Store
	metrics *service.MetricsService
}

func (s *instrumentedStore) Get(ctx context.Context, collection, scope, id string) ([]byte, error) {
	defer s.observe("get", time.Now())
	return s.next.Get(ctx, collection, scope, id)
}

func (s *instrumentedStore) Put(ctx context.Context, collection, scope, id string, doc []byte) error {
	defer s.observe("put", time.Now())
	return s.next.Put(ctx, collection, scope, id, doc)
}

func (s *instrumentedStore) Delete(ctx context.Context, collection, scope, id string) error {
	defer s.observe("delete", time.Now())
	return s.next.Delete(ctx, collection, scope, id)
}

func (s *instrumentedStore) List(ctx context.Context, collection, scope string) ([][]byte, error) {
	defer s.observe("list", time.Now())
	return s.next.List(ctx, collection, scope)
}

func (s *instrumentedStore) observe(operation string, started time.Time) {
	s.metrics.ObserveStoreOperation(operation, time.Since(started))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document store backend.
	var (
		docs  store.Store
		ready func(c *gin.Context) error
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("postgres connection failed", "error", err)
		}
		defer db.Close()
		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logr.Sugar().Fatalw("schema setup failed", "error", err)
		}
		docs = pg
		ready = func(c *gin.Context) error { return db.PingContext(c.Request.Context()) }
	case config.StoreDriverFile:
		fs, err := store.NewFileStore(cfg.Store.FileDir)
		if err != nil {
			logr.Sugar().Fatalw("file store setup failed", "error", err)
		}
		docs = fs
	case config.StoreDriverRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer client.Close()
		docs = store.NewRedisStore(client)
		ready = func(c *gin.Context) error { return client.Ping(c.Request.Context()).Err() }
	default:
		logr.Sugar().Fatalw("unknown store driver", "driver", cfg.Store.Driver)
	}

	// Realtime fan-out.
	broker := realtime.NewBroker(logr, cfg.Realtime.BufferSize)
	defer broker.Close()
	var notifier realtime.Notifier = broker
	if cfg.Realtime.Driver == config.RealtimeDriverRedis {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer client.Close()
		bridge := realtime.NewRedisBridge(client, broker, logr)
		defer bridge.Close()
		notifier = bridge
	}
	hub := realtime.NewHub(broker, logr)
	defer hub.Shutdown()

	metricsSvc := service.NewMetricsService(
		func() float64 { return float64(broker.SubscriberCount()) },
		func() float64 { return float64(hub.ClientCount()) },
	)
	notifier = &instrumentedNotifier{next: notifier, metrics: metricsSvc}
	docs = &instrumentedStore{next: docs, metrics: metricsSvc}

	validate := validator.New()
	evaluator := status.NewEvaluator(cfg.Status.DayGateAbsolute)

	// Repositories.
	userRepo := repository.NewUserRepository(docs)
	announcementRepo := repository.NewRecordRepository(docs, store.CollectionAnnouncements)
	eventRepo := repository.NewRecordRepository(docs, store.CollectionEvents)
	scheduleRepo := repository.NewRecordRepository(docs, store.CollectionSchedules)
	chatRepo := repository.NewChatRepository(docs)
	questionRepo := repository.NewQuestionRepository(docs)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	if err := authSvc.EnsureAdmin(ctx, cfg.Admin.ID, cfg.Admin.InitPassword); err != nil {
		logr.Sugar().Fatalw("admin seeding failed", "error", err)
	}

	announcementSvc := service.NewRecordService(announcementRepo, realtime.KindAnnouncements, false, evaluator, notifier, validate, logr)
	eventSvc := service.NewRecordService(eventRepo, realtime.KindEvents, true, evaluator, notifier, validate, logr)
	scheduleSvc := service.NewRecordService(scheduleRepo, realtime.KindSchedules, true, evaluator, notifier, validate, logr)
	chatSvc := service.NewChatService(chatRepo, notifier, validate, logr, cfg.Chat.HistoryLimit)
	askSvc := service.NewAskService(questionRepo, notifier, validate, logr)

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage setup failed", "error", err)
	}
	uploadSvc := service.NewUploadService(uploadStore, logr, cfg.Uploads.MaxFiles, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)

	exportStore, err := storage.NewLocalStorage(exportsDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage setup failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(map[string]*service.RecordService{
		"events":    eventSvc,
		"schedules": scheduleSvc,
	}, exportStore, signer, logr)

	// Background sweeper retires one-off records whose window has closed.
	sweepers := map[string]*service.RecordService{
		"announcements": announcementSvc,
		"events":        eventSvc,
		"schedules":     scheduleSvc,
	}
	sweeper := jobs.NewQueue("sweeper", func(ctx context.Context, job jobs.Job) error {
		if job.Type == "exports" {
			exportSvc.CleanupExpired(cfg.Exports.SignedURLTTL)
			return nil
		}
		svc, ok := sweepers[job.Type]
		if !ok {
			return fmt.Errorf("unknown sweep target %q", job.Type)
		}
		_, err := svc.SweepExpired(ctx)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Sweeper.Workers,
		MaxRetries: 2,
		RetryDelay: 10 * time.Second,
		Logger:     logr,
	})
	if cfg.Sweeper.Enabled {
		sweeper.Start(ctx)
		defer sweeper.Stop()
		go func() {
			ticker := time.NewTicker(cfg.Sweeper.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					for target := range sweepers {
						_ = sweeper.Enqueue(jobs.Job{ID: uuid.NewString(), Type: target})
					}
					_ = sweeper.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "exports"})
				}
			}
		}()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	announcementHandler := handler.NewRecordHandler(announcementSvc, false, "announcements")
	eventHandler := handler.NewRecordHandler(eventSvc, true, "events")
	scheduleHandler := handler.NewRecordHandler(scheduleSvc, true, "schedules")
	chatHandler := handler.NewChatHandler(chatSvc)
	askHandler := handler.NewAskHandler(askSvc)
	uploadHandler := handler.NewUploadHandler(uploadSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	streamHandler := handler.NewStreamHandler(broker, cfg.Realtime.HeartbeatInterval)
	wsHandler := handler.NewWSHandler(hub)
	userHandler := handler.NewUserHandler(userRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, ready)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)

	announcementHandler.Register(authed.Group("/announcements"))
	eventHandler.Register(authed.Group("/events"))
	scheduleHandler.Register(authed.Group("/schedules"))
	chatHandler.Register(authed.Group("/chat"))
	askHandler.Register(authed.Group("/ask"))
	uploadHandler.Register(authed.Group("/uploads"))

	authed.POST("/exports/:collection/:department/:semester/:shift", exportHandler.CreateLink)
	api.GET("/exports/download", exportHandler.Download)

	authed.GET("/stream", streamHandler.Stream)
	authed.GET("/ws", wsHandler.Connect)

	admin := authed.Group("/users")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/:role", userHandler.ListByRole)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver, "realtime", cfg.Realtime.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
}
