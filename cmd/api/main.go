package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"newsletteradmin/internal/config"
	"newsletteradmin/internal/esp"
	"newsletteradmin/internal/handler"
	"newsletteradmin/internal/logger"
	"newsletteradmin/internal/messages"
	"newsletteradmin/internal/metrics"
	"newsletteradmin/internal/queue"
	"newsletteradmin/internal/repository"
	"newsletteradmin/internal/service"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel, cfg.IsDevelopment())

	// Connect to database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	// Flash messages live in redis so they survive the redirect after a save
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	var store messages.Store
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("⚠️  Redis unavailable (%v), keeping messages in memory", err)
		store = messages.NewMemoryStore()
	} else {
		store = messages.NewRedisStore(rdb, cfg.Redis.MessageTTL, appLogger)
		log.Println("✅ Connected to Redis")
	}
	cancel()

	// Fault reports are best effort: without RabbitMQ they are only logged
	var (
		faultPublisher service.FaultPublisher
		queueStatus    service.QueueStatus
	)
	conn, err := queue.NewConnection(cfg.RabbitMQ.URL, appLogger)
	if err != nil {
		log.Printf("⚠️  RabbitMQ unavailable (%v), sync faults will only be logged", err)
	} else {
		defer conn.Close()
		queueStatus = conn
		publisher, err := queue.NewFaultPublisher(conn, cfg.RabbitMQ.FaultQueue)
		if err != nil {
			log.Printf("⚠️  Failed to declare fault queue: %v", err)
		} else {
			faultPublisher = publisher
			log.Printf("✅ Publishing sync faults to queue: %s", cfg.RabbitMQ.FaultQueue)
		}
	}

	// Email service provider
	var provider esp.Provider
	if cfg.UseSimulatedESP() {
		provider = esp.NewSimulator(0.95, 500*time.Millisecond) // 95% success rate
		log.Println("🧪 Using simulated email service provider")
	} else {
		provider = esp.NewClient(esp.ClientOptions{
			BaseURL:   cfg.ESP.BaseURL,
			APIKey:    cfg.ESP.APIKey,
			Timeout:   cfg.ESP.Timeout,
			RateLimit: cfg.ESP.RateLimit,
			Logger:    appLogger,
		})
		log.Printf("✅ Email service provider: %s", cfg.ESP.BaseURL)
	}

	espCtx, cancelESP := context.WithTimeout(context.Background(), cfg.ESP.Timeout)
	if err := provider.Ping(espCtx); err != nil {
		log.Printf("⚠️  Email service provider not reachable (%v), saves will be kept locally", err)
	}
	cancelESP()

	// Initialize repositories
	newsletterRepo := repository.NewNewsletterRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)

	// Initialize services
	editorMetrics := metrics.NewEditorMetrics(nil)
	builder := service.NewCampaignBuilder(cfg.ESP.FromName, cfg.ESP.ReplyTo, cfg.Mailing.MultipleInstances)
	synchronizer := service.NewCampaignSynchronizer(provider, instanceRepo, builder, service.SynchronizerOptions{
		ListSetting:  cfg.Mailing.DefaultListSetting,
		DefaultList:  cfg.Mailing.DefaultList,
		AdminTimeout: cfg.ESP.AdminTimeout,
		Metrics:      editorMetrics,
		Logger:       appLogger,
	})
	editor := service.NewNewsletterEditor(service.EditorDeps{
		Newsletters:       newsletterRepo,
		Segments:          segmentRepo,
		Instances:         instanceRepo,
		Catalog:           service.NewSegmentCatalog(segmentRepo, cfg.Mailing.MultipleInstances),
		Sync:              synchronizer,
		Messages:          store,
		Faults:            service.NewFaultReporter(faultPublisher, editorMetrics, appLogger),
		Metrics:           editorMetrics,
		Logger:            appLogger,
		MultipleInstances: cfg.Mailing.MultipleInstances,
	})
	healthSvc := service.NewHealthService(db, service.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}), queueStatus, version)
	log.Println("✅ Services initialized")

	router := handler.NewRouter(
		handler.NewNewsletterHandler(editor),
		handler.NewHealthHandler(healthSvc),
		appLogger,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// a save may wait on the provider for the full admin timeout
		WriteTimeout: cfg.ESP.AdminTimeout + 10*time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📈 Metrics: http://localhost%s/metrics", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server failed: %v", err)
		}
	}()

	go func() {
		log.Printf("🚀 API Server starting on port %s", server.Addr)
		log.Printf("📍 Health check: http://localhost%s/health", server.Addr)
		log.Printf("🌍 Environment: %s", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down gracefully...")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Printf("Error stopping metrics server: %v", err)
	}

	log.Println("✅ API stopped")
}
