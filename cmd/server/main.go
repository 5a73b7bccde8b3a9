package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/frank-furt/pos-backend/internal/activitylog"
	"github.com/frank-furt/pos-backend/internal/config"
	"github.com/frank-furt/pos-backend/internal/events"
	"github.com/frank-furt/pos-backend/internal/inventory"
	"github.com/frank-furt/pos-backend/internal/menu"
	"github.com/frank-furt/pos-backend/internal/orders"
	"github.com/frank-furt/pos-backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Initialize OpenTelemetry
	tp, err := initTracer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	mp, err := initMetrics(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down meter: %v", err)
		}
	}()

	// Initialize database
	dbPool, err := storage.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbPool.Close()

	if err := storage.Migrate(ctx, dbPool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Optional order event publisher
	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
		defer publisher.Close()
		log.Println("✅ Connected to message broker")
	}

	// Initialize dependencies
	activityWriter := activitylog.NewWriter(dbPool)
	tracer := tp.Tracer(cfg.ServiceName)

	orderRepository := orders.NewRepository(dbPool)
	var eventPublisher orders.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	orderUseCase := orders.NewUseCase(orderRepository, activityWriter, eventPublisher, tracer)
	orderHandler := orders.NewHandler(orderUseCase)

	inventoryRepository := inventory.NewRepository(dbPool)
	inventoryUseCase := inventory.NewUseCase(inventoryRepository, activityWriter)
	inventoryHandler := inventory.NewHandler(inventoryUseCase)

	menuRepository := menu.NewRepository(dbPool)
	menuUseCase := menu.NewUseCase(menuRepository)
	menuHandler := menu.NewHandler(menuUseCase)

	activityHandler := activitylog.NewHandler(activityWriter)

	// Setup Gin router
	r := gin.Default()
	r.Use(requestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": cfg.ServiceName})
	})

	api := r.Group("/api")
	orderHandler.RegisterRoutes(api.Group("/manual-sale"))
	inventoryHandler.RegisterRoutes(api.Group("/inventario"))
	menuHandler.RegisterRoutes(api.Group("/menu"))
	activityHandler.RegisterRoutes(api.Group("/actividades"))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Printf("🚀 POS backend listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
}

// requestID attaches a correlation id to every request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
