package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"stockroom/internal/config"
	custommiddleware "stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"
	"stockroom/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	db      *sql.DB
	redis   *redis.Client
	scanner service.ScannerService
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Redis client for rate limiting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	variantRepo := repository.NewVariantRepository(db)
	barcodeRepo := repository.NewBarcodeRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	stockLogRepo := repository.NewStockLogRepository(db)

	// Initialize services
	scannerService := service.NewScannerService(sessionRepo, variantRepo, stockLogRepo)
	inventoryService := service.NewInventoryService(variantRepo, stockLogRepo)
	barcodeService := service.NewBarcodeService(barcodeRepo, variantRepo, nil)

	// Initialize handlers
	scannerHandler := transport.NewScannerHandler(scannerService, logger)
	inventoryHandler := transport.NewInventoryHandler(inventoryService, logger)
	barcodeHandler := transport.NewBarcodeHandler(barcodeService, logger)

	// Create middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	barcodePermission := custommiddleware.RequirePermission(custommiddleware.PermissionBarcodeSystem, logger)
	bulkPermission := custommiddleware.RequirePermission(custommiddleware.PermissionBulkInventory, logger)
	scanRateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.Scanner.ScanRatePerMin,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:scan",
	}, logger)

	// Register routes
	scannerHandler.RegisterRoutes(router, authMiddleware, barcodePermission, scanRateLimit)
	inventoryHandler.RegisterRoutes(router, authMiddleware, bulkPermission)
	barcodeHandler.RegisterRoutes(router, authMiddleware, barcodePermission)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		db:      db,
		redis:   redisClient,
		scanner: scannerService,
	}

	return server
}

// ScannerService exposes the scanner service for background jobs
func (s *Server) ScannerService() service.ScannerService {
	return s.scanner
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	// Close redis connection
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
