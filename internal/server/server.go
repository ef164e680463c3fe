// Package server assembles the catalog HTTP surface and runs it with
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"filecatalog/internal/blobstore"
	"filecatalog/internal/config"
	"filecatalog/internal/database"
	"filecatalog/internal/domain/file"
	"filecatalog/internal/middleware"
	"filecatalog/internal/pkg/jwt"
	"filecatalog/internal/pkg/response"
	"filecatalog/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// TokenTTL is the lifetime of tokens minted by cmd/credentials.
const TokenTTL = 24 * time.Hour

// NewRouter wires the blob store, catalog, access gate and event hub into a
// gin engine. hub may be nil, which disables the events route.
func NewRouter(cfg *config.Config, db *gorm.DB, hub *realtime.Hub) (*gin.Engine, error) {
	store, err := blobstore.New(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	policy, err := middleware.NewPolicy(cfg.AccessPolicy)
	if err != nil {
		return nil, err
	}
	gate := middleware.NewAccessGate(NewAuthenticator(cfg), policy)

	var publisher file.Publisher
	var events gin.HandlerFunc
	if hub != nil {
		publisher = hub
		events = hub.Handle
	}

	repo := file.NewRepository(db)
	svc := file.NewService(repo, store, publisher,
		file.NewLookupCache(cfg.LookupCacheSize, cfg.LookupCacheTTL), cfg.PublicBaseURL)
	handler := file.NewHandler(svc, file.NewStreamer(store, svc), store.MaxBytes())

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Metrics())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "File catalog server is running")
	})
	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	file.RegisterRoutes(r.Group("/api"), handler, gate, events)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Route not found")
	})

	log.Printf("router_ready upload_dir=%s max_upload_bytes=%d policy=%s", store.Dir(), store.MaxBytes(), policy)
	return r, nil
}

// NewAuthenticator accepts JWTs signed with the configured secret and, when a
// hash is configured, the service API key.
func NewAuthenticator(cfg *config.Config) middleware.Authenticator {
	chain := middleware.ChainAuthenticator{
		middleware.NewJWTAuthenticator(jwt.New(cfg.JWTSecret, TokenTTL)),
	}
	if cfg.APIKeyHash != "" {
		chain = append(chain, middleware.NewAPIKeyAuthenticator(cfg.APIKeyHash))
	}
	return chain
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.Ping(ctx, db); err != nil {
			log.Printf("health_check_failed error=%q", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "fail", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	}
}

// Server is the HTTP listener of the catalog.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func New(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("server_listen addr=%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("server_shutdown_requested")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Printf("server_stopped")
	return nil
}
