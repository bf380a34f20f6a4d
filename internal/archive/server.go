package archive

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// maxUploadSize bounds uploads; phone photos of payslips are large
const maxUploadSize = int64(50 << 20) // 50MB

// Server handles HTTP requests for payslips
type Server struct {
	service   *Service
	basicAuth BasicAuth
	engine    *gin.Engine
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) enabled() bool {
	return b.Username != "" || b.Password != ""
}

// NewServer creates a new Server with its routes registered
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), cors())

	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		engine:    engine,
	}
	s.registerRoutes()
	return s
}

// requestLogger logs each request through slog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// cors adds CORS headers to every response and answers preflight requests
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// registerRoutes registers all API routes on the engine
func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	if s.basicAuth.enabled() {
		api.Use(gin.BasicAuthForRealm(gin.Accounts{s.basicAuth.Username: s.basicAuth.Password}, "Holerite"))
	}

	api.POST("/payslips", s.handleUploadPayslip)
	api.GET("/payslips", s.handleListPayslips)
	api.GET("/payslips/:id", s.handleGetPayslip)
	api.PUT("/payslips/:id", s.handleCorrectPayslip)
	api.DELETE("/payslips/:id", s.handleDeletePayslip)
	api.GET("/payslips/:id/file", s.handleGetPayslipFile)
	api.POST("/parse", s.handleParse)
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}
