package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"norne/internal/app"
	"norne/internal/config"
	"norne/internal/series"
	"norne/internal/strategy"
)

// Server exposes an App over HTTP.
type Server struct {
	app *app.App
	log *slog.Logger
}

// NewServer creates a Server for a.
func NewServer(a *app.App, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{app: a, log: log.With("component", "httpapi")}
}

// Handler builds the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(s.logMiddleware())
	s.RegisterRoutes(engine)
	return engine
}

// RegisterRoutes registers all API routes on r.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/strategies", s.handleStrategies)
		api.POST("/backtest", s.handleBacktest)
		api.POST("/search", s.handleSearch)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, StrategiesJSON{Strategies: s.app.Registry().List()})
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req app.RunOverrides
	if err := bindOptionalJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	rep, err := s.app.Backtest(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "backtest", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleSearch(c *gin.Context) {
	var req app.SearchRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	reps, err := s.app.Search(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, toSearchJSON(reps))
}

// bindOptionalJSON decodes the body into v. An empty body keeps v's zero
// value so that the configuration applies unchanged.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(op+" failed", "error", err)
	}
	writeError(c, status, err)
}

func statusFor(err error) int {
	switch {
	case config.IsConfigError(err),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, strategy.ErrInvalidParams),
		errors.Is(err, app.ErrEmptyUniverse):
		return http.StatusBadRequest
	case errors.Is(err, series.ErrNoData), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, series.ErrMissingField),
		errors.Is(err, series.ErrUnparsable),
		errors.Is(err, series.ErrDuplicateInstrument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, ErrorJSON{Error: err.Error()})
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
