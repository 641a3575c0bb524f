package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// multipart framing allowance on top of the configured upload limit
const multipartOverhead = 1 << 20

// Server exposes the App over HTTP
type Server struct {
	app    *App
	engine *gin.Engine
	addr   string
}

// NewServer builds the gin engine and registers all routes
func NewServer(app *App, addr string) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(DefaultLogger()))
	if limit := app.config.MaxUploadBytes(); limit > 0 {
		engine.Use(MaxBodySize(limit + multipartOverhead))
	}
	engine.Use(CORS())

	s := &Server{app: app, engine: engine, addr: addr}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/jobs", s.handleJobs)
	s.engine.GET("/jobs/:id", s.handleJob)

	summarize := s.engine.Group("/summarize")
	{
		summarize.POST("/upload", s.handleUpload)
		summarize.POST("/url", s.handleURL)
	}

	download := s.engine.Group("/download")
	{
		download.GET("/transcript/:id", s.handleDownload(ArtifactTranscript, "Transcript not found"))
		download.GET("/summary/:id", s.handleDownload(ArtifactSummary, "Summary not found"))
		download.GET("/bullets/:id", s.handleDownload(ArtifactBullets, "Bullets not found"))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		LogInfo("Listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	LogInfo("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, ErrUploadTooLarge)
			return
		}
		respondMessage(c, http.StatusBadRequest, "missing audio file")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		LogError("Opening upload %s: %v", fileHeader.Filename, err)
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	LogInfo("Received upload: filename=%s size=%d", fileHeader.Filename, fileHeader.Size)

	result, err := s.app.ProcessUpload(c.Request.Context(), fileHeader.Filename, upload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleURL(c *gin.Context) {
	var payload struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	url := strings.TrimSpace(payload.URL)
	if url == "" {
		respondMessage(c, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.app.ProcessURL(c.Request.Context(), url)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDownload(kind ArtifactKind, notFound string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path, name, err := s.app.Artifact(kind, c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			respondMessage(c, http.StatusNotFound, notFound)
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.FileAttachment(path, name)
	}
}

func (s *Server) handleJobs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		respondMessage(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	jobs, err := s.app.Jobs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleJob(c *gin.Context) {
	job, err := s.app.Job(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		respondMessage(c, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var extErr *UnsupportedExtensionError
	switch {
	case errors.As(err, &extErr), errors.Is(err, ErrUploadTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		LogError("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

// CORS allows any origin
func CORS() gin.HandlerFunc {
	config := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:          12 * time.Hour,
	}
	return cors.New(config)
}

// RequestLogger logs one line per request through logger
func RequestLogger(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// MaxBodySize caps request bodies at limit bytes
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
