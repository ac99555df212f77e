package ui

import (
	"net/http"

	"mcspec/app"
	"mcspec/internal"
	"mcspec/internal/resolver"
	"mcspec/ports"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Deps are the services behind the JSON API.
type Deps struct {
	Assembler *app.Assembler
	Design    *app.DesignService
	History   *app.HistoryService
	Datasets  ports.DatasetRepository
	Reader    ports.ReaderPort
	// Options are the resolver defaults; requests may override AssumeContinuous.
	Options resolver.Options
	Logger  *internal.Logger
}

// Server is the JSON API for formula resolution
type Server struct {
	router   *gin.Engine
	deps     Deps
	validate *validator.Validate
	logger   *internal.Logger
}

// NewServer creates a new API server instance
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = internal.DefaultLogger
	}
	if deps.Assembler == nil {
		deps.Assembler = app.NewAssembler(deps.Logger)
	}
	if deps.Design == nil {
		deps.Design = app.NewDesignService(deps.Assembler)
	}
	s := &Server{
		router:   gin.New(),
		deps:     deps,
		validate: validator.New(),
		logger:   deps.Logger.With("api"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/examples", s.handleExamples)
	api.POST("/resolve", s.handleResolve)
	api.POST("/design", s.handleDesign)
	api.POST("/export", s.handleExport)

	api.POST("/datasets", s.handleDatasetUpload)
	api.GET("/datasets/:id", s.handleDatasetGet)

	api.GET("/history", s.handleHistoryList)
	api.GET("/history/:id", s.handleHistoryGet)
}

// Handler exposes the router for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API on http://%s", addr)
	return s.router.Run(addr)
}
