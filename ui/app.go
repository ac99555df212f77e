package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"mcspec/app"
	"mcspec/internal"
	"mcspec/internal/resolver"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App is the browser preview: a formula box that shows the live summary,
// a caret under parse errors and the rendered model report.
type App struct {
	router    *chi.Mux
	assembler *app.Assembler
	options   resolver.Options
	templates *template.Template
	logger    *internal.Logger
	port      string
}

// Config holds UI application configuration
type Config struct {
	Port      string
	Assembler *app.Assembler
	Options   resolver.Options
	Logger    *internal.Logger
}

// NewApp creates a new UI application
func NewApp(config Config) (*App, error) {
	if config.Logger == nil {
		config.Logger = internal.DefaultLogger
	}
	if config.Assembler == nil {
		config.Assembler = app.NewAssembler(config.Logger)
	}
	funcMap := template.FuncMap{
		"join": strings.Join,
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		assembler: config.Assembler,
		options:   config.Options,
		templates: templates,
		logger:    config.Logger.With("ui"),
		port:      config.Port,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/preview", a.handlePreview)
}

// Handler exposes the router for tests and custom listeners
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves the UI on the configured port
func (a *App) Start() error {
	addr := ":" + a.port
	a.logger.Info("starting UI on http://localhost%s", addr)
	return http.ListenAndServe(addr, a.router)
}
