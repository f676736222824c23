// Package server is the composition root: it opens the storage backends,
// builds the services and handlers, and mounts them on the router.
//
//	config.Config → New → repository.Store, blob.Store, vision.Detector
//	                    → services → handlers → chi routes
//
// Every dependency is created here and passed down explicitly; nothing
// below this package reads the environment or holds a global.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/fitlog/internal/auth"
	"github.com/sakif/fitlog/internal/blob"
	"github.com/sakif/fitlog/internal/config"
	"github.com/sakif/fitlog/internal/handler"
	"github.com/sakif/fitlog/internal/middleware"
	"github.com/sakif/fitlog/internal/repository"
	"github.com/sakif/fitlog/internal/repository/postgres"
	"github.com/sakif/fitlog/internal/repository/sqlite"
	"github.com/sakif/fitlog/internal/service"
	"github.com/sakif/fitlog/internal/vision"
)

// Deps are the backends the server runs on. New opens them from the
// config; tests build them directly and call NewWithDeps.
type Deps struct {
	Store    repository.Store
	Blobs    blob.Store
	Detector vision.Detector // optional
}

// Server is the HTTP server and the resources it owns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the backends described by cfg and wires the server.
//
//   - DATABASE_URL set → Postgres through GORM, else SQLite at DB_PATH
//   - PHOTO_BUCKET set → S3, else the PHOTO_DIR directory
//   - LABEL_DETECTION  → Rekognition
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := Deps{Store: store}
	if cfg.PhotoBucket != "" || cfg.LabelDetection {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		if cfg.PhotoBucket != "" {
			deps.Blobs = blob.NewS3FromConfig(awsCfg, cfg.PhotoBucket, "photos")
		}
		if cfg.LabelDetection {
			deps.Detector = vision.NewRekognitionFromConfig(awsCfg)
		}
	}
	if deps.Blobs == nil {
		disk, err := blob.NewDisk(cfg.PhotoDir)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("opening photo directory: %w", err)
		}
		deps.Blobs = disk
	}

	s, err := NewWithDeps(cfg, logger, deps)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func openStore(cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	return db, nil
}

// NewWithDeps wires the server onto ready backends. The server takes
// ownership of deps.Store and closes it on shutdown.
func NewWithDeps(cfg config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Blobs == nil {
		return nil, errors.New("server: a store and a blob store are required")
	}
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  deps.Store,
	}
	if err := s.setupRoutes(deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and handlers. Middleware runs in the
// order it is added:
//
//  1. RequestID: a unique id per request, picked up by the logger
//  2. RealIP: the client address from proxy headers
//  3. Logger
//  4. Recoverer: a panic becomes a 500 instead of killing the process
//  5. CORS
func (s *Server) setupRoutes(deps Deps) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	store := deps.Store
	accounts := service.NewAccountService(store, tokens, auth.NewPasswordService(), s.logger)
	foods := service.NewFoodService(store, store, s.logger)
	photos := service.NewPhotoService(store, store, deps.Blobs, s.logger)
	tags := service.NewTagService(store, store, deps.Blobs, deps.Detector, s.logger)
	weights := service.NewBodyweightService(store, s.logger)

	userHandler := handler.NewUserHandler(accounts, github, s.config.SessionTTL, s.config.CookieSecure, s.logger)
	foodHandler := handler.NewFoodHandler(foods, s.logger)
	photoHandler := handler.NewPhotoHandler(photos, s.config.MaxUploadBytes, s.logger)
	tagHandler := handler.NewTagHandler(tags, s.logger)
	weightHandler := handler.NewBodyweightHandler(weights, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)

	// Public routes.
	r.Post("/users", userHandler.HandleSignup)
	r.Post("/auth/login", userHandler.HandleLogin)
	r.With(auth.OptionalAuth(tokens)).Post("/auth/logout", userHandler.HandleLogout)
	r.Get("/auth/github/login", userHandler.HandleGitHubLogin)
	r.Get("/auth/github/callback", userHandler.HandleGitHubCallback)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Use(middleware.Activity(accounts, s.logger))

		r.Get("/auth/me", userHandler.HandleMe)
		r.Get("/users", userHandler.HandleList)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Put("/users/{id}", userHandler.HandleUpdate)
		r.Put("/users/{id}/password", userHandler.HandleChangePassword)

		r.Route("/food", func(r chi.Router) {
			r.Get("/", foodHandler.HandleList)
			r.Post("/", foodHandler.HandleCreate)
			r.Delete("/", foodHandler.HandleBulkDelete)
			r.Get("/search", foodHandler.HandleSearch)
			r.Get("/summary", foodHandler.HandleSummary)
			r.Get("/{id}", foodHandler.HandleGet)
			r.Put("/{id}", foodHandler.HandleUpdate)
			r.Delete("/{id}", foodHandler.HandleDelete)
		})
		r.Get("/nutrition/search", foodHandler.HandleNutrition)

		r.Route("/photos", func(r chi.Router) {
			r.Get("/", photoHandler.HandleList)
			r.Post("/", photoHandler.HandleUpload)
			r.Get("/{id}", photoHandler.HandleGet)
			r.Put("/{id}", photoHandler.HandleUpdate)
			r.Delete("/{id}", photoHandler.HandleDelete)
			r.Get("/{id}/data", photoHandler.HandleData)
			r.Get("/{id}/labels", tagHandler.HandleListLabels)
			r.Post("/{id}/labels", tagHandler.HandleCreateLabel)
			r.Post("/{id}/labels/detect", tagHandler.HandleDetect)
		})
		r.Put("/labels/{id}", tagHandler.HandleUpdateLabel)
		r.Delete("/labels/{id}", tagHandler.HandleDeleteLabel)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.HandleList)
			r.Post("/", tagHandler.HandleCreate)
			r.Get("/{id}", tagHandler.HandleGet)
			r.Put("/{id}", tagHandler.HandleUpdate)
			r.Delete("/{id}", tagHandler.HandleDelete)
		})

		r.Route("/bodyweight", func(r chi.Router) {
			r.Get("/", weightHandler.HandleList)
			r.Post("/", weightHandler.HandleCreate)
			r.Get("/{id}", weightHandler.HandleGet)
			r.Put("/{id}", weightHandler.HandleUpdate)
			r.Delete("/{id}", weightHandler.HandleDelete)
		})
	})

	return nil
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// Close releases the store. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // uploads
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("postgres", s.config.DatabaseURL != ""),
			slog.Bool("s3", s.config.PhotoBucket != ""),
			slog.Bool("labelDetection", s.config.LabelDetection),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
