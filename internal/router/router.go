package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/doorguardian/internal/config"
	"github.com/leca/doorguardian/internal/database"
	"github.com/leca/doorguardian/internal/handler"
	"github.com/leca/doorguardian/internal/service"
	"github.com/leca/doorguardian/internal/storage"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	DB     database.Store
	Blobs  storage.BlobStore
	Config *config.Config
	Router chi.Router
}

// New creates a new Server with a fully configured chi router. The query
// engine is handed the store's read-only slice; only the lifecycle
// manager gets the writable store.
func New(db database.Store, blobs storage.BlobStore, cfg *config.Config) *Server {
	s := &Server{DB: db, Blobs: blobs, Config: cfg}

	h := &handler.Handler{
		Query:     service.NewAccessQuery(db),
		Lifecycle: service.NewAccessLifecycle(db, blobs, cfg),
		Blobs:     blobs,
		Config:    cfg,
	}

	r := chi.NewRouter()

	// CORS — must be before other middleware to handle preflight OPTIONS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/history", h.History)
		r.Post("/register", h.Register)
		r.Delete("/history/{access_id}", h.Delete)
		r.Get("/health", h.Health)
	})

	// Blob delivery for the filesystem backend.
	r.Get("/files/*", h.DeliverBlob)

	s.Router = r
	return s
}
