package handler

import (
	"github.com/leca/doorguardian/internal/config"
	"github.com/leca/doorguardian/internal/service"
	"github.com/leca/doorguardian/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Query     *service.AccessQuery
	Lifecycle *service.AccessLifecycle
	Blobs     storage.BlobStore
	Config    *config.Config
}
