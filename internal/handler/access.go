package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leca/doorguardian/internal/api"
	"github.com/leca/doorguardian/internal/model"
	"github.com/leca/doorguardian/internal/service"
)

// historyResponse is the wire shape of GET /api/v1/history.
type historyResponse struct {
	AccessRecords []*model.AccessWithImage `json:"access_records"`
	Pagination    *model.PageInfo          `json:"pagination"`
}

// History handles GET /api/v1/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.HistoryParams{
		Page:      1,
		PerPage:   20,
		SortBy:    "date",
		SortOrder: "desc",
	}

	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			api.BadRequest(w, "page must be an integer >= 1")
			return
		}
		params.Page = p
	}
	if v := q.Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < 1 || pp > 100 {
			api.BadRequest(w, "per_page must be between 1 and 100")
			return
		}
		params.PerPage = pp
	}
	if v := q.Get("sort_by"); v != "" {
		params.SortBy = v
	}
	if v := q.Get("sort_order"); v != "" {
		params.SortOrder = v
	}
	if v := q.Get("access"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			api.BadRequest(w, "access must be true or false")
			return
		}
		params.Access = &b
	}
	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.BadRequest(w, "date_from must be an RFC3339 timestamp")
			return
		}
		params.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.BadRequest(w, "date_to must be an RFC3339 timestamp")
			return
		}
		params.DateTo = &t
	}

	records, pagination, err := h.Query.History(r.Context(), params)
	if err != nil {
		if service.IsValidation(err) {
			api.BadRequest(w, err.Error())
			return
		}
		api.Internal(w, "failed to list access history")
		return
	}

	api.WriteJSON(w, http.StatusOK, historyResponse{
		AccessRecords: records,
		Pagination:    pagination,
	})
}

// Register handles POST /api/v1/register -- multipart form with a
// required access flag, an optional date and an optional image file.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		api.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	accessVal := r.FormValue("access")
	if accessVal == "" {
		api.BadRequest(w, "missing required field: access")
		return
	}
	access, err := strconv.ParseBool(accessVal)
	if err != nil {
		api.BadRequest(w, "access must be true or false")
		return
	}

	in := service.RegisterInput{Access: access}

	if v := r.FormValue("date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.BadRequest(w, "date must be an RFC3339 timestamp")
			return
		}
		in.Date = &t
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// No photo attached.
	case err != nil:
		api.BadRequest(w, "invalid image upload: "+err.Error())
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			api.Internal(w, "failed to read uploaded file")
			return
		}
		in.Photo = &service.Photo{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	record, err := h.Lifecycle.Register(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooLarge):
			api.TooLarge(w, err.Error())
		case service.IsValidation(err):
			api.BadRequest(w, err.Error())
		default:
			api.Internal(w, "failed to create access record")
		}
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Access record created successfully",
		"access_record": record,
	})
}

// Delete handles DELETE /api/v1/history/{access_id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "access_id")

	ok, err := h.Lifecycle.Delete(r.Context(), id)
	if err != nil {
		api.Internal(w, "failed to delete access record")
		return
	}
	if !ok {
		api.NotFound(w, "Access record not found")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{
		"message":    "Access record deleted successfully",
		"deleted_id": id,
	})
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "DoorGuardian API is running",
		"version": h.Config.Version,
	})
}

// DeliverBlob handles GET /files/* for the filesystem storage backend.
func (h *Handler) DeliverBlob(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	rc, err := h.Blobs.Get(r.Context(), path)
	if err != nil {
		api.NotFound(w, "file not found")
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = io.Copy(w, rc)
}
