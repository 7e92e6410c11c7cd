package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
	"github.com/erazemk/menza/internal/store"
)

type menuPage struct {
	PageData
	Groups   []model.CategoryGroup
	Metadata *model.Metadata
}

// MenuPage handles GET /. It lists available items grouped by category.
func (s *Server) MenuPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Snapshot(r.Context())
	if err != nil {
		s.renderUnavailable(w, r, err)
		return
	}

	data := &menuPage{
		PageData: s.page(r, "Today's menu"),
		Groups:   model.GroupByCategory(model.Available(snap.Items)),
		Metadata: snap.Metadata,
	}
	data.Live = true
	s.Templates.Render(w, "menu.html", data)
}

// ItemImage handles GET /items/{id}/image.
func (s *Server) ItemImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := s.Service.Image(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, menu.ErrInvalidID):
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	case errors.Is(err, store.ErrNotFound), errors.Is(err, menu.ErrNoImage):
		http.NotFound(w, r)
		return
	case err != nil:
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
