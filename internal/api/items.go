package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/menza/internal/imaging"
	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
)

// ItemsHandler handles menu item CRUD endpoints.
type ItemsHandler struct {
	Service *menu.Service
}

type itemRequest struct {
	Name        *string `json:"name"`
	Price       *price  `json:"price"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

func (req itemRequest) patch() model.ItemPatch {
	return model.ItemPatch{
		Name:        req.Name,
		Price:       (*float64)(req.Price),
		Category:    req.Category,
		Description: req.Description,
		Available:   req.Available,
	}
}

func (req itemRequest) newItem() menu.NewItem {
	in := menu.NewItem{Price: (*float64)(req.Price), Available: req.Available}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	return in
}

type bulkItemRequest struct {
	ID string `json:"id"`
	itemRequest
}

type bulkRequest struct {
	Items []bulkItemRequest `json:"items"`
}

// badBody writes a 400 for a body that failed to decode.
func badBody(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidPrice) {
		jsonError(w, http.StatusBadRequest, errInvalidPrice.Error())
		return
	}
	jsonError(w, http.StatusBadRequest, "invalid request body")
}

// List handles GET /api/menu-items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		serviceError(w, r, err, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/menu-items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/menu-items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	item, err := h.Service.Create(r.Context(), username(r), req.newItem())
	if err != nil {
		serviceError(w, r, err, "failed to create item")
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/menu-items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	item, err := h.Service.Update(r.Context(), username(r), r.PathValue("id"), req.patch())
	if err != nil {
		serviceError(w, r, err, "failed to update item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// BulkUpdate handles PUT /api/menu-items.
func (h *ItemsHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if req.Items == nil {
		jsonError(w, http.StatusBadRequest, "items array required")
		return
	}

	updates := make([]menu.ItemUpdate, len(req.Items))
	for i, it := range req.Items {
		updates[i] = menu.ItemUpdate{ID: it.ID, Patch: it.patch()}
	}

	n, err := h.Service.BulkUpdate(r.Context(), username(r), updates)
	if err != nil {
		serviceError(w, r, err, "failed to update items")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"updated": n})
}

// Delete handles DELETE /api/menu-items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), username(r), r.PathValue("id")); err != nil {
		serviceError(w, r, err, "failed to delete item")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}

// UploadImage handles PUT /api/menu-items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Service.Get(r.Context(), id); err != nil {
		serviceError(w, r, err, "failed to get item")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if err != nil {
		serviceError(w, r, err, "failed to process image")
		return
	}

	if err := h.Service.SetImage(r.Context(), username(r), id, photo.Data, photo.MIME); err != nil {
		serviceError(w, r, err, "failed to save image")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetImage handles GET /api/menu-items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Service.Image(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err, "failed to get image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}
