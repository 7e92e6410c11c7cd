package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/menza/internal/imaging"
	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
	"github.com/erazemk/menza/internal/store"
)

type adminPage struct {
	PageData
	Groups     []model.CategoryGroup
	Categories []string
	Total      int
	Available  int
	Metadata   *model.Metadata
}

// AdminPage handles GET /admin.
func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Snapshot(r.Context())
	if err != nil {
		s.renderUnavailable(w, r, err)
		return
	}

	s.Templates.Render(w, "admin.html", &adminPage{
		PageData:   s.page(r, "Canteen management"),
		Groups:     model.GroupByCategory(snap.Items),
		Categories: model.Categories,
		Total:      len(snap.Items),
		Available:  len(model.Available(snap.Items)),
		Metadata:   snap.Metadata,
	})
}

// redirectAdmin sends the browser back to the admin panel with a flash message.
func redirectAdmin(w http.ResponseWriter, r *http.Request, key, message string) {
	target := "/admin"
	if message != "" {
		target += "?" + url.Values{key: {message}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// flashError turns a service error into a message for the admin panel and
// reports whether the error was caused by user input.
func flashError(err error) (string, bool) {
	var verr *menu.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Invalid input: " + verr.Error(), true
	case errors.Is(err, menu.ErrInvalidID), errors.Is(err, store.ErrNotFound):
		return "That menu item no longer exists.", true
	case errors.Is(err, imaging.ErrUnsupportedFormat), errors.Is(err, imaging.ErrTooLarge):
		return "Photo rejected: " + err.Error(), true
	default:
		return "Something went wrong. Please try again.", false
	}
}

// fail redirects to the admin panel with a flash for err, logging errors
// that were not caused by user input.
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	text, expected := flashError(err)
	if !expected {
		slog.Error(msg, "error", err)
	}
	redirectAdmin(w, r, "error", text)
}

func formPrice(r *http.Request) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue("price"))
	if raw == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &menu.ValidationError{Field: "price", Message: "must be a number"}
	}
	return &p, nil
}

func formString(r *http.Request, key string) *string {
	if _, ok := r.PostForm[key]; !ok {
		return nil
	}
	v := r.PostForm.Get(key)
	return &v
}

// ItemCreateSubmit handles POST /admin/items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectAdmin(w, r, "error", "Invalid form.")
		return
	}

	price, err := formPrice(r)
	if err != nil {
		fail(w, r, "invalid price", err)
		return
	}
	available := r.PostForm.Get("available") != ""

	claims := GetWebClaims(r.Context())
	item, err := s.Service.Create(r.Context(), claims.Username, menu.NewItem{
		Name:        r.PostForm.Get("name"),
		Price:       price,
		Category:    r.PostForm.Get("category"),
		Description: r.PostForm.Get("description"),
		Available:   &available,
	})
	if err != nil {
		fail(w, r, "failed to create item", err)
		return
	}

	slog.Info("item created", "user", claims.Username, "item", item.Name)
	redirectAdmin(w, r, "saved", item.Name+" added.")
}

// ItemUpdateSubmit handles POST /admin/items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectAdmin(w, r, "error", "Invalid form.")
		return
	}

	price, err := formPrice(r)
	if err != nil {
		fail(w, r, "invalid price", err)
		return
	}

	claims := GetWebClaims(r.Context())
	item, err := s.Service.Update(r.Context(), claims.Username, r.PathValue("id"), model.ItemPatch{
		Name:        formString(r, "name"),
		Price:       price,
		Category:    formString(r, "category"),
		Description: formString(r, "description"),
	})
	if err != nil {
		fail(w, r, "failed to update item", err)
		return
	}

	slog.Info("item updated", "user", claims.Username, "item", item.Name)
	redirectAdmin(w, r, "saved", item.Name+" saved.")
}

// ItemToggleSubmit handles POST /admin/items/{id}/toggle.
func (s *Server) ItemToggleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	current, err := s.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, r, "failed to get item", err)
		return
	}

	available := !current.Available
	item, err := s.Service.Update(r.Context(), claims.Username, id, model.ItemPatch{Available: &available})
	if err != nil {
		fail(w, r, "failed to toggle item", err)
		return
	}

	state := "unavailable"
	if item.Available {
		state = "available"
	}
	redirectAdmin(w, r, "saved", item.Name+" is now "+state+".")
}

// ItemDeleteSubmit handles POST /admin/items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if err := s.Service.Delete(r.Context(), claims.Username, r.PathValue("id")); err != nil {
		fail(w, r, "failed to delete item", err)
		return
	}

	slog.Info("item deleted", "user", claims.Username, "id", r.PathValue("id"))
	redirectAdmin(w, r, "saved", "Item deleted.")
}

// ItemImageSubmit handles POST /admin/items/{id}/image.
func (s *Server) ItemImageSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		redirectAdmin(w, r, "error", "Photo too large or invalid upload.")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		redirectAdmin(w, r, "error", "Choose a photo to upload.")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if err != nil {
		fail(w, r, "failed to process image", err)
		return
	}

	if err := s.Service.SetImage(r.Context(), claims.Username, id, photo.Data, photo.MIME); err != nil {
		fail(w, r, "failed to save image", err)
		return
	}

	redirectAdmin(w, r, "saved", "Photo uploaded.")
}

// MenuUpdateSubmit handles POST /admin/menu. The form lists every item id and
// marks the ones that should be available.
func (s *Server) MenuUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectAdmin(w, r, "error", "Invalid form.")
		return
	}

	ids := r.PostForm["id"]
	if len(ids) == 0 {
		redirectAdmin(w, r, "error", "There are no items to update.")
		return
	}

	checked := make(map[string]bool)
	for _, id := range r.PostForm["available"] {
		checked[id] = true
	}

	updates := make([]menu.ItemUpdate, len(ids))
	for i, id := range ids {
		available := checked[id]
		updates[i] = menu.ItemUpdate{ID: id, Patch: model.ItemPatch{Available: &available}}
	}

	claims := GetWebClaims(r.Context())
	n, err := s.Service.BulkUpdate(r.Context(), claims.Username, updates)
	if err != nil {
		fail(w, r, "failed to update menu", err)
		return
	}

	slog.Info("menu updated", "user", claims.Username, "items", n)
	redirectAdmin(w, r, "saved", "Menu updated.")
}
