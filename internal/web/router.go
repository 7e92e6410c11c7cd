package web

import (
	"net/http"

	"github.com/erazemk/menza/internal/auth"
	"github.com/erazemk/menza/internal/menu"
	webembed "github.com/erazemk/menza/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(svc *menu.Service, creds *auth.Credentials, jwtSecret string) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Service:     svc,
		Credentials: creds,
		Templates:   templates,
		JWTSecret:   jwtSecret,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /{$}", s.MenuPage)
	mux.HandleFunc("GET /items/{id}/image", s.ItemImage)
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Admin panel.
	mux.Handle("GET /admin", cookieAuth(http.HandlerFunc(s.AdminPage)))
	mux.Handle("POST /admin/items", cookieAuth(http.HandlerFunc(s.ItemCreateSubmit)))
	mux.Handle("POST /admin/items/{id}", cookieAuth(http.HandlerFunc(s.ItemUpdateSubmit)))
	mux.Handle("POST /admin/items/{id}/toggle", cookieAuth(http.HandlerFunc(s.ItemToggleSubmit)))
	mux.Handle("POST /admin/items/{id}/delete", cookieAuth(http.HandlerFunc(s.ItemDeleteSubmit)))
	mux.Handle("POST /admin/items/{id}/image", cookieAuth(http.HandlerFunc(s.ItemImageSubmit)))
	mux.Handle("POST /admin/menu", cookieAuth(http.HandlerFunc(s.MenuUpdateSubmit)))

	return mux, nil
}
