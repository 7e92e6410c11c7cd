package api

import (
	"net/http"

	"github.com/erazemk/menza/internal/auth"
	"github.com/erazemk/menza/internal/feed"
	"github.com/erazemk/menza/internal/menu"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *menu.Service, hub *feed.Hub, creds *auth.Credentials, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Credentials: creds, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{Service: svc}
	metadataHandler := &MetadataHandler{Service: svc}
	eventsHandler := &EventsHandler{Service: svc, Hub: hub}

	authMW := AuthMiddleware(jwtSecret)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/health", Health)
	mux.HandleFunc("GET /api/openapi.yaml", OpenAPI)
	mux.HandleFunc("GET /api/metadata", metadataHandler.Get)
	mux.HandleFunc("GET /api/events", eventsHandler.Stream)

	// Items: read (public), write (authenticated).
	mux.HandleFunc("GET /api/menu-items", itemsHandler.List)
	mux.HandleFunc("GET /api/menu-items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/menu-items/{id}/image", itemsHandler.GetImage)
	mux.Handle("POST /api/menu-items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PUT /api/menu-items", authMW(http.HandlerFunc(itemsHandler.BulkUpdate)))
	mux.Handle("PUT /api/menu-items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/menu-items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/menu-items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "not found")
	})

	return mux
}
