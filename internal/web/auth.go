package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/menza/internal/auth"
)

const invalidLogin = "Invalid username or password."

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if currentUser(r, s.JWTSecret) != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	data := s.page(r, "Admin login")
	s.Templates.Render(w, "login.html", &data)
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	data := s.page(r, "Admin login")
	if username == "" || password == "" {
		data.Error = "Enter your username and password."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", &data)
		return
	}

	if !s.Credentials.Check(username, password) {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		data.Error = invalidLogin
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", &data)
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, username)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		data.Error = "Login failed. Please try again."
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "login.html", &data)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})

	slog.Info("user logged in", "user", username)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
