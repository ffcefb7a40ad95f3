package handlers

import (
	"crypto/subtle"
	"net/http"

	"resistorserver/internal/config"
	"resistorserver/internal/logger"
	"resistorserver/internal/middleware"
)

// LoginHandler checks the configured password and sets the auth cookie.
func LoginHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}
		// Ustaw cookie po poprawnym logowaniu
		http.SetCookie(w, &http.Cookie{
			Name:  middleware.AuthCookie,
			Value: "true",
			Path:  "/",
			// Secure: true, // odkomentuj jeśli używasz HTTPS
			HttpOnly: true,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
