package middleware

import (
	"log"
	"net/http"

	"github.com/dcode-github/rental_marketplace/backend/controllers"
	"github.com/gorilla/mux"
)

// RequireRole admits only requests whose stored role is one of roles. It
// must run after AuthMiddleware.
func RequireRole(roles ...string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(controllers.RoleKey).(string)
			if !allowed[role] {
				log.Printf("Role %q denied for %s %s", role, r.Method, r.URL)
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
