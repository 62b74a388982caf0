package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/dcode-github/rental_marketplace/backend/controllers"
	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TokenValidator interface {
	ValidateJWT(token string) (*utils.Claims, error)
}

type UserLookup interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type authFailure struct {
	status  int
	message string
}

// authenticate resolves the bearer token to a stored, active user.
func authenticate(r *http.Request, tokens TokenValidator, users UserLookup) (*models.User, *authFailure) {
	tokenHeader := r.Header.Get("Authorization")
	if tokenHeader == "" {
		log.Printf("Missing Authorization header from request %s %s", r.Method, r.URL)
		return nil, &authFailure{http.StatusUnauthorized, "Missing Authorization header"}
	}

	tokenParts := strings.Split(tokenHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		log.Printf("Invalid Authorization header format from request %s %s", r.Method, r.URL)
		return nil, &authFailure{http.StatusUnauthorized, "Invalid Authorization header format"}
	}

	claims, err := tokens.ValidateJWT(tokenParts[1])
	if err != nil {
		log.Printf("Invalid or expired token: %v", err)
		return nil, &authFailure{http.StatusUnauthorized, "Invalid or expired token"}
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		log.Printf("Token carries invalid user id %q", claims.UserID)
		return nil, &authFailure{http.StatusUnauthorized, "Invalid or expired token"}
	}

	user, err := users.FindUserByID(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("Token for unknown user %s", claims.UserID)
		return nil, &authFailure{http.StatusUnauthorized, "User not found"}
	}
	if err != nil {
		log.Printf("Error loading user %s: %v", claims.UserID, err)
		return nil, &authFailure{http.StatusInternalServerError, "Internal server error"}
	}
	if !user.IsActive {
		log.Printf("Deactivated user %s denied for %s %s", claims.UserID, r.Method, r.URL)
		return nil, &authFailure{http.StatusForbidden, "Account has been deactivated"}
	}
	return user, nil
}

func withIdentity(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), controllers.UserIDKey, user.ID.Hex())
	ctx = context.WithValue(ctx, controllers.RoleKey, user.Role)
	return r.WithContext(ctx)
}

// AuthMiddleware validates the bearer token and reloads its user on every
// request. The role placed in the context is the stored one, so demoted or
// deactivated accounts lose access before their token expires.
func AuthMiddleware(tokens TokenValidator, users UserLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, failure := authenticate(r, tokens, users)
			if failure != nil {
				http.Error(w, failure.message, failure.status)
				return
			}
			next.ServeHTTP(w, withIdentity(r, user))
		})
	}
}

// OptionalAuth attaches the caller's identity when a usable token is sent
// and otherwise serves the request anonymously.
func OptionalAuth(tokens TokenValidator, users UserLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				if user, failure := authenticate(r, tokens, users); failure == nil {
					r = withIdentity(r, user)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
