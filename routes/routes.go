package routes

import (
	"github.com/dcode-github/rental_marketplace/backend/controllers"
	"github.com/dcode-github/rental_marketplace/backend/middleware"
	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/services"
	"github.com/gorilla/mux"
)

type Services struct {
	Tokens        middleware.TokenValidator
	Accounts      middleware.UserLookup
	Users         *services.UserService
	Properties    *services.PropertyService
	Bookings      *services.BookingService
	Verifications *services.VerificationService
	Admin         *services.AdminService
}

func Routes(router *mux.Router, svc Services) {
	router.Use(middleware.RequestInfo)

	// Auth routes
	router.HandleFunc("/register", controllers.RegisterUser(svc.Users)).Methods("POST")
	router.HandleFunc("/login", controllers.LoginUser(svc.Users)).Methods("POST")

	// Public routes; a valid token is attached when sent
	public := router.PathPrefix("/public").Subrouter()
	public.Use(middleware.OptionalAuth(svc.Tokens, svc.Accounts))
	public.HandleFunc("/users/nickname/check", controllers.CheckNickname(svc.Users)).Methods("GET")
	public.HandleFunc("/users/{nickname}", controllers.GetPublicProfile(svc.Users)).Methods("GET")

	// Routes that require authentication
	authenticated := router.PathPrefix("/api").Subrouter()
	authenticated.Use(middleware.AuthMiddleware(svc.Tokens, svc.Accounts))

	// Property routes
	authenticated.HandleFunc("/properties", controllers.CreateProperty(svc.Properties)).Methods("POST")
	authenticated.HandleFunc("/properties", controllers.GetAllProperties(svc.Properties)).Methods("GET")
	authenticated.HandleFunc("/properties/search", controllers.SearchProperties(svc.Properties)).Methods("GET")
	authenticated.HandleFunc("/properties/{id}", controllers.GetPropertyByID(svc.Properties)).Methods("GET")
	authenticated.HandleFunc("/properties/{id}", controllers.UpdateProperty(svc.Properties)).Methods("PUT")
	authenticated.HandleFunc("/properties/{id}", controllers.DeleteProperty(svc.Properties)).Methods("DELETE")
	authenticated.HandleFunc("/properties/{id}/status", controllers.UpdatePropertyStatus(svc.Properties)).Methods("PUT")
	authenticated.HandleFunc("/properties/{id}/like", controllers.ToggleLike(svc.Properties)).Methods("POST")

	// User routes
	authenticated.HandleFunc("/users/me", controllers.GetProfile(svc.Users)).Methods("GET")
	authenticated.HandleFunc("/users/me", controllers.UpdateProfile(svc.Users)).Methods("PUT")
	authenticated.HandleFunc("/users/me/password", controllers.ChangePassword(svc.Users)).Methods("PUT")
	authenticated.HandleFunc("/users/me/favorites", controllers.GetFavorites(svc.Users)).Methods("GET")
	authenticated.HandleFunc("/users/verification", controllers.SubmitVerification(svc.Verifications)).Methods("POST")
	authenticated.HandleFunc("/users/verification/status", controllers.GetVerificationStatus(svc.Verifications)).Methods("GET")
	authenticated.HandleFunc("/users/{id}/properties", controllers.GetUserProperties(svc.Properties)).Methods("GET")

	// Booking routes
	authenticated.HandleFunc("/bookings", controllers.CreateBooking(svc.Bookings)).Methods("POST")
	authenticated.HandleFunc("/bookings", controllers.GetBookings(svc.Bookings)).Methods("GET")
	authenticated.HandleFunc("/bookings/{id}", controllers.UpdateBookingStatus(svc.Bookings)).Methods("PUT")

	// Admin routes
	admin := authenticated.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(models.RoleAdmin))

	admin.HandleFunc("/verifications", controllers.GetPendingVerifications(svc.Verifications)).Methods("GET")
	admin.HandleFunc("/verifications/stats", controllers.GetVerificationStats(svc.Verifications)).Methods("GET")
	admin.HandleFunc("/verifications/{id}/approve", controllers.ApproveVerification(svc.Verifications)).Methods("POST")
	admin.HandleFunc("/verifications/{id}/reject", controllers.RejectVerification(svc.Verifications)).Methods("POST")
	admin.HandleFunc("/users", controllers.ListUsers(svc.Admin)).Methods("GET")
	admin.HandleFunc("/users/{id}", controllers.GetUser(svc.Admin)).Methods("GET")
	admin.HandleFunc("/users/{id}/login-history", controllers.GetLoginHistory(svc.Admin)).Methods("GET")
	admin.HandleFunc("/activity", controllers.GetRecentActivity(svc.Admin)).Methods("GET")
	admin.HandleFunc("/audit-logs", controllers.GetAuditLogs(svc.Admin)).Methods("GET")
	admin.HandleFunc("/analytics", controllers.GetAnalytics(svc.Admin)).Methods("GET")
	admin.HandleFunc("/dashboard", controllers.GetDashboard(svc.Admin)).Methods("GET")
}
