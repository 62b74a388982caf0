// Package repository holds the persistence ports of the marketplace and
// their MongoDB and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

type UserFilter struct {
	Role               string
	VerificationStatus string
	IsActive           *bool
	// Search matches name or email, case-insensitively.
	Search string
}

// UserRepository persists users. SaveUser writes every field except
// favoriteProperties, which only changes through the favorite methods so
// that whole-document saves never race with like toggles.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByNickname(ctx context.Context, nickname string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// FindUsersByVerificationStatus returns users ordered by verification.submittedAt ascending.
	FindUsersByVerificationStatus(ctx context.Context, status string, skip, limit int64) ([]models.User, error)
	// CountUsersByVerificationStatus counts documents without a status as unverified.
	CountUsersByVerificationStatus(ctx context.Context, status string) (int64, error)
	// ListUsers returns matching users newest first.
	ListUsers(ctx context.Context, filter UserFilter, skip, limit int64) ([]models.User, error)
	CountUsers(ctx context.Context, filter UserFilter) (int64, error)
	FindUsersWithFavorites(ctx context.Context) ([]models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)

	AddFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) error
	PullFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) error
	PullFavoriteFromAll(ctx context.Context, propertyID primitive.ObjectID) error
	// SetFavorites replaces favoriteProperties only while it still equals
	// expected, and reports whether it did.
	SetFavorites(ctx context.Context, userID primitive.ObjectID, expected, want []primitive.ObjectID) (bool, error)
}

type PropertyFilter struct {
	Type     string
	Category string
	State    string
	Owner    *primitive.ObjectID
	MinPrice *float64
	MaxPrice *float64
	// Bedrooms is a lower bound.
	Bedrooms int
	// Query is a full-text search over title, description and location.
	Query         string
	IncludeHidden bool
}

// PropertyRepository persists properties. SaveProperty leaves likes alone;
// AddLike and PullLike own that field.
type PropertyRepository interface {
	CreateProperty(ctx context.Context, property *models.Property) error
	FindPropertyByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	FindPropertiesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Property, error)
	SaveProperty(ctx context.Context, property *models.Property) error
	DeleteProperty(ctx context.Context, id primitive.ObjectID) error
	ListProperties(ctx context.Context, filter PropertyFilter, skip, limit int64) ([]models.Property, error)
	CountProperties(ctx context.Context, filter PropertyFilter) (int64, error)
	FindLikedProperties(ctx context.Context) ([]models.Property, error)
	FindPropertiesLikedBy(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error)

	AddLike(ctx context.Context, propertyID, userID primitive.ObjectID) error
	PullLike(ctx context.Context, propertyID, userID primitive.ObjectID) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	FindBookingByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	SaveBooking(ctx context.Context, booking *models.Booking) error
	// FindBookingsForUser returns bookings requested or owned by userID, newest first.
	FindBookingsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error)
	CountBookings(ctx context.Context) (int64, error)
	CountBookingsForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type AuditFilter struct {
	Admin      *primitive.ObjectID
	Action     string
	TargetUser *primitive.ObjectID
	From       *time.Time
	To         *time.Time
}

type ActivityRepository interface {
	InsertActivity(ctx context.Context, activity *models.Activity) error
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
	IncrementMetric(ctx context.Context, day time.Time, metric string) error
	RecentActivity(ctx context.Context, activityType string, limit int64) ([]models.Activity, error)
	// FindUserActivity returns userID's activities of activityType, newest first.
	FindUserActivity(ctx context.Context, userID primitive.ObjectID, activityType string, limit int64) ([]models.Activity, error)
	FindAuditLogs(ctx context.Context, filter AuditFilter, skip, limit int64) ([]models.AuditLog, error)
	CountAuditLogs(ctx context.Context, filter AuditFilter) (int64, error)
	FindAnalytics(ctx context.Context, from, to time.Time) ([]models.Analytics, error)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or aborts together.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Store interface {
	UserRepository
	PropertyRepository
	BookingRepository
	ActivityRepository
	Transactor
}
