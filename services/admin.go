package services

import (
	"context"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type AuditPage struct {
	Logs  []models.AuditLog `json:"logs"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
	Total int64             `json:"total"`
}

type Dashboard struct {
	Users         int64              `json:"users"`
	Properties    int64              `json:"properties"`
	Bookings      int64              `json:"bookings"`
	Verifications *VerificationStats `json:"verifications"`
}

// UserSummary is one row of the admin user list.
type UserSummary struct {
	ID                 primitive.ObjectID `json:"_id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone,omitempty"`
	Role               string             `json:"role"`
	IsVerified         bool               `json:"isVerified"`
	IsActive           bool               `json:"isActive"`
	VerificationStatus string             `json:"verificationStatus"`
	LastLoginAt        *time.Time         `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

type UserPage struct {
	Users []UserSummary `json:"users"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
	Total int64         `json:"total"`
}

type UserStats struct {
	PropertiesCount int64 `json:"propertiesCount"`
	BookingsCount   int64 `json:"bookingsCount"`
}

type UserDetails struct {
	*models.User
	VerificationStatus string    `json:"verificationStatus"`
	Stats              UserStats `json:"stats"`
}

type LoginEntry struct {
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
}

type LoginHistory struct {
	User         UserSummary  `json:"user"`
	LoginHistory []LoginEntry `json:"loginHistory"`
}

type adminStore interface {
	repository.UserRepository
	repository.PropertyRepository
	repository.BookingRepository
	repository.ActivityRepository
}

type AdminService struct {
	store         adminStore
	verifications *VerificationService
	now           func() time.Time
}

func NewAdminService(store adminStore, verifications *VerificationService) *AdminService {
	return &AdminService{store: store, verifications: verifications, now: time.Now}
}

// Analytics returns the daily counters of the last `days` days, today included.
func (s *AdminService) Analytics(ctx context.Context, days int) ([]models.Analytics, error) {
	if days < 1 || days > 365 {
		days = 30
	}
	to := s.now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))

	out, err := s.store.FindAnalytics(ctx, from, to)
	if err != nil {
		return nil, storeError("analytics", err)
	}
	if out == nil {
		out = []models.Analytics{}
	}
	return out, nil
}

func (s *AdminService) RecentActivity(ctx context.Context, limit int, activityType string) ([]models.Activity, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	activities, err := s.store.RecentActivity(ctx, activityType, int64(limit))
	if err != nil {
		return nil, storeError("activities", err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

func (s *AdminService) AuditLogs(ctx context.Context, filter repository.AuditFilter, page, limit int) (*AuditPage, error) {
	page, limit, skip := pageBounds(page, limit, 50, 200)

	logs, err := s.store.FindAuditLogs(ctx, filter, skip, int64(limit))
	if err != nil {
		return nil, storeError("audit logs", err)
	}
	total, err := s.store.CountAuditLogs(ctx, filter)
	if err != nil {
		return nil, storeError("audit logs", err)
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return &AuditPage{Logs: logs, Page: page, Pages: pageCount(total, limit), Total: total}, nil
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountUsers(gctx, repository.UserFilter{})
		d.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountProperties(gctx, repository.PropertyFilter{})
		d.Properties = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountBookings(gctx)
		d.Bookings = n
		return err
	})
	g.Go(func() error {
		stats, err := s.verifications.GetVerificationStats(gctx)
		d.Verifications = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("dashboard", err)
	}
	return &d, nil
}

func summarize(u *models.User) UserSummary {
	return UserSummary{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Phone:              u.Phone,
		Role:               u.Role,
		IsVerified:         u.IsVerified,
		IsActive:           u.IsActive,
		VerificationStatus: u.Verification.CurrentStatus(),
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, filter repository.UserFilter, page, limit int) (*UserPage, error) {
	if filter.Role != "" && filter.Role != models.RoleUser && filter.Role != models.RoleAgent && filter.Role != models.RoleAdmin {
		return nil, validationError("unknown role %q", filter.Role)
	}
	page, limit, skip := pageBounds(page, limit, 20, 100)

	users, err := s.store.ListUsers(ctx, filter, skip, int64(limit))
	if err != nil {
		return nil, storeError("users", err)
	}
	total, err := s.store.CountUsers(ctx, filter)
	if err != nil {
		return nil, storeError("users", err)
	}

	rows := make([]UserSummary, 0, len(users))
	for i := range users {
		rows = append(rows, summarize(&users[i]))
	}
	return &UserPage{Users: rows, Page: page, Pages: pageCount(total, limit), Total: total}, nil
}

func (s *AdminService) GetUser(ctx context.Context, userID primitive.ObjectID) (*UserDetails, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	details := &UserDetails{User: user, VerificationStatus: user.Verification.CurrentStatus()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountProperties(gctx, repository.PropertyFilter{Owner: &userID, IncludeHidden: true})
		details.Stats.PropertiesCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountBookingsForUser(gctx, userID)
		details.Stats.BookingsCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("user stats", err)
	}
	return details, nil
}

// LoginHistory lists a user's recorded logins, newest first, with the IP
// address partially masked.
func (s *AdminService) LoginHistory(ctx context.Context, userID primitive.ObjectID, limit int) (*LoginHistory, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	logins, err := s.store.FindUserActivity(ctx, userID, models.ActivityUserLogin, int64(limit))
	if err != nil {
		return nil, storeError("activities", err)
	}

	entries := make([]LoginEntry, 0, len(logins))
	for _, a := range logins {
		agent := a.UserAgent
		if agent == "" {
			agent = "N/A"
		}
		entries = append(entries, LoginEntry{
			Timestamp: a.CreatedAt,
			IPAddress: utils.MaskIPAddress(a.IPAddress),
			UserAgent: agent,
		})
	}
	return &LoginHistory{User: summarize(user), LoginHistory: entries}, nil
}
