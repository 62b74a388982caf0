package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	store         *repository.MemoryStore
	clock         *testClock
	activity      *ActivityLogger
	verifications *VerificationService
	properties    *PropertyService
	bookings      *BookingService
	users         *UserService
	admin         *AdminService
}

type stubTokens struct{}

func (stubTokens) GenerateJWT(userID, role string) (string, error) {
	return "token-" + userID + "-" + role, nil
}

func newTestEncryptor(t *testing.T) *utils.Encryptor {
	t.Helper()
	enc, err := utils.NewEncryptor("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	return enc
}

func newTestEnvWithStore(t *testing.T, store *repository.MemoryStore, activityRepo repository.ActivityRepository) *testEnv {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}

	activity := NewActivityLogger(activityRepo)
	activity.now = clock.Now

	env := &testEnv{store: store, clock: clock, activity: activity}
	env.verifications = NewVerificationService(store, newTestEncryptor(t), activity, false)
	env.verifications.now = clock.Now
	env.properties = NewPropertyService(store, nil, activity)
	env.properties.now = clock.Now
	env.bookings = NewBookingService(store, nil, activity)
	env.bookings.now = clock.Now
	env.users = NewUserService(store, stubTokens{}, activity)
	env.users.now = clock.Now
	env.admin = NewAdminService(store, env.verifications)
	env.admin.now = clock.Now
	return env
}

func newTestEnv(t *testing.T) *testEnv {
	store := repository.NewMemoryStore()
	return newTestEnvWithStore(t, store, store)
}

func (e *testEnv) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: e.clock.Now(),
	}
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedProperty(t *testing.T, owner primitive.ObjectID) *models.Property {
	t.Helper()
	property, err := e.properties.CreateProperty(context.Background(), owner, PropertyInput{
		Title:       "Two bedroom flat",
		Description: "Bright flat close to the market",
		Price:       1500000,
		Type:        models.ListingRent,
		Category:    "apartment",
		Bedrooms:    2,
		Bathrooms:   1,
		Location:    models.Location{State: "Lagos", City: "Ikeja", Address: "3 Allen Ave"},
	})
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return property
}

func (e *testEnv) user(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := e.store.FindUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u
}

func (e *testEnv) property(t *testing.T, id primitive.ObjectID) *models.Property {
	t.Helper()
	p, err := e.store.FindPropertyByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load property: %v", err)
	}
	return p
}

func countActivities(store *repository.MemoryStore, activityType string) int {
	n := 0
	for _, a := range store.Activities() {
		if a.Type == activityType {
			n++
		}
	}
	return n
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

// failingActivityRepo rejects every write so tests can prove logging is best-effort.
type failingActivityRepo struct {
	repository.ActivityRepository
}

var errSinkDown = errors.New("sink unavailable")

func (failingActivityRepo) InsertActivity(context.Context, *models.Activity) error { return errSinkDown }
func (failingActivityRepo) InsertAuditLog(context.Context, *models.AuditLog) error { return errSinkDown }
func (failingActivityRepo) IncrementMetric(context.Context, time.Time, string) error {
	return errSinkDown
}
