package services

import (
	"context"
	"testing"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// interleavedStore runs a write right after one of the sweep's scans, the
// way a request would land while a sweep is in flight.
type interleavedStore struct {
	*repository.MemoryStore
	afterLikedScan     func()
	afterFavoritesScan func()
}

func (s *interleavedStore) FindLikedProperties(ctx context.Context) ([]models.Property, error) {
	properties, err := s.MemoryStore.FindLikedProperties(ctx)
	if s.afterLikedScan != nil {
		s.afterLikedScan()
		s.afterLikedScan = nil
	}
	return properties, err
}

func (s *interleavedStore) FindUsersWithFavorites(ctx context.Context) ([]models.User, error) {
	users, err := s.MemoryStore.FindUsersWithFavorites(ctx)
	if s.afterFavoritesScan != nil {
		s.afterFavoritesScan()
		s.afterFavoritesScan = nil
	}
	return users, err
}

func TestSweepRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	fan := env.seedUser(t, "fan")
	ghostFan := env.seedUser(t, "ghost")
	first := env.seedProperty(t, owner.ID)
	second := env.seedProperty(t, owner.ID)

	// fan liked first but the favorites write was lost.
	if err := env.store.AddLike(ctx, first.ID, fan.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	// a like from a user that no longer exists.
	if err := env.store.AddLike(ctx, first.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("like: %v", err)
	}
	// ghost has a favorite that the property never recorded.
	if err := env.store.AddFavorite(ctx, ghostFan.ID, second.ID); err != nil {
		t.Fatalf("favorite: %v", err)
	}

	report, err := NewLikeReconciler(env.store).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.PropertiesScanned != 1 || report.UsersRepaired != 2 || report.LikesPruned != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	if favs := env.user(t, fan.ID).FavoriteProperties; len(favs) != 1 || favs[0] != first.ID {
		t.Fatalf("fan favorites not restored: %v", favs)
	}
	if favs := env.user(t, ghostFan.ID).FavoriteProperties; len(favs) != 0 {
		t.Fatalf("orphan favorite kept: %v", favs)
	}
	if likes := env.property(t, first.ID).Likes; len(likes) != 1 || likes[0] != fan.ID {
		t.Fatalf("dangling like not pruned: %v", likes)
	}
	assertLikeConsistency(t, env, first.ID, fan, ghostFan, owner)
	assertLikeConsistency(t, env, second.ID, fan, ghostFan, owner)

	report, err = NewLikeReconciler(env.store).Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if report.UsersRepaired != 0 || report.LikesPruned != 0 {
		t.Fatalf("consistent data should need no repairs: %+v", report)
	}
}

func TestSweepKeepsConcurrentApproval(t *testing.T) {
	mem := repository.NewMemoryStore()
	env := newTestEnvWithStore(t, mem, mem)
	ctx := context.Background()
	admin := env.seedUser(t, "admin")
	owner := env.seedUser(t, "owner")
	applicant := env.seedUser(t, "applicant")
	first := env.seedProperty(t, owner.ID)
	second := env.seedProperty(t, owner.ID)

	if _, err := env.verifications.SubmitVerification(ctx, applicant.ID, validInput(), docURL); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.properties.ToggleLikeAndFavorite(ctx, first.ID, applicant.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// a stale favorite so the sweep has to write this user.
	if err := mem.AddFavorite(ctx, applicant.ID, second.ID); err != nil {
		t.Fatalf("favorite: %v", err)
	}

	store := &interleavedStore{MemoryStore: mem}
	store.afterFavoritesScan = func() {
		if _, err := env.verifications.ApproveVerification(ctx, applicant.ID, admin.ID); err != nil {
			t.Errorf("approve: %v", err)
		}
	}

	report, err := NewLikeReconciler(store).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.UsersRepaired != 1 {
		t.Fatalf("expected the stale favorite to be repaired: %+v", report)
	}

	got := env.user(t, applicant.ID)
	if got.Verification.Status != models.VerificationVerified || !got.IsVerified {
		t.Fatalf("sweep undid a concurrent approval: status=%q isVerified=%v", got.Verification.Status, got.IsVerified)
	}
	if len(got.FavoriteProperties) != 1 || got.FavoriteProperties[0] != first.ID {
		t.Fatalf("unexpected favorites %v", got.FavoriteProperties)
	}
	assertLikeConsistency(t, env, first.ID, applicant)
	assertLikeConsistency(t, env, second.ID, applicant)
}

func TestSweepKeepsConcurrentToggle(t *testing.T) {
	mem := repository.NewMemoryStore()
	env := newTestEnvWithStore(t, mem, mem)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	fan := env.seedUser(t, "fan")
	first := env.seedProperty(t, owner.ID)
	second := env.seedProperty(t, owner.ID)

	if _, err := env.properties.ToggleLikeAndFavorite(ctx, first.ID, fan.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	store := &interleavedStore{MemoryStore: mem}
	store.afterLikedScan = func() {
		if _, err := env.properties.ToggleLikeAndFavorite(ctx, second.ID, fan.ID); err != nil {
			t.Errorf("toggle: %v", err)
		}
	}

	report, err := NewLikeReconciler(store).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.UsersRepaired != 0 || report.LikesPruned != 0 {
		t.Fatalf("consistent data was rewritten: %+v", report)
	}

	if favs := env.user(t, fan.ID).FavoriteProperties; len(favs) != 2 {
		t.Fatalf("expected both favorites, got %v", favs)
	}
	assertLikeConsistency(t, env, first.ID, fan, owner)
	assertLikeConsistency(t, env, second.ID, fan, owner)
}

// staleFavorites changes a user's favorites between the sweep's read and
// its conditional write.
type staleFavorites struct {
	*repository.MemoryStore
	userID     primitive.ObjectID
	propertyID primitive.ObjectID
}

func (s *staleFavorites) FindPropertiesLikedBy(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	properties, err := s.MemoryStore.FindPropertiesLikedBy(ctx, userID)
	if userID == s.userID {
		if err := s.MemoryStore.AddFavorite(ctx, s.userID, s.propertyID); err != nil {
			return nil, err
		}
	}
	return properties, err
}

func TestSweepSkipsFavoritesChangedMidway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	fan := env.seedUser(t, "fan")
	first := env.seedProperty(t, owner.ID)
	second := env.seedProperty(t, owner.ID)

	if err := env.store.AddLike(ctx, first.ID, fan.ID); err != nil {
		t.Fatalf("like: %v", err)
	}

	store := &staleFavorites{MemoryStore: env.store, userID: fan.ID, propertyID: second.ID}
	report, err := NewLikeReconciler(store).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.UsersRepaired != 0 {
		t.Fatalf("a write filtered on stale favorites went through: %+v", report)
	}
	if favs := env.user(t, fan.ID).FavoriteProperties; len(favs) != 1 || favs[0] != second.ID {
		t.Fatalf("concurrent favorite lost: %v", favs)
	}
}

func TestSameIDSet(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	cases := []struct {
		x, y []primitive.ObjectID
		want bool
	}{
		{nil, nil, true},
		{[]primitive.ObjectID{a, b}, []primitive.ObjectID{b, a}, true},
		{[]primitive.ObjectID{a, a}, []primitive.ObjectID{a}, true},
		{[]primitive.ObjectID{a}, []primitive.ObjectID{a, c}, false},
		{[]primitive.ObjectID{a, b}, []primitive.ObjectID{a, c}, false},
	}
	for i, tc := range cases {
		if got := sameIDSet(tc.x, tc.y); got != tc.want {
			t.Errorf("case %d: sameIDSet = %v, want %v", i, got, tc.want)
		}
	}
}
