package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reconcileStore interface {
	repository.PropertyRepository
	repository.UserRepository
}

type SweepReport struct {
	PropertiesScanned int `json:"propertiesScanned"`
	UsersRepaired     int `json:"usersRepaired"`
	LikesPruned       int `json:"likesPruned"`
}

// LikeReconciler repairs drift between Property.likes and
// User.favoriteProperties left by writes that could not run in a
// transaction. Property.likes wins.
//
// Favorites are replaced only while they still hold the value the sweep
// read, and dangling likes are pulled one at a time. A sweep never writes
// any other field.
type LikeReconciler struct {
	store reconcileStore
}

func NewLikeReconciler(store reconcileStore) *LikeReconciler {
	return &LikeReconciler{store: store}
}

func (r *LikeReconciler) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}

	liked, err := r.store.FindLikedProperties(ctx)
	if err != nil {
		return nil, storeError("properties", err)
	}
	report.PropertiesScanned = len(liked)

	withFavorites, err := r.store.FindUsersWithFavorites(ctx)
	if err != nil {
		return nil, storeError("users", err)
	}

	// Only ids are taken from the scans; each user is re-read below.
	var candidates []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			candidates = append(candidates, id)
		}
	}
	for _, u := range withFavorites {
		add(u.ID)
	}
	for _, p := range liked {
		for _, userID := range p.Likes {
			add(userID)
		}
	}

	for _, userID := range candidates {
		repaired, pruned, err := r.reconcileUser(ctx, userID)
		if err != nil {
			return report, err
		}
		if repaired {
			report.UsersRepaired++
		}
		report.LikesPruned += pruned
	}
	return report, nil
}

// reconcileUser aligns one user's favorites with the likes that name them,
// or pulls those likes when the user no longer exists.
func (r *LikeReconciler) reconcileUser(ctx context.Context, userID primitive.ObjectID) (bool, int, error) {
	user, err := r.store.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		pruned, err := r.pruneLikes(ctx, userID)
		return false, pruned, err
	}
	if err != nil {
		return false, 0, storeError("user", err)
	}

	liked, err := r.store.FindPropertiesLikedBy(ctx, userID)
	if err != nil {
		return false, 0, storeError("properties", err)
	}
	want := make([]primitive.ObjectID, 0, len(liked))
	for _, p := range liked {
		want = append(want, p.ID)
	}
	if sameIDSet(user.FavoriteProperties, want) {
		return false, 0, nil
	}

	ok, err := r.store.SetFavorites(ctx, userID, user.FavoriteProperties, want)
	if err != nil {
		return false, 0, storeError("user", err)
	}
	if !ok {
		log.Printf("Favorites of %s changed during reconciliation, leaving them for the next sweep", userID.Hex())
	}
	return ok, 0, nil
}

func (r *LikeReconciler) pruneLikes(ctx context.Context, userID primitive.ObjectID) (int, error) {
	liked, err := r.store.FindPropertiesLikedBy(ctx, userID)
	if err != nil {
		return 0, storeError("properties", err)
	}
	pruned := 0
	for _, p := range liked {
		err := r.store.PullLike(ctx, p.ID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return pruned, storeError("property", err)
		}
		pruned++
	}
	return pruned, nil
}

// Run sweeps every interval until ctx is done.
func (r *LikeReconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Sweep(ctx)
			if err != nil {
				log.Printf("Like reconciliation failed: %v", err)
				continue
			}
			if report.UsersRepaired > 0 || report.LikesPruned > 0 {
				log.Printf("Like reconciliation repaired %d users, pruned %d likes", report.UsersRepaired, report.LikesPruned)
			}
		}
	}
}

func sameIDSet(a, b []primitive.ObjectID) bool {
	set := make(map[primitive.ObjectID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	other := make(map[primitive.ObjectID]bool, len(b))
	for _, id := range b {
		if !set[id] {
			return false
		}
		other[id] = true
	}
	return len(set) == len(other)
}
