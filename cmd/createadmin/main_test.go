package main

import (
	"context"
	"testing"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
)

func TestEnsureAdminCreates(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	user, err := ensureAdmin(ctx, store, "root@example.com", "Root", "s3cret!")
	if err != nil {
		t.Fatalf("ensureAdmin: %v", err)
	}
	if user.Role != models.RoleAdmin || !utils.CheckPasswordHash("s3cret!", user.Password) {
		t.Fatalf("unexpected admin %+v", user)
	}

	if _, err := ensureAdmin(ctx, store, "other@example.com", "Other", "abc"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestEnsureAdminPromotes(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateUser(ctx, &models.User{Email: "ada@example.com", Role: models.RoleUser}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, err := ensureAdmin(ctx, store, "ada@example.com", "", "")
	if err != nil {
		t.Fatalf("ensureAdmin: %v", err)
	}
	stored, _ := store.FindUserByEmail(ctx, "ada@example.com")
	if user.Role != models.RoleAdmin || stored.Role != models.RoleAdmin {
		t.Fatalf("user not promoted: %+v", stored)
	}
}
