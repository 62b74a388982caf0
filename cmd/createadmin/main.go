// Command createadmin creates an admin account, or promotes an existing
// account with the same email.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/config"
	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Administrator", "display name for a new account")
	password := flag.String("password", "", "password for a new account")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	config.LoadEnv()
	uri, dbName, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	client, err := config.ConnectDB(uri)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer config.CloseDBConnection(client)

	store := repository.NewMongoStore(client, config.InitCollections(client, dbName), false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := ensureAdmin(ctx, store, strings.ToLower(strings.TrimSpace(*email)), *name, *password)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	log.Printf("Admin ready: %s (%s)", user.Email, user.ID.Hex())
}

func ensureAdmin(ctx context.Context, users repository.UserRepository, email, name, password string) (*models.User, error) {
	existing, err := users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			log.Printf("%s is already an admin", email)
			return existing, nil
		}
		existing.Role = models.RoleAdmin
		existing.UpdatedAt = time.Now()
		if err := users.SaveUser(ctx, existing); err != nil {
			return nil, err
		}
		log.Printf("Promoted %s to admin", email)
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if len(password) < 6 {
		return nil, errors.New("-password of at least 6 characters is required for a new account")
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		Email:              email,
		Password:           hashed,
		Role:               models.RoleAdmin,
		Verification:       models.Verification{Status: models.VerificationUnverified},
		IsActive:           true,
		FavoriteProperties: []primitive.ObjectID{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("Created admin %s", email)
	return user, nil
}
