package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/cache"
	"github.com/dcode-github/rental_marketplace/backend/config"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/routes"
	"github.com/dcode-github/rental_marketplace/backend/services"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func setupRouter(svc routes.Services) *mux.Router {
	router := mux.NewRouter()
	routes.Routes(router, svc)
	return router
}

func listingCache(client *redis.Client, ttl time.Duration) cache.ListingCache {
	if client == nil {
		return cache.Noop{}
	}
	return cache.NewRedisListingCache(client, ttl)
}

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	encryptor, err := utils.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize encryption: %v", err)
	}

	client, err := config.ConnectDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer config.CloseDBConnection(client)

	cols := config.InitCollections(client, cfg.DBName)
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := config.EnsureIndexes(indexCtx, cols); err != nil {
		log.Printf("Error creating indexes: %v", err)
	}
	cancelIndexes()

	redisClient, err := config.InitRedis(cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		log.Printf("%v, continuing without listing cache", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	listings := listingCache(redisClient, cfg.ListingCacheTTL)

	store := repository.NewMongoStore(client, cols, cfg.UseTransactions)
	tokens := utils.NewJWTManager(cfg.JWTKey, cfg.JWTTTL)
	activity := services.NewActivityLogger(store)
	verifications := services.NewVerificationService(store, encryptor, activity, cfg.AllowResubmitAfterRejection)

	router := setupRouter(routes.Services{
		Tokens:        tokens,
		Accounts:      store,
		Users:         services.NewUserService(store, tokens, activity),
		Properties:    services.NewPropertyService(store, listings, activity),
		Bookings:      services.NewBookingService(store, listings, activity),
		Verifications: verifications,
		Admin:         services.NewAdminService(store, verifications),
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.ReconcileEnabled() {
		go services.NewLikeReconciler(store).Run(bgCtx, cfg.ReconcileInterval)
	} else {
		log.Printf("Like reconciliation disabled (transactions=%v, interval=%s)", cfg.UseTransactions, cfg.ReconcileInterval)
	}

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	handler := corsOptions.Handler(router)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
