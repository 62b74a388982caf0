package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Users      *mongo.Collection
	Properties *mongo.Collection
	Bookings   *mongo.Collection
	Activities *mongo.Collection
	AuditLogs  *mongo.Collection
	Analytics  *mongo.Collection
}

func ConnectDB(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %v", err)
	}

	log.Println("Connected to MongoDB")
	return client, nil
}

func InitCollections(client *mongo.Client, dbName string) Collections {
	db := client.Database(dbName)
	return Collections{
		Users:      db.Collection("users"),
		Properties: db.Collection("properties"),
		Bookings:   db.Collection("bookings"),
		Activities: db.Collection("activities"),
		AuditLogs:  db.Collection("auditlogs"),
		Analytics:  db.Collection("analytics"),
	}
}

// EnsureIndexes creates the indexes implied by the query patterns.
// CreateMany is a no-op for indexes that already exist.
func EnsureIndexes(ctx context.Context, cols Collections) error {
	keys := func(fields ...string) bson.D {
		d := bson.D{}
		for _, k := range fields {
			v := 1
			if k == "createdAt" {
				v = -1
			}
			d = append(d, bson.E{Key: k, Value: v})
		}
		return d
	}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		cols.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "nickname", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "verification.status", Value: 1}, {Key: "verification.submittedAt", Value: 1}}},
			{Keys: bson.D{{Key: "favoriteProperties", Value: 1}}},
			{Keys: keys("role", "createdAt")},
		},
		cols.Properties: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "likes", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "location.city", Value: "text"},
				{Key: "location.state", Value: "text"},
				{Key: "location.address", Value: "text"},
			}},
		},
		cols.Bookings: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: keys("createdAt")},
		},
		cols.Activities: {
			{Keys: keys("createdAt")},
			{Keys: keys("type", "createdAt")},
			{Keys: keys("user", "createdAt")},
		},
		cols.AuditLogs: {
			{Keys: keys("admin", "createdAt")},
			{Keys: keys("action", "createdAt")},
			{Keys: keys("targetUser", "createdAt")},
		},
		cols.Analytics: {
			{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, specs := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func CloseDBConnection(client *mongo.Client) {
	if err := client.Disconnect(context.TODO()); err != nil {
		log.Printf("Error closing database connection: %v", err)
		return
	}
	log.Println("MongoDB connection closed")
}
