package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/config"
	"github.com/dcode-github/rental_marketplace/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store over the collections opened by config.InitCollections.
type MongoStore struct {
	client          *mongo.Client
	cols            config.Collections
	useTransactions bool
}

func NewMongoStore(client *mongo.Client, cols config.Collections, useTransactions bool) *MongoStore {
	return &MongoStore{client: client, cols: cols, useTransactions: useTransactions}
}

// WithTransaction needs a replica set. With transactions disabled fn runs
// directly and a failure between writes is left to the like reconciler.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.useTransactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := s.cols.Users.InsertOne(ctx, user)
	return translate(err)
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.cols.Users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"nickname": nickname})
}

// replaceKeeping replaces the document with doc but keeps the stored value
// of field, in a single server-side update. doc is wrapped in $literal so
// user text starting with '$' is never read as an expression.
func replaceKeeping(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, doc interface{}, field string) error {
	pipeline := mongo.Pipeline{
		{{Key: "$replaceWith", Value: bson.M{"$mergeObjects": bson.A{
			bson.M{"$literal": doc},
			bson.M{field: bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}}},
		}}}},
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func updateByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, update bson.M) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveUser(ctx context.Context, user *models.User) error {
	return replaceKeeping(ctx, s.cols.Users, user.ID, user, "favoriteProperties")
}

func (s *MongoStore) RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return updateByID(ctx, s.cols.Users, id, bson.M{"$set": bson.M{"lastLoginAt": at}})
}

func (s *MongoStore) AddFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return updateByID(ctx, s.cols.Users, userID, bson.M{"$addToSet": bson.M{"favoriteProperties": propertyID}})
}

func (s *MongoStore) PullFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return updateByID(ctx, s.cols.Users, userID, bson.M{"$pull": bson.M{"favoriteProperties": propertyID}})
}

func (s *MongoStore) PullFavoriteFromAll(ctx context.Context, propertyID primitive.ObjectID) error {
	_, err := s.cols.Users.UpdateMany(ctx,
		bson.M{"favoriteProperties": propertyID},
		bson.M{"$pull": bson.M{"favoriteProperties": propertyID}},
	)
	return err
}

func (s *MongoStore) SetFavorites(ctx context.Context, userID primitive.ObjectID, expected, want []primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": userID}
	if len(expected) == 0 {
		// null also matches a missing field.
		filter["$or"] = bson.A{
			bson.M{"favoriteProperties": nil},
			bson.M{"favoriteProperties": bson.M{"$size": 0}},
		}
	} else {
		filter["favoriteProperties"] = expected
	}

	res, err := s.cols.Users.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"favoriteProperties": append([]primitive.ObjectID{}, want...)},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func verificationStatusFilter(status string) bson.M {
	if status == models.VerificationUnverified {
		return bson.M{"$or": bson.A{
			bson.M{"verification.status": models.VerificationUnverified},
			bson.M{"verification.status": bson.M{"$exists": false}},
		}}
	}
	return bson.M{"verification.status": status}
}

func (s *MongoStore) FindUsersByVerificationStatus(ctx context.Context, status string, skip, limit int64) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "verification.submittedAt", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.cols.Users.Find(ctx, verificationStatusFilter(status), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) CountUsersByVerificationStatus(ctx context.Context, status string) (int64, error) {
	return s.cols.Users.CountDocuments(ctx, verificationStatusFilter(status))
}

func userQuery(filter UserFilter) bson.M {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.VerificationStatus != "" {
		for k, v := range verificationStatusFilter(filter.VerificationStatus) {
			query[k] = v
		}
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		search := bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
		if status, ok := query["$or"]; ok {
			delete(query, "$or")
			query["$and"] = bson.A{bson.M{"$or": status}, bson.M{"$or": search}}
		} else {
			query["$or"] = search
		}
	}
	return query
}

func (s *MongoStore) ListUsers(ctx context.Context, filter UserFilter, skip, limit int64) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.cols.Users.Find(ctx, userQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) CountUsers(ctx context.Context, filter UserFilter) (int64, error) {
	return s.cols.Users.CountDocuments(ctx, userQuery(filter))
}

func (s *MongoStore) FindUsersWithFavorites(ctx context.Context) ([]models.User, error) {
	return s.findUsers(ctx, bson.M{"favoriteProperties.0": bson.M{"$exists": true}})
}

func (s *MongoStore) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) findUsers(ctx context.Context, filter bson.M) ([]models.User, error) {
	cursor, err := s.cols.Users.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Properties

func (s *MongoStore) CreateProperty(ctx context.Context, property *models.Property) error {
	if property.ID.IsZero() {
		property.ID = primitive.NewObjectID()
	}
	_, err := s.cols.Properties.InsertOne(ctx, property)
	return translate(err)
}

func (s *MongoStore) FindPropertyByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var property models.Property
	if err := s.cols.Properties.FindOne(ctx, bson.M{"_id": id}).Decode(&property); err != nil {
		return nil, translate(err)
	}
	return &property, nil
}

func (s *MongoStore) FindPropertiesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findProperties(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (s *MongoStore) SaveProperty(ctx context.Context, property *models.Property) error {
	return replaceKeeping(ctx, s.cols.Properties, property.ID, property, "likes")
}

func (s *MongoStore) AddLike(ctx context.Context, propertyID, userID primitive.ObjectID) error {
	return updateByID(ctx, s.cols.Properties, propertyID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (s *MongoStore) PullLike(ctx context.Context, propertyID, userID primitive.ObjectID) error {
	return updateByID(ctx, s.cols.Properties, propertyID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (s *MongoStore) DeleteProperty(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.cols.Properties.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func propertyQuery(filter PropertyFilter) bson.M {
	query := bson.M{}
	if !filter.IncludeHidden {
		query["isHidden"] = bson.M{"$ne": true}
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.State != "" {
		query["location.state"] = filter.State
	}
	if filter.Owner != nil {
		query["owner"] = *filter.Owner
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		price := bson.M{}
		if filter.MinPrice != nil {
			price["$gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			price["$lte"] = *filter.MaxPrice
		}
		query["price"] = price
	}
	if filter.Bedrooms > 0 {
		query["bedrooms"] = bson.M{"$gte": filter.Bedrooms}
	}
	if filter.Query != "" {
		query["$text"] = bson.M{"$search": filter.Query}
	}
	return query
}

// ListProperties sorts text searches by relevance and everything else
// newest first.
func (s *MongoStore) ListProperties(ctx context.Context, filter PropertyFilter, skip, limit int64) ([]models.Property, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit)
	if filter.Query != "" {
		score := bson.M{"$meta": "textScore"}
		opts.SetProjection(bson.M{"score": score}).
			SetSort(bson.D{{Key: "score", Value: score}, {Key: "createdAt", Value: -1}})
	} else {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}
	return s.findProperties(ctx, propertyQuery(filter), opts)
}

func (s *MongoStore) CountProperties(ctx context.Context, filter PropertyFilter) (int64, error) {
	return s.cols.Properties.CountDocuments(ctx, propertyQuery(filter))
}

func (s *MongoStore) FindLikedProperties(ctx context.Context) ([]models.Property, error) {
	return s.findProperties(ctx, bson.M{"likes.0": bson.M{"$exists": true}}, nil)
}

func (s *MongoStore) FindPropertiesLikedBy(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	return s.findProperties(ctx, bson.M{"likes": userID}, nil)
}

func (s *MongoStore) findProperties(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Property, error) {
	cursor, err := s.cols.Properties.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

// Bookings

func (s *MongoStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	_, err := s.cols.Bookings.InsertOne(ctx, booking)
	return translate(err)
}

func (s *MongoStore) FindBookingByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	if err := s.cols.Bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *MongoStore) SaveBooking(ctx context.Context, booking *models.Booking) error {
	res, err := s.cols.Bookings.ReplaceOne(ctx, bson.M{"_id": booking.ID}, booking)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindBookingsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	filter := bson.M{"$or": bson.A{bson.M{"user": userID}, bson.M{"owner": userID}}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.cols.Bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *MongoStore) CountBookings(ctx context.Context) (int64, error) {
	return s.cols.Bookings.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) CountBookingsForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.cols.Bookings.CountDocuments(ctx, bson.M{"$or": bson.A{bson.M{"user": userID}, bson.M{"owner": userID}}})
}

// Activity, audit and analytics

func (s *MongoStore) InsertActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	_, err := s.cols.Activities.InsertOne(ctx, activity)
	return err
}

func (s *MongoStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := s.cols.AuditLogs.InsertOne(ctx, entry)
	return err
}

func (s *MongoStore) IncrementMetric(ctx context.Context, day time.Time, metric string) error {
	return retryOnDuplicate(func() error {
		_, err := s.cols.Analytics.UpdateOne(ctx,
			bson.M{"date": day},
			bson.M{"$inc": bson.M{"metrics." + metric: 1}},
			options.Update().SetUpsert(true),
		)
		return err
	})
}

// retryOnDuplicate runs fn a second time when an upsert lost the race to
// insert against a unique index; the winner's document now exists, so the
// retry updates it instead.
func retryOnDuplicate(fn func() error) error {
	err := fn()
	if mongo.IsDuplicateKeyError(err) {
		err = fn()
	}
	return err
}

func (s *MongoStore) RecentActivity(ctx context.Context, activityType string, limit int64) ([]models.Activity, error) {
	filter := bson.M{}
	if activityType != "" {
		filter["type"] = activityType
	}
	return s.findActivities(ctx, filter, limit)
}

func (s *MongoStore) FindUserActivity(ctx context.Context, userID primitive.ObjectID, activityType string, limit int64) ([]models.Activity, error) {
	filter := bson.M{"user": userID}
	if activityType != "" {
		filter["type"] = activityType
	}
	return s.findActivities(ctx, filter, limit)
}

func (s *MongoStore) findActivities(ctx context.Context, filter bson.M, limit int64) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)

	cursor, err := s.cols.Activities.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var activities []models.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func auditQuery(filter AuditFilter) bson.M {
	query := bson.M{}
	if filter.Admin != nil {
		query["admin"] = *filter.Admin
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.TargetUser != nil {
		query["targetUser"] = *filter.TargetUser
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["createdAt"] = created
	}
	return query
}

func (s *MongoStore) FindAuditLogs(ctx context.Context, filter AuditFilter, skip, limit int64) ([]models.AuditLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.cols.AuditLogs.Find(ctx, auditQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []models.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *MongoStore) CountAuditLogs(ctx context.Context, filter AuditFilter) (int64, error) {
	return s.cols.AuditLogs.CountDocuments(ctx, auditQuery(filter))
}

func (s *MongoStore) FindAnalytics(ctx context.Context, from, to time.Time) ([]models.Analytics, error) {
	filter := bson.M{"date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := s.cols.Analytics.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var days []models.Analytics
	if err := cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

var _ Store = (*MongoStore)(nil)
