package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store. Documents are copied on every read
// and write so callers never share state with the store, like a real
// database round trip.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users      map[primitive.ObjectID]*models.User
	properties map[primitive.ObjectID]*models.Property
	bookings   map[primitive.ObjectID]*models.Booking
	activities []models.Activity
	auditLogs  []models.AuditLog
	analytics  map[time.Time]*models.Analytics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[primitive.ObjectID]*models.User),
		properties: make(map[primitive.ObjectID]*models.Property),
		bookings:   make(map[primitive.ObjectID]*models.Booking),
		analytics:  make(map[time.Time]*models.Analytics),
	}
}

type memorySnapshot struct {
	users      map[primitive.ObjectID]*models.User
	properties map[primitive.ObjectID]*models.Property
	bookings   map[primitive.ObjectID]*models.Booking
}

type memoryTxKey struct{}

// WithTransaction serializes transactions and restores users, properties
// and bookings when fn fails. Nested calls join the outer transaction.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := memorySnapshot{
		users:      make(map[primitive.ObjectID]*models.User, len(s.users)),
		properties: make(map[primitive.ObjectID]*models.Property, len(s.properties)),
		bookings:   make(map[primitive.ObjectID]*models.Booking, len(s.bookings)),
	}
	for id, u := range s.users {
		snap.users[id] = cloneUser(u)
	}
	for id, p := range s.properties {
		snap.properties[id] = cloneProperty(p)
	}
	for id, b := range s.bookings {
		cp := *b
		snap.bookings[id] = &cp
	}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.users, s.properties, s.bookings = snap.users, snap.properties, snap.bookings
		s.mu.Unlock()
		return err
	}
	return nil
}

// Users

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicateKey
		}
		if user.Nickname != "" && existing.Nickname == user.Nickname {
			return ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUserWhere(func(u *models.User) bool { return u.Email == email })
}

func (s *MemoryStore) FindUserByNickname(_ context.Context, nickname string) (*models.User, error) {
	return s.findUserWhere(func(u *models.User) bool { return u.Nickname != "" && u.Nickname == nickname })
}

func (s *MemoryStore) findUserWhere(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if user.Nickname != "" {
		for id, other := range s.users {
			if id != user.ID && other.Nickname == user.Nickname {
				return ErrDuplicateKey
			}
		}
	}
	cp := cloneUser(user)
	cp.FavoriteProperties = existing.FavoriteProperties
	s.users[user.ID] = cp
	return nil
}

func (s *MemoryStore) RecordLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.updateUser(id, func(u *models.User) {
		u.LastLoginAt = &at
	})
}

func (s *MemoryStore) updateUser(id primitive.ObjectID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(user)
	return nil
}

func (s *MemoryStore) AddFavorite(_ context.Context, userID, propertyID primitive.ObjectID) error {
	return s.updateUser(userID, func(u *models.User) {
		u.FavoriteProperties = addToSet(u.FavoriteProperties, propertyID)
	})
}

func (s *MemoryStore) PullFavorite(_ context.Context, userID, propertyID primitive.ObjectID) error {
	return s.updateUser(userID, func(u *models.User) {
		u.FavoriteProperties = pull(u.FavoriteProperties, propertyID)
	})
}

func (s *MemoryStore) PullFavoriteFromAll(_ context.Context, propertyID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		u.FavoriteProperties = pull(u.FavoriteProperties, propertyID)
	}
	return nil
}

func (s *MemoryStore) SetFavorites(_ context.Context, userID primitive.ObjectID, expected, want []primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || !equalIDs(user.FavoriteProperties, expected) {
		return false, nil
	}
	user.FavoriteProperties = append([]primitive.ObjectID{}, want...)
	return true, nil
}

func (s *MemoryStore) FindUsersByVerificationStatus(_ context.Context, status string, skip, limit int64) ([]models.User, error) {
	s.mu.RLock()
	var matched []models.User
	for _, u := range s.users {
		if u.Verification.CurrentStatus() == status {
			matched = append(matched, *cloneUser(u))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Verification.SubmittedAt, matched[j].Verification.SubmittedAt
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return paginate(matched, skip, limit), nil
}

func (s *MemoryStore) CountUsersByVerificationStatus(_ context.Context, status string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, u := range s.users {
		if u.Verification.CurrentStatus() == status {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) filterUsers(filter UserFilter) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []models.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.VerificationStatus != "" && u.Verification.CurrentStatus() != filter.VerificationStatus {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, *cloneUser(u))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (s *MemoryStore) ListUsers(_ context.Context, filter UserFilter, skip, limit int64) ([]models.User, error) {
	return paginate(s.filterUsers(filter), skip, limit), nil
}

func (s *MemoryStore) CountUsers(_ context.Context, filter UserFilter) (int64, error) {
	return int64(len(s.filterUsers(filter))), nil
}

func (s *MemoryStore) FindUsersWithFavorites(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, u := range s.users {
		if len(u.FavoriteProperties) > 0 {
			users = append(users, *cloneUser(u))
		}
	}
	return users, nil
}

func (s *MemoryStore) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *cloneUser(u))
		}
	}
	return users, nil
}

// Properties

func (s *MemoryStore) CreateProperty(_ context.Context, property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if property.ID.IsZero() {
		property.ID = primitive.NewObjectID()
	}
	s.properties[property.ID] = cloneProperty(property)
	return nil
}

func (s *MemoryStore) FindPropertyByID(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	property, ok := s.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProperty(property), nil
}

func (s *MemoryStore) FindPropertiesByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var properties []models.Property
	for _, id := range ids {
		if p, ok := s.properties[id]; ok {
			properties = append(properties, *cloneProperty(p))
		}
	}
	return properties, nil
}

func (s *MemoryStore) SaveProperty(_ context.Context, property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.properties[property.ID]
	if !ok {
		return ErrNotFound
	}
	cp := cloneProperty(property)
	cp.Likes = existing.Likes
	s.properties[property.ID] = cp
	return nil
}

func (s *MemoryStore) updateProperty(id primitive.ObjectID, fn func(*models.Property)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	property, ok := s.properties[id]
	if !ok {
		return ErrNotFound
	}
	fn(property)
	return nil
}

func (s *MemoryStore) AddLike(_ context.Context, propertyID, userID primitive.ObjectID) error {
	return s.updateProperty(propertyID, func(p *models.Property) {
		p.Likes = addToSet(p.Likes, userID)
	})
}

func (s *MemoryStore) PullLike(_ context.Context, propertyID, userID primitive.ObjectID) error {
	return s.updateProperty(propertyID, func(p *models.Property) {
		p.Likes = pull(p.Likes, userID)
	})
}

func (s *MemoryStore) DeleteProperty(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.properties[id]; !ok {
		return ErrNotFound
	}
	delete(s.properties, id)
	return nil
}

func (s *MemoryStore) filterProperties(filter PropertyFilter) []models.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(filter.Query))
	var matched []models.Property
	for _, p := range s.properties {
		if p.IsHidden && !filter.IncludeHidden {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.State != "" && p.Location.State != filter.State {
			continue
		}
		if filter.Owner != nil && p.Owner != *filter.Owner {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if p.Bedrooms < filter.Bedrooms {
			continue
		}
		if len(terms) > 0 && !matchesAnyTerm(p, terms) {
			continue
		}
		matched = append(matched, *cloneProperty(p))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

// matchesAnyTerm approximates a text index: any term in any indexed field.
func matchesAnyTerm(p *models.Property, terms []string) bool {
	text := strings.ToLower(strings.Join([]string{
		p.Title, p.Description, p.Location.City, p.Location.State, p.Location.Address,
	}, " "))
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListProperties(_ context.Context, filter PropertyFilter, skip, limit int64) ([]models.Property, error) {
	return paginate(s.filterProperties(filter), skip, limit), nil
}

func (s *MemoryStore) CountProperties(_ context.Context, filter PropertyFilter) (int64, error) {
	return int64(len(s.filterProperties(filter))), nil
}

func (s *MemoryStore) FindLikedProperties(_ context.Context) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var properties []models.Property
	for _, p := range s.properties {
		if len(p.Likes) > 0 {
			properties = append(properties, *cloneProperty(p))
		}
	}
	return properties, nil
}

func (s *MemoryStore) FindPropertiesLikedBy(_ context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var properties []models.Property
	for _, p := range s.properties {
		for _, id := range p.Likes {
			if id == userID {
				properties = append(properties, *cloneProperty(p))
				break
			}
		}
	}
	return properties, nil
}

// Bookings

func (s *MemoryStore) CreateBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	cp := *booking
	s.bookings[booking.ID] = &cp
	return nil
}

func (s *MemoryStore) FindBookingByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (s *MemoryStore) SaveBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; !ok {
		return ErrNotFound
	}
	cp := *booking
	s.bookings[booking.ID] = &cp
	return nil
}

func (s *MemoryStore) FindBookingsForUser(_ context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	s.mu.RLock()
	var bookings []models.Booking
	for _, b := range s.bookings {
		if b.User == userID || b.Owner == userID {
			bookings = append(bookings, *b)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *MemoryStore) CountBookings(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.bookings)), nil
}

func (s *MemoryStore) CountBookingsForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	bookings, err := s.FindBookingsForUser(ctx, userID)
	return int64(len(bookings)), err
}

// Activity, audit and analytics

func (s *MemoryStore) InsertActivity(_ context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	s.activities = append(s.activities, *activity)
	return nil
}

func (s *MemoryStore) InsertAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.auditLogs = append(s.auditLogs, *entry)
	return nil
}

func (s *MemoryStore) IncrementMetric(_ context.Context, day time.Time, metric string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.analytics[day]
	if !ok {
		doc = &models.Analytics{ID: primitive.NewObjectID(), Date: day}
		s.analytics[day] = doc
	}
	switch metric {
	case models.MetricNewUsers:
		doc.Metrics.NewUsers++
	case models.MetricNewProperties:
		doc.Metrics.NewProperties++
	case models.MetricNewBookings:
		doc.Metrics.NewBookings++
	case models.MetricCompletedRentals:
		doc.Metrics.CompletedRentals++
	case models.MetricVerificationRequests:
		doc.Metrics.VerificationRequests++
	}
	return nil
}

func (s *MemoryStore) RecentActivity(_ context.Context, activityType string, limit int64) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Activity
	for i := len(s.activities) - 1; i >= 0; i-- {
		if activityType != "" && s.activities[i].Type != activityType {
			continue
		}
		out = append(out, s.activities[i])
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) FindUserActivity(_ context.Context, userID primitive.ObjectID, activityType string, limit int64) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Activity
	for i := len(s.activities) - 1; i >= 0; i-- {
		a := s.activities[i]
		if a.User != userID || (activityType != "" && a.Type != activityType) {
			continue
		}
		out = append(out, a)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) matchAudit(filter AuditFilter) []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AuditLog
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if filter.Admin != nil && entry.Admin != *filter.Admin {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.TargetUser != nil && (entry.TargetUser == nil || *entry.TargetUser != *filter.TargetUser) {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (s *MemoryStore) FindAuditLogs(_ context.Context, filter AuditFilter, skip, limit int64) ([]models.AuditLog, error) {
	return paginate(s.matchAudit(filter), skip, limit), nil
}

func (s *MemoryStore) CountAuditLogs(_ context.Context, filter AuditFilter) (int64, error) {
	return int64(len(s.matchAudit(filter))), nil
}

func (s *MemoryStore) FindAnalytics(_ context.Context, from, to time.Time) ([]models.Analytics, error) {
	s.mu.RLock()
	var days []models.Analytics
	for day, doc := range s.analytics {
		if !day.Before(from) && !day.After(to) {
			days = append(days, *doc)
		}
	}
	s.mu.RUnlock()

	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// Activities and AuditLogs expose the append-only logs for assertions.
func (s *MemoryStore) Activities() []models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Activity(nil), s.activities...)
}

func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.auditLogs...)
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func addToSet(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func pull(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// equalIDs compares in order, as a MongoDB array equality filter does.
// nil and empty are equal.
func equalIDs(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.FavoriteProperties = append([]primitive.ObjectID(nil), u.FavoriteProperties...)
	if u.Verification.ResidentialAddress != nil {
		addr := *u.Verification.ResidentialAddress
		cp.Verification.ResidentialAddress = &addr
	}
	cp.Verification.SubmittedAt = cloneTime(u.Verification.SubmittedAt)
	cp.Verification.ReviewedAt = cloneTime(u.Verification.ReviewedAt)
	cp.Verification.ReviewedBy = cloneID(u.Verification.ReviewedBy)
	cp.VerifiedAt = cloneTime(u.VerifiedAt)
	cp.LastLoginAt = cloneTime(u.LastLoginAt)
	return &cp
}

func cloneProperty(p *models.Property) *models.Property {
	cp := *p
	cp.Likes = append([]primitive.ObjectID(nil), p.Likes...)
	cp.Features = append([]string(nil), p.Features...)
	cp.Images = append([]string(nil), p.Images...)
	cp.RentedAt = cloneTime(p.RentedAt)
	cp.RentedUntil = cloneTime(p.RentedUntil)
	cp.CurrentTenant = cloneID(p.CurrentTenant)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

var _ Store = (*MemoryStore)(nil)
