package services

import (
	"context"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/cache"
	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingInput struct {
	RequestedDate time.Time `json:"requestedDate" validate:"required"`
	Message       string    `json:"message" validate:"max=1000"`
}

type bookingStore interface {
	repository.BookingRepository
	repository.PropertyRepository
	repository.Transactor
}

type BookingService struct {
	store    bookingStore
	cache    cache.ListingCache
	activity *ActivityLogger
	now      func() time.Time
}

func NewBookingService(store bookingStore, listingCache cache.ListingCache, activity *ActivityLogger) *BookingService {
	if listingCache == nil {
		listingCache = cache.Noop{}
	}
	return &BookingService{store: store, cache: listingCache, activity: activity, now: time.Now}
}

// CreateBooking records a viewing request on an available property. The
// owner is copied from the property so later authorization needs no join.
func (s *BookingService) CreateBooking(ctx context.Context, propertyID, userID primitive.ObjectID, input BookingInput) (*models.Booking, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	property, err := s.store.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, storeError("property", err)
	}
	if property.Status != models.PropertyAvailable {
		return nil, conflictError("property is %s", property.Status)
	}

	now := s.now()
	booking := &models.Booking{
		ID:            primitive.NewObjectID(),
		Property:      property.ID,
		User:          userID,
		Owner:         property.Owner,
		Status:        models.BookingPending,
		RequestedDate: input.RequestedDate,
		Message:       input.Message,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, storeError("booking", err)
	}

	s.activity.LogActivity(ctx, models.ActivityBookingCreated, userID, map[string]interface{}{
		"bookingId":  booking.ID.Hex(),
		"propertyId": property.ID.Hex(),
	})
	s.activity.IncrementMetric(ctx, models.MetricNewBookings)

	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	bookings, err := s.store.FindBookingsForUser(ctx, userID)
	if err != nil {
		return nil, storeError("bookings", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

func validBookingStatus(status string) bool {
	switch status {
	case models.BookingPending, models.BookingApproved, models.BookingRejected, models.BookingCompleted:
		return true
	}
	return false
}

// UpdateBookingStatus lets the booking owner move it to any status. The
// first transition into completed rents the property to the requester; a
// repeated completion leaves the property, including rentedAt, untouched.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, bookingID primitive.ObjectID, status string, requesterID primitive.ObjectID) (*models.Booking, error) {
	if !validBookingStatus(status) {
		return nil, validationError("invalid booking status %q", status)
	}

	var (
		booking  *models.Booking
		previous string
		cascaded bool
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.store.FindBookingByID(ctx, bookingID)
		if err != nil {
			return storeError("booking", err)
		}
		if booking.Owner != requesterID {
			return ErrNotOwner
		}

		now := s.now()
		previous = booking.Status
		booking.Status = status
		booking.UpdatedAt = now
		if err := s.store.SaveBooking(ctx, booking); err != nil {
			return storeError("booking", err)
		}

		if previous == models.BookingCompleted || status != models.BookingCompleted {
			return nil
		}

		property, err := s.store.FindPropertyByID(ctx, booking.Property)
		if err != nil {
			return storeError("property", err)
		}
		property.MarkRented(booking.User, now)
		property.UpdatedAt = now
		if err := s.store.SaveProperty(ctx, property); err != nil {
			return storeError("property", err)
		}
		cascaded = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"bookingId":  booking.ID.Hex(),
		"propertyId": booking.Property.Hex(),
		"tenantId":   booking.User.Hex(),
	}
	switch {
	case cascaded:
		go s.cache.Invalidate(context.Background())
		s.activity.LogActivity(ctx, models.ActivityRentalCompleted, requesterID, meta)
		s.activity.IncrementMetric(ctx, models.MetricCompletedRentals)
	case previous != status && status == models.BookingApproved:
		s.activity.LogActivity(ctx, models.ActivityBookingApproved, requesterID, meta)
	case previous != status && status == models.BookingRejected:
		s.activity.LogActivity(ctx, models.ActivityBookingRejected, requesterID, meta)
	}

	return booking, nil
}
