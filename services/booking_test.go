package services

import (
	"context"
	"testing"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (e *testEnv) seedBooking(t *testing.T, propertyID, requester primitive.ObjectID) *models.Booking {
	t.Helper()
	booking, err := e.bookings.CreateBooking(context.Background(), propertyID, requester, BookingInput{
		RequestedDate: e.clock.Now().Add(48 * time.Hour),
		Message:       "Can I view it on Saturday?",
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	renter := env.seedUser(t, "renter")
	property := env.seedProperty(t, owner.ID)

	booking := env.seedBooking(t, property.ID, renter.ID)
	if booking.Status != models.BookingPending || booking.Owner != owner.ID || booking.User != renter.ID {
		t.Fatalf("unexpected booking %+v", booking)
	}
	if got := countActivities(env.store, models.ActivityBookingCreated); got != 1 {
		t.Fatalf("expected booking_created activity, got %d", got)
	}

	bookings, err := env.bookings.ListUserBookings(ctx, renter.ID)
	if err != nil || len(bookings) != 1 {
		t.Fatalf("renter should see the booking: %v %v", bookings, err)
	}
	bookings, _ = env.bookings.ListUserBookings(ctx, owner.ID)
	if len(bookings) != 1 {
		t.Fatalf("owner should see the booking, got %d", len(bookings))
	}

	_, err = env.bookings.CreateBooking(ctx, property.ID, renter.ID, BookingInput{})
	expectErr(t, err, ErrValidation)

	_, err = env.bookings.CreateBooking(ctx, primitive.NewObjectID(), renter.ID, BookingInput{RequestedDate: env.clock.Now()})
	expectErr(t, err, ErrNotFound)
}

func TestCompletingBookingRentsProperty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	renter := env.seedUser(t, "renter")
	property := env.seedProperty(t, owner.ID)
	booking := env.seedBooking(t, property.ID, renter.ID)

	env.clock.Advance(time.Hour)
	if _, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingApproved, owner.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := countActivities(env.store, models.ActivityBookingApproved); got != 1 {
		t.Fatalf("expected booking_approved activity, got %d", got)
	}
	if status := env.property(t, property.ID).Status; status != models.PropertyAvailable {
		t.Fatalf("approval must not rent the property, got %q", status)
	}

	env.clock.Advance(time.Hour)
	completed, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingCompleted, owner.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.BookingCompleted {
		t.Fatalf("booking status %q", completed.Status)
	}

	rented := env.property(t, property.ID)
	if rented.Status != models.PropertyRented {
		t.Fatalf("expected rented, got %q", rented.Status)
	}
	if rented.CurrentTenant == nil || *rented.CurrentTenant != renter.ID {
		t.Fatalf("tenant = %v, want %s", rented.CurrentTenant, renter.ID.Hex())
	}
	if rented.RentedAt == nil || rented.RentedAt.Before(booking.CreatedAt) {
		t.Fatalf("rentedAt %v precedes booking creation %v", rented.RentedAt, booking.CreatedAt)
	}
	firstRentedAt := *rented.RentedAt

	if got := countActivities(env.store, models.ActivityRentalCompleted); got != 1 {
		t.Fatalf("expected one rental_completed activity, got %d", got)
	}

	env.clock.Advance(24 * time.Hour)
	if _, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingCompleted, owner.ID); err != nil {
		t.Fatalf("repeat completion: %v", err)
	}
	again := env.property(t, property.ID)
	if again.RentedAt == nil || !again.RentedAt.Equal(firstRentedAt) {
		t.Fatalf("repeat completion moved rentedAt from %v to %v", firstRentedAt, again.RentedAt)
	}
	if got := countActivities(env.store, models.ActivityRentalCompleted); got != 1 {
		t.Fatalf("repeat completion logged again: %d", got)
	}

	_, err = env.bookings.CreateBooking(ctx, property.ID, renter.ID, BookingInput{RequestedDate: env.clock.Now()})
	expectErr(t, err, ErrConflict)
}

func TestBookingStatusMayLeaveCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	renter := env.seedUser(t, "renter")
	property := env.seedProperty(t, owner.ID)
	booking := env.seedBooking(t, property.ID, renter.ID)

	if _, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingCompleted, owner.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	reverted, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingPending, owner.ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != models.BookingPending {
		t.Fatalf("status %q", reverted.Status)
	}
	if status := env.property(t, property.ID).Status; status != models.PropertyRented {
		t.Fatalf("reverting a booking must not touch the property, got %q", status)
	}
}

func TestUpdateBookingStatusRejectsStrangers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	renter := env.seedUser(t, "renter")
	property := env.seedProperty(t, owner.ID)
	booking := env.seedBooking(t, property.ID, renter.ID)

	_, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingCompleted, renter.ID)
	expectErr(t, err, ErrNotOwner)

	stored, _ := env.store.FindBookingByID(ctx, booking.ID)
	if stored.Status != models.BookingPending {
		t.Fatalf("stranger changed booking to %q", stored.Status)
	}
	if status := env.property(t, property.ID).Status; status != models.PropertyAvailable {
		t.Fatalf("stranger rented the property: %q", status)
	}

	_, err = env.bookings.UpdateBookingStatus(ctx, booking.ID, "cancelled", owner.ID)
	expectErr(t, err, ErrValidation)

	_, err = env.bookings.UpdateBookingStatus(ctx, primitive.NewObjectID(), models.BookingApproved, owner.ID)
	expectErr(t, err, ErrNotFound)
}

func TestCompletionRollsBackWhenPropertyMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	renter := env.seedUser(t, "renter")
	property := env.seedProperty(t, owner.ID)
	booking := env.seedBooking(t, property.ID, renter.ID)

	if err := env.store.DeleteProperty(ctx, property.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := env.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingCompleted, owner.ID)
	expectErr(t, err, ErrNotFound)

	stored, _ := env.store.FindBookingByID(ctx, booking.ID)
	if stored.Status != models.BookingPending {
		t.Fatalf("booking status survived a failed cascade: %q", stored.Status)
	}
}
