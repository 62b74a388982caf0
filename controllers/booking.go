package controllers

import (
	"net/http"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/services"
)

type createBookingRequest struct {
	PropertyID    string    `json:"propertyId"`
	RequestedDate time.Time `json:"requestedDate"`
	Message       string    `json:"message"`
}

type bookingStatusRequest struct {
	Status string `json:"status"`
}

func CreateBooking(bookings *services.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req createBookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		propertyID, err := services.ParseID("property", req.PropertyID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		booking, err := bookings.CreateBooking(r.Context(), propertyID, userID, services.BookingInput{
			RequestedDate: req.RequestedDate,
			Message:       req.Message,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, "Booking request sent", booking)
	}
}

func GetBookings(bookings *services.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		list, err := bookings.ListUserBookings(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched bookings", list)
	}
}

// UpdateBookingStatus is called by the property owner. Completing a
// booking rents the property to the requester.
func UpdateBookingStatus(bookings *services.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "booking")
		if !ok {
			return
		}

		var req bookingStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		booking, err := bookings.UpdateBookingStatus(r.Context(), id, req.Status, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Booking updated", booking)
	}
}
