package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActivityUserSignup            = "user_signup"
	ActivityUserLogin             = "user_login"
	ActivityProfileUpdated        = "profile_updated"
	ActivityPasswordChanged       = "password_changed"
	ActivityPropertyListed        = "property_listed"
	ActivityPropertyUpdated       = "property_updated"
	ActivityPropertyDeleted       = "property_deleted"
	ActivityBookingCreated        = "booking_created"
	ActivityBookingApproved       = "booking_approved"
	ActivityBookingRejected       = "booking_rejected"
	ActivityRentalCompleted       = "rental_completed"
	ActivityVerificationSubmitted = "verification_submitted"
	ActivityVerificationApproved  = "verification_approved"
	ActivityVerificationRejected  = "verification_rejected"
)

const (
	AuditVerificationApproved = "verification_approved"
	AuditVerificationRejected = "verification_rejected"
)

const (
	MetricNewUsers             = "newUsers"
	MetricNewProperties        = "newProperties"
	MetricNewBookings          = "newBookings"
	MetricCompletedRentals     = "completedRentals"
	MetricVerificationRequests = "verificationRequests"
)

// Activity is the user-facing feed entry. Append only.
type Activity struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"_id"`
	Type      string                 `bson:"type" json:"type"`
	User      primitive.ObjectID     `bson:"user" json:"user"`
	Metadata  map[string]interface{} `bson:"metadata" json:"metadata"`
	IPAddress string                 `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent string                 `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	RequestID string                 `bson:"requestId,omitempty" json:"requestId,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}

// AuditLog is the admin compliance trail. Append only.
type AuditLog struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"_id"`
	Admin          primitive.ObjectID     `bson:"admin" json:"admin"`
	Action         string                 `bson:"action" json:"action"`
	TargetUser     *primitive.ObjectID    `bson:"targetUser,omitempty" json:"targetUser,omitempty"`
	TargetProperty *primitive.ObjectID    `bson:"targetProperty,omitempty" json:"targetProperty,omitempty"`
	Details        map[string]interface{} `bson:"details" json:"details"`
	IPAddress      string                 `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent      string                 `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	RequestID      string                 `bson:"requestId,omitempty" json:"requestId,omitempty"`
	CreatedAt      time.Time              `bson:"createdAt" json:"createdAt"`
}

type Metrics struct {
	NewUsers             int `bson:"newUsers" json:"newUsers"`
	NewProperties        int `bson:"newProperties" json:"newProperties"`
	NewBookings          int `bson:"newBookings" json:"newBookings"`
	CompletedRentals     int `bson:"completedRentals" json:"completedRentals"`
	VerificationRequests int `bson:"verificationRequests" json:"verificationRequests"`
}

// Analytics holds one day of counters, keyed by UTC midnight.
type Analytics struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Date    time.Time          `bson:"date" json:"date"`
	Metrics Metrics            `bson:"metrics" json:"metrics"`
}
