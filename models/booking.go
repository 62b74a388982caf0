package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BookingPending   = "pending"
	BookingApproved  = "approved"
	BookingRejected  = "rejected"
	BookingCompleted = "completed"
)

type Booking struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Property      primitive.ObjectID `bson:"property" json:"property"`
	User          primitive.ObjectID `bson:"user" json:"user"`
	Owner         primitive.ObjectID `bson:"owner" json:"owner"`
	Status        string             `bson:"status" json:"status"`
	RequestedDate time.Time          `bson:"requestedDate" json:"requestedDate"`
	Message       string             `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
