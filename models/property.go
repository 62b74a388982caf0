package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PropertyAvailable = "available"
	PropertyPending   = "pending"
	PropertyRented    = "rented"
)

const (
	ListingSale = "sale"
	ListingRent = "rent"
)

type Location struct {
	State   string `bson:"state" json:"state"`
	City    string `bson:"city" json:"city"`
	Address string `bson:"address" json:"address"`
}

type Property struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Price         float64              `bson:"price" json:"price"`
	Type          string               `bson:"type" json:"type"`
	Category      string               `bson:"category" json:"category"`
	Bedrooms      int                  `bson:"bedrooms" json:"bedrooms"`
	Bathrooms     int                  `bson:"bathrooms" json:"bathrooms"`
	Location      Location             `bson:"location" json:"location"`
	Features      []string             `bson:"features" json:"features"`
	Images        []string             `bson:"images" json:"images"`
	VideoURL      string               `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	IsHidden      bool                 `bson:"isHidden" json:"isHidden"`
	Status        string               `bson:"status" json:"status"`
	RentedAt      *time.Time           `bson:"rentedAt,omitempty" json:"rentedAt,omitempty"`
	RentedUntil   *time.Time           `bson:"rentedUntil,omitempty" json:"rentedUntil,omitempty"`
	CurrentTenant *primitive.ObjectID  `bson:"currentTenant,omitempty" json:"currentTenant,omitempty"`
	Owner         primitive.ObjectID   `bson:"owner" json:"owner"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// MarkRented applies the booking-completion cascade fields.
func (p *Property) MarkRented(tenant primitive.ObjectID, at time.Time) {
	p.Status = PropertyRented
	p.CurrentTenant = &tenant
	p.RentedAt = &at
}

// MarkAvailable clears every rental field.
func (p *Property) MarkAvailable() {
	p.Status = PropertyAvailable
	p.CurrentTenant = nil
	p.RentedAt = nil
	p.RentedUntil = nil
}
