package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

const (
	VerificationUnverified = "unverified"
	VerificationPending    = "pending"
	VerificationVerified   = "verified"
	VerificationRejected   = "rejected"
)

const (
	IDTypeNIN            = "NIN"
	IDTypeBVN            = "BVN"
	IDTypeDriversLicense = "DRIVERS_LICENSE"
)

type Address struct {
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
}

// Verification is the identity-proofing sub-document of a user.
// IDNumber holds ciphertext and is never rendered.
type Verification struct {
	Status             string              `bson:"status,omitempty" json:"status"`
	IDType             string              `bson:"idType,omitempty" json:"idType,omitempty"`
	IDNumber           string              `bson:"idNumber,omitempty" json:"-"`
	DocumentURL        string              `bson:"documentUrl,omitempty" json:"documentUrl,omitempty"`
	ResidentialAddress *Address            `bson:"residentialAddress,omitempty" json:"residentialAddress,omitempty"`
	SubmittedAt        *time.Time          `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	ReviewedAt         *time.Time          `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	ReviewedBy         *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	RejectionReason    string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
}

// CurrentStatus treats documents written before the workflow existed as unverified.
func (v Verification) CurrentStatus() string {
	if v.Status == "" {
		return VerificationUnverified
	}
	return v.Status
}

type User struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name               string               `bson:"name" json:"name"`
	Email              string               `bson:"email" json:"email"`
	Password           string               `bson:"password" json:"-"`
	Phone              string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Role               string               `bson:"role" json:"role"`
	Nickname           string               `bson:"nickname,omitempty" json:"nickname,omitempty"`
	IsVerified         bool                 `bson:"isVerified" json:"isVerified"`
	Verification       Verification         `bson:"verification" json:"verification"`
	VerifiedAt         *time.Time           `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	IsActive           bool                 `bson:"isActive" json:"isActive"`
	LastLoginAt        *time.Time           `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	FavoriteProperties []primitive.ObjectID `bson:"favoriteProperties" json:"favoriteProperties"`
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}
