package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const defaultRejectionReason = "Verification documents not acceptable"

type VerificationInput struct {
	IDType             string         `json:"idType" validate:"required,oneof=NIN BVN DRIVERS_LICENSE"`
	IDNumber           string         `json:"idNumber" validate:"required,min=5"`
	ResidentialAddress models.Address `json:"residentialAddress" validate:"required"`
}

type addressInput struct {
	Address string `validate:"required"`
	City    string `validate:"required"`
	State   string `validate:"required"`
}

type SubmitResult struct {
	VerificationID string `json:"verificationId"`
	Status         string `json:"status"`
}

type VerificationStatus struct {
	Status          string     `json:"status"`
	IDType          string     `json:"idType,omitempty"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
	IsVerified      bool       `json:"isVerified"`
}

type PendingVerification struct {
	UserID        primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone,omitempty"`
	IDType        string             `json:"idType"`
	IDNumber      string             `json:"idNumber"`
	DocumentURL   string             `json:"documentUrl"`
	SubmittedAt   *time.Time         `json:"submittedAt,omitempty"`
	UserCreatedAt time.Time          `json:"userCreatedAt"`
}

type PendingPage struct {
	Verifications []PendingVerification `json:"verifications"`
	Page          int                   `json:"page"`
	Pages         int                   `json:"pages"`
	Total         int64                 `json:"total"`
}

type ReviewResult struct {
	UserID             primitive.ObjectID `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	VerificationStatus string             `json:"verificationStatus"`
	RejectionReason    string             `json:"rejectionReason,omitempty"`
}

type VerificationStats struct {
	Pending    int64 `json:"pending"`
	Verified   int64 `json:"verified"`
	Rejected   int64 `json:"rejected"`
	Unverified int64 `json:"unverified"`
	Total      int64 `json:"total"`
}

// VerificationService runs the identity verification state machine:
// unverified -> pending -> verified | rejected.
type VerificationService struct {
	users     repository.UserRepository
	encryptor *utils.Encryptor
	activity  *ActivityLogger
	now       func() time.Time

	// allowResubmit lets a rejected user submit again.
	allowResubmit bool
}

func NewVerificationService(users repository.UserRepository, encryptor *utils.Encryptor, activity *ActivityLogger, allowResubmitAfterRejection bool) *VerificationService {
	return &VerificationService{
		users:         users,
		encryptor:     encryptor,
		activity:      activity,
		now:           time.Now,
		allowResubmit: allowResubmitAfterRejection,
	}
}

func (s *VerificationService) SubmitVerification(ctx context.Context, userID primitive.ObjectID, input VerificationInput, documentURL string) (*SubmitResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	addr := input.ResidentialAddress
	if err := validateInput(addressInput{Address: addr.Address, City: addr.City, State: addr.State}); err != nil {
		return nil, fmt.Errorf("residential address must include address, city, and state: %w", err)
	}
	if documentURL == "" {
		return nil, validationError("verification document is required")
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	switch user.Verification.CurrentStatus() {
	case models.VerificationVerified:
		return nil, conflictError("user is already verified")
	case models.VerificationPending:
		return nil, conflictError("verification request already pending")
	case models.VerificationRejected:
		if !s.allowResubmit {
			return nil, conflictError("verification was rejected and cannot be resubmitted")
		}
	}

	sealed, err := s.encryptor.Encrypt(input.IDNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting id number: %v", ErrDependency, err)
	}

	submittedAt := s.now()
	user.Verification = models.Verification{
		Status:             models.VerificationPending,
		IDType:             input.IDType,
		IDNumber:           sealed,
		DocumentURL:        documentURL,
		ResidentialAddress: &models.Address{Address: addr.Address, City: addr.City, State: addr.State},
		SubmittedAt:        &submittedAt,
	}
	user.UpdatedAt = submittedAt

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, storeError("user", err)
	}

	s.activity.LogActivity(ctx, models.ActivityVerificationSubmitted, userID, map[string]interface{}{
		"idType": input.IDType,
	})
	s.activity.IncrementMetric(ctx, models.MetricVerificationRequests)

	return &SubmitResult{VerificationID: user.ID.Hex(), Status: models.VerificationPending}, nil
}

func (s *VerificationService) GetVerificationStatus(ctx context.Context, userID primitive.ObjectID) (*VerificationStatus, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	v := user.Verification
	return &VerificationStatus{
		Status:          v.CurrentStatus(),
		IDType:          v.IDType,
		SubmittedAt:     v.SubmittedAt,
		ReviewedAt:      v.ReviewedAt,
		RejectionReason: v.RejectionReason,
		VerifiedAt:      user.VerifiedAt,
		IsVerified:      user.IsVerified,
	}, nil
}

// GetPendingVerifications lists the review queue, oldest submission first.
// Id numbers are decrypted only to be masked.
func (s *VerificationService) GetPendingVerifications(ctx context.Context, page, limit int) (*PendingPage, error) {
	page, limit, skip := pageBounds(page, limit, 20, 100)

	users, err := s.users.FindUsersByVerificationStatus(ctx, models.VerificationPending, skip, int64(limit))
	if err != nil {
		return nil, storeError("users", err)
	}
	total, err := s.users.CountUsersByVerificationStatus(ctx, models.VerificationPending)
	if err != nil {
		return nil, storeError("users", err)
	}

	items := make([]PendingVerification, 0, len(users))
	for _, u := range users {
		items = append(items, PendingVerification{
			UserID:        u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Phone:         u.Phone,
			IDType:        u.Verification.IDType,
			IDNumber:      s.maskedIDNumber(u),
			DocumentURL:   u.Verification.DocumentURL,
			SubmittedAt:   u.Verification.SubmittedAt,
			UserCreatedAt: u.CreatedAt,
		})
	}

	return &PendingPage{
		Verifications: items,
		Page:          page,
		Pages:         pageCount(total, limit),
		Total:         total,
	}, nil
}

func (s *VerificationService) maskedIDNumber(u models.User) string {
	if u.Verification.IDNumber == "" {
		return ""
	}
	plain, ok := s.encryptor.Decrypt(u.Verification.IDNumber)
	if !ok {
		log.Printf("Could not decrypt id number for user %s", u.ID.Hex())
		return utils.MaskedUnavailable
	}
	return utils.MaskIDNumber(plain)
}

func (s *VerificationService) ApproveVerification(ctx context.Context, userID, adminID primitive.ObjectID) (*ReviewResult, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	if user.Verification.CurrentStatus() != models.VerificationPending {
		return nil, conflictError("no pending verification request found")
	}

	reviewedAt := s.now()
	user.Verification.Status = models.VerificationVerified
	user.Verification.ReviewedAt = &reviewedAt
	user.Verification.ReviewedBy = &adminID
	user.IsVerified = true
	user.VerifiedAt = &reviewedAt
	user.UpdatedAt = reviewedAt

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, storeError("user", err)
	}

	s.activity.LogActivity(ctx, models.ActivityVerificationApproved, adminID, map[string]interface{}{
		"verifiedUserId": userID.Hex(),
		"userName":       user.Name,
	})
	s.activity.LogAction(ctx, adminID, models.AuditVerificationApproved, AuditTarget{
		User: &userID,
		Details: map[string]interface{}{
			"userName":  user.Name,
			"userEmail": user.Email,
			"idType":    user.Verification.IDType,
		},
	})

	return &ReviewResult{
		UserID:             user.ID,
		Name:               user.Name,
		Email:              user.Email,
		VerificationStatus: models.VerificationVerified,
	}, nil
}

func (s *VerificationService) RejectVerification(ctx context.Context, userID, adminID primitive.ObjectID, reason string) (*ReviewResult, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	if user.Verification.CurrentStatus() != models.VerificationPending {
		return nil, conflictError("no pending verification request found")
	}
	if reason == "" {
		reason = defaultRejectionReason
	}

	reviewedAt := s.now()
	user.Verification.Status = models.VerificationRejected
	user.Verification.ReviewedAt = &reviewedAt
	user.Verification.ReviewedBy = &adminID
	user.Verification.RejectionReason = reason
	user.UpdatedAt = reviewedAt

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, storeError("user", err)
	}

	s.activity.LogActivity(ctx, models.ActivityVerificationRejected, adminID, map[string]interface{}{
		"rejectedUserId": userID.Hex(),
		"userName":       user.Name,
		"reason":         reason,
	})
	s.activity.LogAction(ctx, adminID, models.AuditVerificationRejected, AuditTarget{
		User: &userID,
		Details: map[string]interface{}{
			"userName":        user.Name,
			"userEmail":       user.Email,
			"idType":          user.Verification.IDType,
			"rejectionReason": reason,
		},
	})

	return &ReviewResult{
		UserID:             user.ID,
		Name:               user.Name,
		Email:              user.Email,
		VerificationStatus: models.VerificationRejected,
		RejectionReason:    reason,
	}, nil
}

func (s *VerificationService) GetVerificationStats(ctx context.Context) (*VerificationStats, error) {
	var stats VerificationStats

	g, gctx := errgroup.WithContext(ctx)
	counts := []struct {
		status string
		dst    *int64
	}{
		{models.VerificationPending, &stats.Pending},
		{models.VerificationVerified, &stats.Verified},
		{models.VerificationRejected, &stats.Rejected},
		{models.VerificationUnverified, &stats.Unverified},
	}
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.users.CountUsersByVerificationStatus(gctx, c.status)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeError("users", err)
	}

	stats.Total = stats.Pending + stats.Verified + stats.Rejected + stats.Unverified
	return &stats, nil
}
