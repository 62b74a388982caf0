package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var reservedNicknames = map[string]bool{
	"admin": true, "api": true, "profile": true, "login": true, "register": true,
	"logout": true, "settings": true, "dashboard": true, "properties": true,
	"users": true, "support": true, "help": true, "about": true, "contact": true,
	"findhouse": true, "system": true, "moderator": true, "mod": true, "root": true,
	"superuser": true, "null": true, "undefined": true, "anonymous": true,
	"guest": true, "public": true, "private": true, "verification": true,
}

var nicknamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Nickname string `json:"nickname"`
	Role     string `json:"role" validate:"omitempty,oneof=user agent"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Profile struct {
	*models.User
	VerificationStatus string `json:"verificationStatus"`
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil means unchanged; an empty nickname clears it.
type ProfileUpdate struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Phone    *string `json:"phone"`
	Nickname *string `json:"nickname"`
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type NicknameAvailability struct {
	Nickname  string `json:"nickname"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// PublicProfile is what anyone may see of a user, looked up by nickname.
type PublicProfile struct {
	ID          primitive.ObjectID `json:"_id"`
	Name        string             `json:"name"`
	Nickname    string             `json:"nickname"`
	Role        string             `json:"role"`
	IsVerified  bool               `json:"isVerified"`
	MemberSince time.Time          `json:"memberSince"`
	Properties  []models.Property  `json:"properties"`
}

type TokenIssuer interface {
	GenerateJWT(userID, role string) (string, error)
}

type userStore interface {
	repository.UserRepository
	repository.PropertyRepository
}

type UserService struct {
	store    userStore
	tokens   TokenIssuer
	activity *ActivityLogger
	now      func() time.Time
}

func NewUserService(store userStore, tokens TokenIssuer, activity *ActivityLogger) *UserService {
	return &UserService{store: store, tokens: tokens, activity: activity, now: time.Now}
}

func normalizeNickname(nickname string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(nickname))
	if n == "" {
		return "", nil
	}
	if problem := nicknameProblem(n); problem != "" {
		return "", validationError("%s", problem)
	}
	return n, nil
}

func nicknameProblem(n string) string {
	if !nicknamePattern.MatchString(n) {
		return "nickname must be 3-30 characters of lowercase letters, numbers and underscores"
	}
	if reservedNicknames[n] {
		return fmt.Sprintf("nickname %q is reserved", n)
	}
	return ""
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}
	nickname, err := normalizeNickname(input.Nickname)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByEmail(ctx, input.Email); err == nil {
		return nil, conflictError("email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError("user", err)
	}
	if nickname != "" {
		if _, err := s.store.FindUserByNickname(ctx, nickname); err == nil {
			return nil, conflictError("nickname already taken")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, storeError("user", err)
		}
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	now := s.now()
	user := &models.User{
		ID:                 primitive.NewObjectID(),
		Name:               input.Name,
		Email:              input.Email,
		Password:           hashed,
		Phone:              input.Phone,
		Role:               role,
		Nickname:           nickname,
		Verification:       models.Verification{Status: models.VerificationUnverified},
		IsActive:           true,
		FavoriteProperties: []primitive.ObjectID{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeError("user", err)
	}

	s.activity.LogActivity(ctx, models.ActivityUserSignup, user.ID, map[string]interface{}{
		"email": user.Email,
	})
	s.activity.IncrementMetric(ctx, models.MetricNewUsers)

	return user, nil
}

func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("user", err)
	}
	if !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, conflictError("account has been deactivated")
	}

	token, err := s.tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}

	if err := s.store.RecordLogin(ctx, user.ID, s.now()); err != nil {
		log.Printf("Failed to record login for %s: %v", user.ID.Hex(), err)
	}
	s.activity.LogActivity(ctx, models.ActivityUserLogin, user.ID, nil)

	return &LoginResult{Token: token, User: user}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*Profile, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	return &Profile{User: user, VerificationStatus: user.Verification.CurrentStatus()}, nil
}

func (s *UserService) GetFavorites(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	properties, err := s.store.FindPropertiesByIDs(ctx, user.FavoriteProperties)
	if err != nil {
		return nil, storeError("properties", err)
	}
	if properties == nil {
		properties = []models.Property{}
	}
	return properties, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*Profile, error) {
	if err := validateInput(update); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}

	var changed []string
	if update.Name != nil {
		if name := strings.TrimSpace(*update.Name); name != user.Name {
			if name == "" {
				return nil, validationError("name must not be blank")
			}
			user.Name = name
			changed = append(changed, "name")
		}
	}
	if update.Phone != nil {
		if phone := strings.TrimSpace(*update.Phone); phone != user.Phone {
			user.Phone = phone
			changed = append(changed, "phone")
		}
	}
	if update.Nickname != nil {
		nickname, err := normalizeNickname(*update.Nickname)
		if err != nil {
			return nil, err
		}
		if nickname != user.Nickname {
			if err := s.ensureNicknameFree(ctx, nickname, userID); err != nil {
				return nil, err
			}
			user.Nickname = nickname
			changed = append(changed, "nickname")
		}
	}
	if len(changed) == 0 {
		return &Profile{User: user, VerificationStatus: user.Verification.CurrentStatus()}, nil
	}

	user.UpdatedAt = s.now()
	if err := s.store.SaveUser(ctx, user); errors.Is(err, repository.ErrDuplicateKey) {
		return nil, conflictError("nickname already taken")
	} else if err != nil {
		return nil, storeError("user", err)
	}

	s.activity.LogActivity(ctx, models.ActivityProfileUpdated, userID, map[string]interface{}{
		"fields": changed,
	})
	return &Profile{User: user, VerificationStatus: user.Verification.CurrentStatus()}, nil
}

func (s *UserService) ensureNicknameFree(ctx context.Context, nickname string, self primitive.ObjectID) error {
	if nickname == "" {
		return nil
	}
	owner, err := s.store.FindUserByNickname(ctx, nickname)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return storeError("user", err)
	case owner.ID != self:
		return conflictError("nickname already taken")
	}
	return nil
}

// ChangePassword requires the current password even from an authenticated caller.
func (s *UserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, change PasswordChange) error {
	if err := validateInput(change); err != nil {
		return err
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return storeError("user", err)
	}
	if !utils.CheckPasswordHash(change.CurrentPassword, user.Password) {
		return validationError("current password is incorrect")
	}

	hashed, err := utils.HashPassword(change.Password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.UpdatedAt = s.now()
	if err := s.store.SaveUser(ctx, user); err != nil {
		return storeError("user", err)
	}

	s.activity.LogActivity(ctx, models.ActivityPasswordChanged, userID, nil)
	return nil
}

// CheckNickname reports whether nickname could be claimed by viewer. A
// nickname the viewer already holds counts as available.
func (s *UserService) CheckNickname(ctx context.Context, nickname string, viewer *primitive.ObjectID) (*NicknameAvailability, error) {
	result := &NicknameAvailability{Nickname: strings.ToLower(strings.TrimSpace(nickname))}
	if result.Nickname == "" {
		return nil, validationError("nickname is required")
	}

	if problem := nicknameProblem(result.Nickname); problem != "" {
		result.Reason = problem
		return result, nil
	}

	owner, err := s.store.FindUserByNickname(ctx, result.Nickname)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		result.Available = true
	case err != nil:
		return nil, storeError("user", err)
	case viewer != nil && owner.ID == *viewer:
		result.Available = true
	default:
		result.Reason = "nickname already taken"
	}
	return result, nil
}

func (s *UserService) GetPublicProfile(ctx context.Context, nickname string) (*PublicProfile, error) {
	user, err := s.store.FindUserByNickname(ctx, strings.ToLower(strings.TrimSpace(nickname)))
	if err != nil {
		return nil, storeError("user", err)
	}
	if !user.IsActive {
		return nil, storeError("user", repository.ErrNotFound)
	}

	properties, err := s.store.ListProperties(ctx, repository.PropertyFilter{Owner: &user.ID}, 0, 50)
	if err != nil {
		return nil, storeError("properties", err)
	}
	if properties == nil {
		properties = []models.Property{}
	}

	return &PublicProfile{
		ID:          user.ID,
		Name:        user.Name,
		Nickname:    user.Nickname,
		Role:        user.Role,
		IsVerified:  user.IsVerified,
		MemberSince: user.CreatedAt,
		Properties:  properties,
	}, nil
}
