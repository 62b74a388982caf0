package services

import (
	"context"
	"testing"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{
		Name:     "Ada",
		Email:    "  Ada@Example.com ",
		Password: "hunter22",
		Nickname: "Ada_L",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ada@example.com" || user.Nickname != "ada_l" || user.Role != models.RoleUser {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Password == "hunter22" || !utils.CheckPasswordHash("hunter22", user.Password) {
		t.Fatal("password not hashed")
	}
	if user.Verification.CurrentStatus() != models.VerificationUnverified || user.IsVerified {
		t.Fatal("new users start unverified")
	}
	if got := countActivities(env.store, models.ActivityUserSignup); got != 1 {
		t.Fatalf("expected signup activity, got %d", got)
	}

	_, err = env.users.Register(ctx, RegisterInput{Name: "Other", Email: "ADA@example.com", Password: "hunter22"})
	expectErr(t, err, ErrConflict)

	_, err = env.users.Register(ctx, RegisterInput{Name: "Other", Email: "other@example.com", Password: "hunter22", Nickname: "ada_l"})
	expectErr(t, err, ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]RegisterInput{
		"missing name":      {Email: "a@example.com", Password: "hunter22"},
		"bad email":         {Name: "A", Email: "not-an-email", Password: "hunter22"},
		"short password":    {Name: "A", Email: "a@example.com", Password: "abc"},
		"admin self-signup": {Name: "A", Email: "a@example.com", Password: "hunter22", Role: models.RoleAdmin},
		"reserved nickname": {Name: "A", Email: "a@example.com", Password: "hunter22", Nickname: "admin"},
		"nickname charset":  {Name: "A", Email: "a@example.com", Password: "hunter22", Nickname: "no spaces"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.users.Register(context.Background(), input)
			expectErr(t, err, ErrValidation)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "hunter22", Role: models.RoleAgent})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := env.users.Login(ctx, LoginInput{Email: "ADA@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token != "token-"+user.ID.Hex()+"-agent" || res.User.ID != user.ID {
		t.Fatalf("unexpected login result %+v", res)
	}
	if last := env.user(t, user.ID).LastLoginAt; last == nil || !last.Equal(env.clock.Now()) {
		t.Fatalf("last login not recorded: %v", last)
	}

	_, err = env.users.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"})
	expectErr(t, err, ErrInvalidCredentials)

	_, err = env.users.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "hunter22"})
	expectErr(t, err, ErrInvalidCredentials)

	stored := env.user(t, user.ID)
	stored.IsActive = false
	if err := env.store.SaveUser(ctx, stored); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err = env.users.Login(ctx, LoginInput{Email: "ada@example.com", Password: "hunter22"})
	expectErr(t, err, ErrConflict)
}

func TestGetFavorites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner")
	fan := env.seedUser(t, "fan")
	property := env.seedProperty(t, owner.ID)

	favs, err := env.users.GetFavorites(ctx, fan.ID)
	if err != nil || len(favs) != 0 {
		t.Fatalf("expected no favorites, got %v %v", favs, err)
	}

	if _, err := env.properties.ToggleLikeAndFavorite(ctx, property.ID, fan.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	favs, err = env.users.GetFavorites(ctx, fan.ID)
	if err != nil || len(favs) != 1 || favs[0].ID != property.ID {
		t.Fatalf("expected the liked property, got %v %v", favs, err)
	}
}

func strPtr(s string) *string { return &s }

func registerWithNickname(t *testing.T, env *testEnv, name, nickname string) *models.User {
	t.Helper()
	user, err := env.users.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "hunter22",
		Nickname: nickname,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := registerWithNickname(t, env, "ada", "ada")
	registerWithNickname(t, env, "grace", "grace")
	property := env.seedProperty(t, ada.ID)
	if _, err := env.properties.ToggleLikeAndFavorite(ctx, property.ID, ada.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	profile, err := env.users.UpdateProfile(ctx, ada.ID, ProfileUpdate{
		Name:     strPtr("  Ada Lovelace "),
		Phone:    strPtr("+2348000000000"),
		Nickname: strPtr("Countess"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if profile.Name != "Ada Lovelace" || profile.Phone != "+2348000000000" || profile.Nickname != "countess" {
		t.Fatalf("unexpected profile %+v", profile.User)
	}

	stored := env.user(t, ada.ID)
	if stored.Nickname != "countess" || len(stored.FavoriteProperties) != 1 {
		t.Fatalf("profile update lost data: %+v", stored)
	}
	if got := countActivities(env.store, models.ActivityProfileUpdated); got != 1 {
		t.Fatalf("expected one profile activity, got %d", got)
	}

	_, err = env.users.UpdateProfile(ctx, ada.ID, ProfileUpdate{Nickname: strPtr("grace")})
	expectErr(t, err, ErrConflict)
	_, err = env.users.UpdateProfile(ctx, ada.ID, ProfileUpdate{Nickname: strPtr("admin")})
	expectErr(t, err, ErrValidation)
	_, err = env.users.UpdateProfile(ctx, ada.ID, ProfileUpdate{Name: strPtr("   ")})
	expectErr(t, err, ErrValidation)
	_, err = env.users.UpdateProfile(ctx, primitive.NewObjectID(), ProfileUpdate{Name: strPtr("x")})
	expectErr(t, err, ErrNotFound)

	// no change is not logged
	if _, err := env.users.UpdateProfile(ctx, ada.ID, ProfileUpdate{Nickname: strPtr("countess")}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got := countActivities(env.store, models.ActivityProfileUpdated); got != 1 {
		t.Fatalf("unchanged profile was logged, got %d activities", got)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := registerWithNickname(t, env, "ada", "")

	err := env.users.ChangePassword(ctx, ada.ID, PasswordChange{CurrentPassword: "wrong", Password: "newpass1", ConfirmPassword: "newpass1"})
	expectErr(t, err, ErrValidation)
	err = env.users.ChangePassword(ctx, ada.ID, PasswordChange{CurrentPassword: "hunter22", Password: "newpass1", ConfirmPassword: "different"})
	expectErr(t, err, ErrValidation)
	err = env.users.ChangePassword(ctx, ada.ID, PasswordChange{CurrentPassword: "hunter22", Password: "abc", ConfirmPassword: "abc"})
	expectErr(t, err, ErrValidation)

	if err := env.users.ChangePassword(ctx, ada.ID, PasswordChange{CurrentPassword: "hunter22", Password: "newpass1", ConfirmPassword: "newpass1"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := env.users.Login(ctx, LoginInput{Email: "ada@example.com", Password: "hunter22"}); err == nil {
		t.Fatal("old password still accepted")
	}
	if _, err := env.users.Login(ctx, LoginInput{Email: "ada@example.com", Password: "newpass1"}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if got := countActivities(env.store, models.ActivityPasswordChanged); got != 1 {
		t.Fatalf("expected one password activity, got %d", got)
	}
}

func TestCheckNickname(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := registerWithNickname(t, env, "ada", "ada")
	other := primitive.NewObjectID()

	cases := []struct {
		nickname  string
		viewer    *primitive.ObjectID
		available bool
	}{
		{"fresh_name", nil, true},
		{"ADA", nil, false},
		{"ada", &other, false},
		{"ada", &ada.ID, true},
		{"admin", nil, false},
		{"x", nil, false},
	}
	for _, tc := range cases {
		got, err := env.users.CheckNickname(ctx, tc.nickname, tc.viewer)
		if err != nil {
			t.Fatalf("CheckNickname(%q): %v", tc.nickname, err)
		}
		if got.Available != tc.available {
			t.Errorf("CheckNickname(%q) available = %v, want %v", tc.nickname, got.Available, tc.available)
		}
		if !got.Available && got.Reason == "" {
			t.Errorf("CheckNickname(%q) gave no reason", tc.nickname)
		}
	}

	_, err := env.users.CheckNickname(ctx, "  ", nil)
	expectErr(t, err, ErrValidation)
}

func TestGetPublicProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := registerWithNickname(t, env, "ada", "ada")
	shown := env.seedProperty(t, ada.ID)
	hiddenProperty := env.seedProperty(t, ada.ID)
	hidden := true
	if _, err := env.properties.UpdateProperty(ctx, hiddenProperty.ID, ada.ID, PropertyUpdate{IsHidden: &hidden}); err != nil {
		t.Fatalf("hide: %v", err)
	}

	profile, err := env.users.GetPublicProfile(ctx, "ADA")
	if err != nil {
		t.Fatalf("GetPublicProfile: %v", err)
	}
	if profile.ID != ada.ID || profile.Name != "ada" || !profile.MemberSince.Equal(ada.CreatedAt) {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(profile.Properties) != 1 || profile.Properties[0].ID != shown.ID {
		t.Fatalf("public profile should list only visible properties: %+v", profile.Properties)
	}

	_, err = env.users.GetPublicProfile(ctx, "nobody")
	expectErr(t, err, ErrNotFound)

	stored := env.user(t, ada.ID)
	stored.IsActive = false
	if err := env.store.SaveUser(ctx, stored); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err = env.users.GetPublicProfile(ctx, "ada")
	expectErr(t, err, ErrNotFound)
}
