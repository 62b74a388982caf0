package utils

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	token, err := m.GenerateJWT("64b7f0c2a1b2c3d4e5f60718", "admin")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := m.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "64b7f0c2a1b2c3d4e5f60718" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestJWTRejectsWrongKeyAndExpiry(t *testing.T) {
	token, _ := NewJWTManager("secret", time.Minute).GenerateJWT("u", "user")
	if _, err := NewJWTManager("other", time.Minute).ValidateJWT(token); err == nil {
		t.Fatal("expected signature error")
	}

	expired, _ := NewJWTManager("secret", -time.Minute).GenerateJWT("u", "user")
	if _, err := NewJWTManager("secret", time.Minute).ValidateJWT(expired); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("password stored in clear")
	}
	if !CheckPasswordHash("hunter22", hash) || CheckPasswordHash("hunter23", hash) {
		t.Fatal("password comparison is wrong")
	}
}
