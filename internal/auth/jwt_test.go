package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParse_ValidHS256(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{UserID: "u1", Email: "u1@example.com"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" || claims.Issuer != "cronoapp" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParse_RejectsUnexpectedAlgorithm(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "u1",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenStr, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	if _, err := Parse(secret, tokenStr); err == nil {
		t.Fatalf("expected parse to reject non-HS256 token")
	}
}

func TestParse_RejectsExpiredAndForeignTokens(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := Issue(secret, Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(secret, expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	foreign, err := Issue([]byte("other-secret"), Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(secret, foreign); err == nil {
		t.Fatal("expected token signed with another key to fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrWeakPassword {
		t.Fatalf("short password err = %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := CheckPassword(hash, "wrong horse"); err != ErrInvalidCredentials {
		t.Fatalf("wrong password err = %v", err)
	}
}
