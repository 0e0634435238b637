package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
)

var testJWTConfig = config.JWTConfig{Secret: "test-secret", Issuer: "shopflow-identity"}

func mintToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, email string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"uid":   userID.String(),
		"email": email,
		"role":  "customer",
		"iss":   cfg.Issuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func identityProbe(t *testing.T) (http.Handler, *uuid.UUID, *string) {
	t.Helper()

	var gotUser uuid.UUID
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotEmail = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return Identity(testJWTConfig, nil)(next), &gotUser, &gotEmail
}

func TestIdentityValidToken(t *testing.T) {
	userID := uuid.New()
	handler, gotUser, gotEmail := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, testJWTConfig, userID, "member@example.com"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d (%s)", rec.Code, rec.Body.String())
	}
	if *gotUser != userID {
		t.Fatalf("expected user id %s got %s", userID, *gotUser)
	}
	if *gotEmail != "member@example.com" {
		t.Fatalf("expected email propagated, got %q", *gotEmail)
	}
}

func TestIdentityMissingHeaderIsGuest(t *testing.T) {
	handler, gotUser, _ := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected guest pass-through, got %d", rec.Code)
	}
	if *gotUser != uuid.Nil {
		t.Fatalf("expected nil user id for guest, got %s", *gotUser)
	}
}

func TestIdentityInvalidTokenRejected(t *testing.T) {
	handler, _, _ := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestIdentityWrongSecretRejected(t *testing.T) {
	handler, _, _ := identityProbe(t)

	bad := config.JWTConfig{Secret: "other-secret", Issuer: testJWTConfig.Issuer}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, bad, uuid.New(), ""))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
