package supervisync

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mahimpkl/supervisync/internal/auth"
)

func TestJWTAuth_GenerateToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	userID := "test-user-123"
	deviceID := "test-device-456"
	duration := time.Hour

	token, err := jwtAuth.GenerateToken(userID, deviceID, RoleUser, duration)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("Generated token should not be empty")
	}

	// Verify the token can be parsed
	claims, err := jwtAuth.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate generated token: %v", err)
	}

	if claims.DeviceID != deviceID {
		t.Errorf("Expected device_id %s, got %s", deviceID, claims.DeviceID)
	}

	if claims.Subject != userID {
		t.Errorf("Expected user_id %s, got %s", userID, claims.Subject)
	}

	if claims.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, claims.Role)
	}

	// Verify token expiration
	if claims.ExpiresAt == nil {
		t.Error("Token should have expiration time")
	}

	expectedExpiry := time.Now().Add(duration)
	actualExpiry := claims.ExpiresAt.Time
	timeDiff := actualExpiry.Sub(expectedExpiry).Abs()

	if timeDiff > time.Second {
		t.Errorf("Token expiry time differs by more than 1 second: expected ~%v, got %v", expectedExpiry, actualExpiry)
	}
}

func TestJWTAuth_ValidateToken_AdminRole(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	token, err := jwtAuth.GenerateToken("admin-user", "admin-device", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := jwtAuth.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.Role != RoleAdmin {
		t.Errorf("Expected role %s, got %s", RoleAdmin, claims.Role)
	}

	if claims.Issuer != "supervisync" {
		t.Errorf("Expected issuer 'supervisync', got %s", claims.Issuer)
	}
}

func TestJWTAuth_ValidateToken_InvalidSecret(t *testing.T) {
	jwtAuth1 := NewJWTAuth("secret-1")
	jwtAuth2 := NewJWTAuth("secret-2")

	// Generate token with first secret
	token, err := jwtAuth1.GenerateToken("test-user", "test-device", RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// Try to validate with different secret
	_, err = jwtAuth2.ValidateToken(token)
	if err == nil {
		t.Error("Expected validation to fail with different secret")
	}
}

func TestJWTAuth_ValidateToken_ExpiredToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	// Generate token with very short expiration
	token, err := jwtAuth.GenerateToken("test-user", "test-device", RoleUser, time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// Wait for token to expire
	time.Sleep(10 * time.Millisecond)

	// Try to validate expired token
	_, err = jwtAuth.ValidateToken(token)
	if err == nil {
		t.Error("Expected validation to fail for expired token")
	}
}

func TestJWTAuth_ValidateToken_MalformedToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	testCases := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"invalid format", "not.a.jwt"},
		{"random string", "random-string"},
		{"partial token", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jwtAuth.ValidateToken(tc.token)
			if err == nil {
				t.Errorf("Expected validation to fail for %s", tc.name)
			}
		})
	}
}

func TestJWTAuth_ValidateToken_MissingDeviceID(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	// Create token without device_id
	claims := &JWTClaims{
		DeviceID: "", // Empty device ID
		Role:     RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "test-user",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtAuth.secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	// Try to validate token without device_id
	_, err = jwtAuth.ValidateToken(tokenString)
	if err == nil {
		t.Error("Expected validation to fail for missing device_id")
	}
}

func TestJWTAuth_ValidateToken_InvalidRole(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	claims := &JWTClaims{
		DeviceID: "test-device",
		Role:     "superuser", // Not an accepted role
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "test-user",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtAuth.secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	_, err = jwtAuth.ValidateToken(tokenString)
	if err == nil {
		t.Error("Expected validation to fail for invalid role")
	}
}

func TestJWTAuth_GettersReadAuthContext(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	// Behind Middleware the identity lives in the request context; the
	// getters must read it from there without re-parsing the token, so a
	// request carrying only the context (no Authorization header) resolves.
	req := httptest.NewRequest("GET", "/sync/download", nil)
	req = req.WithContext(auth.SetAuthContext(req.Context(), "ctx-user", "ctx-device", RoleAdmin))

	userID, err := jwtAuth.GetUserID(req)
	if err != nil {
		t.Fatalf("GetUserID failed with populated context: %v", err)
	}
	if userID != "ctx-user" {
		t.Errorf("Expected user ID ctx-user, got %s", userID)
	}

	deviceID, err := jwtAuth.GetDeviceID(req)
	if err != nil {
		t.Fatalf("GetDeviceID failed with populated context: %v", err)
	}
	if deviceID != "ctx-device" {
		t.Errorf("Expected device ID ctx-device, got %s", deviceID)
	}

	role, err := jwtAuth.GetRole(req)
	if err != nil {
		t.Fatalf("GetRole failed with populated context: %v", err)
	}
	if role != RoleAdmin {
		t.Errorf("Expected role %s, got %s", RoleAdmin, role)
	}
}

func TestJWTAuth_GettersFallBackToBearerToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")

	token, err := jwtAuth.GenerateToken("token-user", "token-device", RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// No middleware ran: identity comes from the bearer token.
	req := httptest.NewRequest("GET", "/sync/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, err := jwtAuth.GetUserID(req)
	if err != nil {
		t.Fatalf("GetUserID failed with bearer token: %v", err)
	}
	if userID != "token-user" {
		t.Errorf("Expected user ID token-user, got %s", userID)
	}

	// Neither context nor header is an error.
	bare := httptest.NewRequest("GET", "/sync/download", nil)
	if _, err := jwtAuth.GetUserID(bare); err == nil {
		t.Error("Expected GetUserID to fail without context or header")
	}
}

func TestJWTAuth_TokenRoundTrip(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret-roundtrip")

	testCases := []struct {
		userID   string
		deviceID string
		role     string
		duration time.Duration
	}{
		{"user-1", "device-1", RoleUser, time.Hour},
		{"admin-1", "device-admin", RoleAdmin, 30 * time.Minute},
		{"very-long-user-id", "very-long-device-id-with-many-characters", RoleUser, 24 * time.Hour},
		{"123", "456", RoleAdmin, time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.userID+"-"+tc.deviceID, func(t *testing.T) {
			// Generate token
			token, err := jwtAuth.GenerateToken(tc.userID, tc.deviceID, tc.role, tc.duration)
			if err != nil {
				t.Fatalf("Failed to generate token: %v", err)
			}

			// Validate token
			claims, err := jwtAuth.ValidateToken(token)
			if err != nil {
				t.Fatalf("Failed to validate token: %v", err)
			}

			// Verify identity claims match
			if claims.Subject != tc.userID {
				t.Errorf("user ID mismatch: expected %s, got %s", tc.userID, claims.Subject)
			}
			if claims.DeviceID != tc.deviceID {
				t.Errorf("device ID mismatch: expected %s, got %s", tc.deviceID, claims.DeviceID)
			}
			if claims.Role != tc.role {
				t.Errorf("role mismatch: expected %s, got %s", tc.role, claims.Role)
			}

			// Verify token is not expired
			if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
				t.Error("Token should not be expired immediately after generation")
			}
		})
	}
}
