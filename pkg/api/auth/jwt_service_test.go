package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func testService(t *testing.T) *JWTService {
	t.Helper()
	service, err := NewJWTService(JWTConfig{
		Secret:               testSecret,
		Issuer:               "test-issuer",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return service
}

func testUser() *models.User {
	return &models.User{
		ID:       "test-uuid",
		Username: "testuser",
		Role:     string(models.RoleUser),
	}
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "short"})
	if !errors.Is(err, ErrInvalidSecretLength) {
		t.Fatalf("Expected ErrInvalidSecretLength, got: %v", err)
	}

	_, err = NewJWTService(JWTConfig{})
	if !errors.Is(err, ErrInvalidSecretLength) {
		t.Fatalf("Expected ErrInvalidSecretLength for empty secret, got: %v", err)
	}
}

func TestGenerateTokenPair(t *testing.T) {
	service := testService(t)

	pair, err := service.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if pair.AccessToken == "" {
		t.Error("Expected non-empty access token")
	}
	if pair.RefreshToken == "" {
		t.Error("Expected non-empty refresh token")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("Expected Bearer token type, got: %s", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("Unexpected expires_in: %d", pair.ExpiresIn)
	}
}

func TestValidateAccessToken(t *testing.T) {
	service := testService(t)
	pair, err := service.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	claims, err := service.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("Expected valid access token, got: %v", err)
	}
	if claims.UserID != "test-uuid" {
		t.Errorf("Unexpected user id: %s", claims.UserID)
	}
	if claims.Username != "testuser" {
		t.Errorf("Unexpected username: %s", claims.Username)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("Unexpected token type: %s", claims.TokenType)
	}

	// A refresh token is not an access token.
	if _, err := service.ValidateAccessToken(pair.RefreshToken); err == nil {
		t.Error("Expected error validating refresh token as access token")
	}
}

func TestValidateRefreshToken(t *testing.T) {
	service := testService(t)
	pair, err := service.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	claims, err := service.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Expected valid refresh token, got: %v", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Errorf("Unexpected token type: %s", claims.TokenType)
	}

	if _, err := service.ValidateRefreshToken(pair.AccessToken); err == nil {
		t.Error("Expected error validating access token as refresh token")
	}
}

func TestValidateToken_InvalidInput(t *testing.T) {
	service := testService(t)

	if _, err := service.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got: %v", err)
	}

	// Token signed with a different secret is rejected.
	other, err := NewJWTService(JWTConfig{Secret: "another-secret-key-that-is-32-chars"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	pair, err := other.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := service.ValidateToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got: %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service, err := NewJWTService(JWTConfig{
		Secret:              testSecret,
		AccessTokenDuration: -time.Minute,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pair, err := service.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := service.ValidateToken(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got: %v", err)
	}
}
