package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/repository/mocks"
	"github.com/eventhall/eventhall/internal/service"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func configWithSecrets(secrets ...domain.JWTSecret) domain.WorldConfig {
	return domain.WorldConfig{JWTSecrets: secrets}
}

func TestAuthService_Verify_AcceptsSecondSecret(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(
		domain.JWTSecret{Secret: "retired-secret"},
		domain.JWTSecret{Secret: "current-secret"},
	)
	token := signToken(t, "current-secret", jwt.MapClaims{
		"uid":    "user-1",
		"traits": []string{"speaker"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	identity, err := authService.Verify(token, config)

	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.TokenID)
	assert.Equal(t, []string{"speaker"}, identity.Traits)
}

func TestAuthService_Verify_AudienceMismatchTriesNextEntry(t *testing.T) {
	// Both entries share a signing key; only the second accepts this
	// audience. The first entry must not short-circuit verification.
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(
		domain.JWTSecret{Secret: "shared", Audience: "backstage"},
		domain.JWTSecret{Secret: "shared", Audience: "attendees"},
	)
	token := signToken(t, "shared", jwt.MapClaims{
		"uid": "user-2",
		"aud": "attendees",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	identity, err := authService.Verify(token, config)

	require.NoError(t, err)
	assert.Equal(t, "user-2", identity.TokenID)
}

func TestAuthService_Verify_IssuerMismatchRejected(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(domain.JWTSecret{Secret: "shared", Issuer: "ticketing"})
	token := signToken(t, "shared", jwt.MapClaims{
		"uid": "user-3",
		"iss": "somewhere-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := authService.Verify(token, config)

	assert.True(t, errors.Is(err, service.ErrAuthInvalidSignature))
}

func TestAuthService_Verify_Expired(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(domain.JWTSecret{Secret: "shared"})
	token := signToken(t, "shared", jwt.MapClaims{
		"uid": "user-4",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := authService.Verify(token, config)

	assert.True(t, errors.Is(err, service.ErrAuthExpired))
}

func TestAuthService_Verify_Malformed(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(domain.JWTSecret{Secret: "shared"})

	_, err := authService.Verify("definitely-not-a-jwt", config)
	assert.True(t, errors.Is(err, service.ErrAuthMalformed))

	_, err = authService.Verify("", config)
	assert.True(t, errors.Is(err, service.ErrAuthMalformed))
}

func TestAuthService_Verify_UnknownSignature(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(domain.JWTSecret{Secret: "configured"})
	token := signToken(t, "someone-elses-key", jwt.MapClaims{
		"uid": "user-5",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := authService.Verify(token, config)

	assert.True(t, errors.Is(err, service.ErrAuthInvalidSignature))
}

func TestAuthService_Verify_SubjectFallback(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))
	config := configWithSecrets(domain.JWTSecret{Secret: "shared"})
	token := signToken(t, "shared", jwt.MapClaims{
		"sub": "subject-6",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	identity, err := authService.Verify(token, config)

	require.NoError(t, err)
	assert.Equal(t, "subject-6", identity.TokenID)
}

func TestAuthService_LoginWithToken_CreatesUserOnFirstLogin(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := service.NewAuthService(mockUserRepo)
	ctx := context.Background()
	identity := &service.Identity{TokenID: "tok-1", Traits: []string{"speaker"}}

	mockUserRepo.On("FindByTokenID", ctx, "w1", "tok-1").
		Return(nil, repository.ErrUserNotFound).Once()
	// First save creates the user, second one refreshes traits and last login.
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.WorldID == "w1" && u.TokenID != nil && *u.TokenID == "tok-1"
	})).Return(nil).Twice()

	user, err := authService.LoginWithToken(ctx, "w1", identity)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ID)
	traits, err := user.ParseTraits()
	require.NoError(t, err)
	assert.Equal(t, []string{"speaker"}, traits)
	assert.False(t, user.LastLogin.IsZero())
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_LoginWithToken_ConcurrentCreateFallsBackToWinner(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := service.NewAuthService(mockUserRepo)
	ctx := context.Background()
	identity := &service.Identity{TokenID: "tok-2"}
	tokenID := "tok-2"
	existing := &domain.User{ID: "winner", WorldID: "w1", TokenID: &tokenID}

	mockUserRepo.On("FindByTokenID", ctx, "w1", "tok-2").
		Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).Once()
	mockUserRepo.On("FindByTokenID", ctx, "w1", "tok-2").
		Return(existing, nil).Once()
	mockUserRepo.On("Save", ctx, existing).Return(nil).Once()

	user, err := authService.LoginWithToken(ctx, "w1", identity)

	require.NoError(t, err)
	assert.Equal(t, "winner", user.ID)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_LoginWithClientID_RequiresClientID(t *testing.T) {
	authService := service.NewAuthService(new(mocks.UserRepository))

	_, err := authService.LoginWithClientID(context.Background(), "w1", "")

	assert.True(t, errors.Is(err, service.ErrInvalidInput))
}
