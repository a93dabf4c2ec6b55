package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// Identity is the result of a successful token verification.
type Identity struct {
	TokenID string
	Traits  []string
}

// TokenClaims is the claim set accepted on bearer tokens.
type TokenClaims struct {
	UID    string   `json:"uid"`
	Traits []string `json:"traits"`
	jwt.RegisteredClaims
}

// AuthService verifies bearer tokens against a world's secret list and
// resolves them to users, creating the user lazily on first login.
type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	return &AuthService{userRepo: userRepo}
}

// Verify checks a token against every configured secret in order and accepts
// the first entry whose signature, audience and issuer all match. An entry
// whose signature validates but whose audience or issuer mismatches fails
// only that attempt; the next entry is still tried. Pure function of
// (token, config), no side effects.
func (s *AuthService) Verify(token string, config domain.WorldConfig) (*Identity, error) {
	if token == "" {
		return nil, ErrAuthMalformed
	}
	for _, entry := range config.JWTSecrets {
		claims := &TokenClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(entry.Secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			var vErr *jwt.ValidationError
			if errors.As(err, &vErr) {
				switch {
				case vErr.Errors&jwt.ValidationErrorMalformed != 0:
					// Structurally broken regardless of secret.
					return nil, ErrAuthMalformed
				case vErr.Errors&jwt.ValidationErrorExpired != 0:
					// Expiry is a claim, not a function of the secret: if one
					// signature-valid entry sees it expired, they all would.
					return nil, ErrAuthExpired
				}
			}
			continue
		}
		if entry.Audience != "" && !claims.VerifyAudience(entry.Audience, true) {
			continue
		}
		if entry.Issuer != "" && !claims.VerifyIssuer(entry.Issuer, true) {
			continue
		}
		tokenID := claims.UID
		if tokenID == "" {
			tokenID = claims.Subject
		}
		if tokenID == "" {
			return nil, ErrAuthMalformed
		}
		return &Identity{TokenID: tokenID, Traits: claims.Traits}, nil
	}
	return nil, ErrAuthInvalidSignature
}

// LoginWithToken resolves a verified identity to the world-scoped user,
// creating it on first login. Traits are refreshed from the token on every
// login; they are immutable for the lifetime of the token, not of the user.
func (s *AuthService) LoginWithToken(ctx context.Context, worldID string, identity *Identity) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"world_id": worldID, "token_id": identity.TokenID})

	user, err := s.userRepo.FindByTokenID(ctx, worldID, identity.TokenID)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.createUser(ctx, worldID, &identity.TokenID, nil)
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for token login")
		return nil, ErrPersistence
	}

	if err := user.SetTraits(identity.Traits); err != nil {
		logCtx.WithError(err).Error("Failed to encode traits")
		return nil, ErrPersistence
	}
	user.LastLogin = time.Now()
	if err := s.userRepo.Save(ctx, user); err != nil {
		logCtx.WithError(err).Error("Failed to update user on login")
		return nil, ErrPersistence
	}
	logCtx.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

// LoginWithClientID resolves an anonymous guest by client id, creating the
// user on first connect. Guests carry no traits.
func (s *AuthService) LoginWithClientID(ctx context.Context, worldID, clientID string) (*domain.User, error) {
	if clientID == "" {
		return nil, ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"world_id": worldID, "client_id": clientID})

	user, err := s.userRepo.FindByClientID(ctx, worldID, clientID)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.createUser(ctx, worldID, nil, &clientID)
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for client login")
		return nil, ErrPersistence
	}

	user.LastLogin = time.Now()
	if err := s.userRepo.Save(ctx, user); err != nil {
		logCtx.WithError(err).Error("Failed to update user on login")
		return nil, ErrPersistence
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, worldID string, tokenID, clientID *string) (*domain.User, error) {
	user := &domain.User{
		ID:       uuid.NewString(),
		WorldID:  worldID,
		TokenID:  tokenID,
		ClientID: clientID,
	}
	err := s.userRepo.Save(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		// Concurrent first login, the other writer won.
		if tokenID != nil {
			return s.userRepo.FindByTokenID(ctx, worldID, *tokenID)
		}
		return s.userRepo.FindByClientID(ctx, worldID, *clientID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile replaces a user's profile blob and returns the updated user.
func (s *AuthService) UpdateProfile(ctx context.Context, worldID, userID string, profile map[string]interface{}) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, worldID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	if err := user.SetProfile(profile); err != nil {
		return nil, ErrInvalidInput
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to save profile update")
		return nil, ErrPersistence
	}
	return user, nil
}

// FetchUser returns another user's public view.
func (s *AuthService) FetchUser(ctx context.Context, worldID, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, worldID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	return user, nil
}
