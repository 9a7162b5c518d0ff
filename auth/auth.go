// Package auth provides signup/signin over the storage backend, HS256
// token issuing and validation, and the role capability checks the rest of
// the system authorizes against.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/stridehq/stride/models"
	"github.com/stridehq/stride/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPassword    = errors.New("password must be at least 8 characters and contain letters and numbers")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 72 * time.Hour
)

// Service issues and validates tokens and manages user accounts.
type Service struct {
	store      storage.StorageInterface
	signingKey string
}

// NewService creates an auth service over the given storage backend.
func NewService(store storage.StorageInterface, signingKey string) *Service {
	return &Service{store: store, signingKey: signingKey}
}

// ValidateEmail takes an email string as input and returns a boolean indicating whether the input is a valid email address.
func ValidateEmail(email string) bool {
	const emailPattern = `^(?i)[a-z0-9._%+\-]+@(?:[a-z0-9\-]+\.)+[a-z]{2,}$`
	matched, err := regexp.MatchString(emailPattern, email)
	return err == nil && matched
}

// ValidatePassword takes a password string as input and returns a boolean indicating whether the input is a valid password.
// A valid password is at least 8 characters long and contains both numbers and letters.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	containsLetter, _ := regexp.MatchString(`[a-zA-Z]`, password)
	containsNumber, _ := regexp.MatchString(`[0-9]`, password)
	return containsLetter && containsNumber
}

// SignUp creates a new user account with the member role.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	if !ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !ValidatePassword(password) {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleMember,
		CreatedAt:    time.Now(),
	}
	return s.store.AddUser(ctx, user)
}

// SignIn verifies the credentials and returns an access and refresh token
// pair.
func (s *Service) SignIn(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	accessToken, err = s.createToken(user.ID, accessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.createToken(user.ID, refreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// createToken signs an HS256 token carrying the user id.
func (s *Service) createToken(userID primitive.ObjectID, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID.Hex(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(s.signingKey))
}

// ParseUserID validates a token string and extracts the user id claim.
func (s *Service) ParseUserID(tokenStr string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return primitive.NilObjectID, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.signingKey), nil
	})
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return primitive.NilObjectID, errors.New("invalid token claims")
	}

	userIDStr, ok := claims["id"].(string)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid token claims")
	}

	userID, err := primitive.ObjectIDFromHex(userIDStr)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid user ID")
	}
	return userID, nil
}

// FindUser loads a user by id.
func (s *Service) FindUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.store.FindUserByID(ctx, userID)
}
