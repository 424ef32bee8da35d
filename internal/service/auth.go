package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/akulinich/clipshare/internal/crypto"
	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
	"github.com/akulinich/clipshare/internal/repository"
)

// AuthService authenticates clipboard owners. Visitors never authenticate
// here; they go through the AccessGate with a PIN.
type AuthService struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
}

// NewAuthService constructs AuthService.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &AuthService{users: users, signKey: signKey, accessTTL: accessTTL}
}

// Register creates a new owner account with a hashed password.
func (s *AuthService) Register(ctx context.Context, username, password string) (uuid.UUID, error) {
	if username == "" || password == "" {
		return uuid.Nil, fmt.Errorf("empty username/password: %w", errs.ErrInvalidInput)
	}
	hash, err := crypto.HashSecret(password)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	u := &model.User{ID: id, Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Login authenticates and issues an access token. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.Tokens, *model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		// User lookup errors are masked as unauthorized.
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}
	ok, err := crypto.VerifySecret(password, u.PasswordHash)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if !ok {
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, u, nil
}

// VerifyToken parses an owner access token and returns the user id.
func (s *AuthService) VerifyToken(tokenStr string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthService) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}
