/*
Package auth handles passwords, bearer tokens and the user lifecycle.

TOKENS:
  HS256 JWTs (github.com/dgrijalva/jwt-go). The subject is the user's email;
  every token carries a random jti (github.com/google/uuid) and an expiry.

PASSWORDS:
  bcrypt (golang.org/x/crypto/bcrypt) at the default cost.

ERRORS:
  ErrInvalidCredentials  wrong email or password (HTTP 401)
  ErrInvalidToken        bad, expired or unknown-subject token (HTTP 401)
  ErrInactiveUser        account disabled (HTTP 400)

SEE ALSO:
  - api/middleware.go: bearer extraction and role checks
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/roastsync/roastery/roastery"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrInactiveUser       = errors.New("inactive user")
)

// MinPasswordLength applies to new and changed passwords.
const MinPasswordLength = 8

// =============================================================================
// PASSWORDS
// =============================================================================

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return roastery.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return roastery.Invalid("password", "must be at most 72 bytes")
	}
	return nil
}

// =============================================================================
// TOKENS
// =============================================================================

// Issuer signs and verifies bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for email.
func (i *Issuer) Issue(email string) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.StandardClaims{
		Subject:   email,
		Id:        uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(i.ttl).Unix(),
	})
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token and returns its subject.
func (i *Issuer) Parse(token string) (string, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// =============================================================================
// SERVICE
// =============================================================================

// NewUser is a user to create. Password is plain text.
type NewUser struct {
	Email       string
	FullName    string
	Password    string
	IsActive    bool
	IsSuperuser bool
}

// UserChanges carries the fields to change. Nil means keep.
type UserChanges struct {
	FullName *string
	Password *string
	IsActive *bool
}

// Service authenticates users and manages accounts.
type Service struct {
	users  roastery.UserStore
	issuer *Issuer
	logger *zap.Logger
}

func NewService(users roastery.UserStore, issuer *Issuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, issuer: issuer, logger: logger}
}

// Login checks credentials and returns a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, roastery.User, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if roastery.IsNotFound(err) {
		return "", roastery.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", roastery.User{}, err
	}
	if !CheckPassword(u.HashedPassword, password) {
		return "", roastery.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", roastery.User{}, ErrInactiveUser
	}

	token, err := s.issuer.Issue(u.Email)
	if err != nil {
		return "", roastery.User{}, err
	}
	s.logger.Info("user logged in", zap.Int64("user_id", u.ID))
	return token, u, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (roastery.User, error) {
	email, err := s.issuer.Parse(token)
	if err != nil {
		return roastery.User{}, err
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if roastery.IsNotFound(err) {
		return roastery.User{}, ErrInvalidToken
	}
	if err != nil {
		return roastery.User{}, err
	}
	if !u.IsActive {
		return roastery.User{}, ErrInactiveUser
	}
	return u, nil
}

// Register creates a user. An email already in use is a validation error.
func (s *Service) Register(ctx context.Context, in NewUser) (roastery.User, error) {
	email := strings.TrimSpace(in.Email)
	if !strings.Contains(email, "@") {
		return roastery.User{}, roastery.Invalid("email", "must be a valid email address")
	}
	if err := validatePassword(in.Password); err != nil {
		return roastery.User{}, err
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return roastery.User{}, roastery.Invalid("email", "user already exists")
	case !roastery.IsNotFound(err):
		return roastery.User{}, err
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return roastery.User{}, err
	}

	u := roastery.User{
		Email:          email,
		FullName:       in.FullName,
		IsActive:       in.IsActive,
		IsSuperuser:    in.IsSuperuser,
		HashedPassword: hashed,
	}
	if err := s.users.InsertUser(ctx, &u); err != nil {
		return roastery.User{}, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.Bool("superuser", u.IsSuperuser))
	return u, nil
}

// Update applies changes to user id.
func (s *Service) Update(ctx context.Context, id int64, ch UserChanges) (roastery.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return roastery.User{}, err
	}
	if ch.FullName != nil {
		u.FullName = *ch.FullName
	}
	if ch.IsActive != nil {
		u.IsActive = *ch.IsActive
	}
	if ch.Password != nil && *ch.Password != "" {
		if err := validatePassword(*ch.Password); err != nil {
			return roastery.User{}, err
		}
		if u.HashedPassword, err = HashPassword(*ch.Password); err != nil {
			return roastery.User{}, err
		}
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return roastery.User{}, err
	}
	return u, nil
}

// EnsureSuperuser creates the first superuser unless the email already
// exists. It reports whether a user was created.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !roastery.IsNotFound(err) {
		return false, err
	}

	if _, err := s.Register(ctx, NewUser{
		Email:       email,
		FullName:    "Admin",
		Password:    password,
		IsActive:    true,
		IsSuperuser: true,
	}); err != nil {
		return false, fmt.Errorf("failed to create initial superuser: %w", err)
	}
	return true, nil
}
