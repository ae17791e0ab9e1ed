package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token revoked")
)

// MinPasswordLength is the shortest password accepted at signup
const MinPasswordLength = 6

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Claims are carried in every issued token
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is an issued token and the account it belongs to
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Identity is who a verified token speaks for
type Identity struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Service signs users up and in, and verifies their tokens
type Service struct {
	users    UserStore
	denylist Denylist
	secret   []byte
	ttl      time.Duration
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates an auth service
func NewService(users UserStore, denylist Denylist, secret string, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		users:    users,
		denylist: denylist,
		secret:   []byte(secret),
		ttl:      ttl,
		validate: validator.New(),
		log:      log.With("service", "auth"),
		now:      time.Now,
	}
}

// Signup creates an account and logs it in
func (s *Service) Signup(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:                  uuid.NewString(),
		Email:               email,
		PasswordHash:        string(hash),
		NotificationEnabled: true,
		NotificationHour:    18,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info("user signed up", "user_id", user.ID)
	return s.issue(user)
}

// Login checks credentials and issues a token
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Logout revokes the token until it expires
func (s *Service) Logout(ctx context.Context, token string) error {
	id, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.denylist.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return err
	}
	s.log.Info("user logged out", "user_id", id.UserID)
	return nil
}

// Authenticate verifies a token and returns who it belongs to
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return Identity{}, ErrTokenRevoked
	}

	return Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// User returns the account behind an identity
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) issue(user *models.User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}
