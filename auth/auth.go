// Package auth handles email/password accounts and the bearer tokens that
// identify a signed-in trader to the calculation history.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/rustyeddy/fxforecast/pkg/id"
	"github.com/rustyeddy/fxforecast/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("sign in required")
	ErrInvalidRequest     = errors.New("invalid request")
)

const (
	DefaultRole     = "member"
	DefaultTokenTTL = 24 * time.Hour
	issuer          = "fxforecast"
)

// Session identifies the signed-in user. A nil or zero Session is
// anonymous.
type Session struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=120"`
}

type ProfileUpdate struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Role     *string `json:"role" validate:"omitempty,oneof=member admin"`
}

type claims struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	users    store.UserStore
	secret   []byte
	ttl      time.Duration
	validate *validator.Validate

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// NewService returns a Service signing HS256 tokens with secret. A
// non-positive ttl means DefaultTokenTTL.
func NewService(users store.UserStore, secret string, ttl time.Duration) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("auth: user store is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:      users,
		secret:     []byte(secret),
		ttl:        ttl,
		validate:   validator.New(),
		BcryptCost: bcrypt.DefaultCost,
	}, nil
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// SignUp creates the account and profile and returns a signed-in session.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (Session, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.check(req); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := store.User{
		ID:           id.New(),
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         DefaultRole,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("sign up: %w", err)
	}
	log.Info().Str("user_id", u.ID).Msg("user signed up")
	return s.issue(u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Debug().Str("user_id", u.ID).Msg("password mismatch")
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *Service) issue(u store.User) (Session, error) {
	now := time.Now()
	c := claims{
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		Token:    token,
	}, nil
}

// Verify parses a bearer token. Every failure, including expiry, is
// reported as ErrInvalidToken.
func (s *Service) Verify(token string) (Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Session{}, ErrUnauthenticated
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{
		UserID:   c.Subject,
		Email:    c.Email,
		FullName: c.FullName,
		Role:     c.Role,
		Token:    token,
	}, nil
}

// Profile returns the stored profile without its password hash.
func (s *Service) Profile(ctx context.Context, userID string) (store.User, error) {
	if userID == "" {
		return store.User{}, ErrUnauthenticated
	}
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return store.User{}, fmt.Errorf("profile: %w", err)
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (store.User, error) {
	if err := s.check(upd); err != nil {
		return store.User{}, err
	}
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if upd.FullName != nil {
		u.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return store.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}
