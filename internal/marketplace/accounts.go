package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
	"github.com/terra-clan/studyhub/internal/validation"
)

const (
	defaultBcryptCost = bcrypt.DefaultCost
	tokenIssuer       = "studyhub"
	birthDateLayout   = "2006-01-02"
	adultAge          = 18
)

// RegisterInput is the sign-up form
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// LoginResult carries an issued access token
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// ProfileInput replaces the editable profile fields.
// An empty email keeps the current one; an empty birth_date clears it.
type ProfileInput struct {
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Bio       string `json:"bio" validate:"max=2000"`
	Phone     string `json:"phone" validate:"max=20"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

// Profile is a user together with derived profile facts
type Profile struct {
	*models.User
	FullName string `json:"full_name"`
	Age      *int   `json:"age,omitempty"`
	IsAdult  bool   `json:"is_adult"`
}

// Register creates a student account
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         models.RoleStudent,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, storageErr("create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// BootstrapAdmin creates an administrator account from the command line
func (s *Service) BootstrapAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, validationErr("username and email are required")
	}
	if len(password) < 8 {
		return nil, validationErr("password must be at least 8 characters")
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, storageErr("create admin", err)
	}

	s.logger.Info("admin created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username %q is already taken", ErrConflict, username)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email %q is already registered", ErrConflict, email)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	return nil
}

// Login verifies credentials and opens a session
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("login failed", "username", user.Username)
		return nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.signToken(session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (s *Service) signToken(session *models.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   strconv.FormatInt(session.UserID, 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user and session
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	session, err := s.repo.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: session not found", ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if session.IsExpired(s.now()) {
		return nil, nil, fmt.Errorf("%w: session expired", ErrUnauthorized)
	}
	if strconv.FormatInt(session.UserID, 10) != claims.Subject {
		return nil, nil, fmt.Errorf("%w: token subject mismatch", ErrUnauthorized)
	}

	user, err := s.repo.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	return user, session, nil
}

// Logout ends a session
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Profile returns the profile of a user
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return s.profile(user), nil
}

func (s *Service) profile(user *models.User) *Profile {
	p := &Profile{User: user, FullName: user.FullName()}
	now := s.now()
	if age, ok := user.Age(now); ok {
		p.Age = &age
		p.IsAdult = age >= adultAge
	}
	return p
}

// UpdateProfile replaces the editable profile fields. The role never changes here.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*Profile, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, storageErr("get user", err)
	}

	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = email
	}
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Bio = in.Bio
	user.Phone = in.Phone
	user.BirthDate = nil

	if in.BirthDate != "" {
		bd, err := time.Parse(birthDateLayout, in.BirthDate)
		if err != nil {
			return nil, validationErr("birth_date must be YYYY-MM-DD")
		}
		if bd.After(s.now()) {
			return nil, validationErr("birth_date cannot be in the future")
		}
		user.BirthDate = &bd
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, storageErr("update user", err)
	}
	return s.profile(user), nil
}
