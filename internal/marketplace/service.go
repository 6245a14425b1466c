// Package marketplace implements the use cases of the course marketplace:
// accounts, catalog browsing, authoring, enrollment, the cart and checkout,
// support requests and admin statistics.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/cart"
	"github.com/terra-clan/studyhub/internal/content"
	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/recommend"
	"github.com/terra-clan/studyhub/internal/storage"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrCartEmpty       = errors.New("cart is empty")
	ErrNoPaidItems     = errors.New("no paid courses in cart")
	ErrNotEnrolled     = errors.New("not enrolled in this course")
	ErrCourseNotFree   = errors.New("course is not free")
	ErrAlreadyReviewed = errors.New("course already reviewed")
)

// Config holds service settings
type Config struct {
	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int
	Now        func() time.Time
}

// Deps are the collaborators of the service
type Deps struct {
	Repo    storage.Repository
	Carts   cart.Store
	Engine  *recommend.Engine
	Guard   *authz.Guard
	Content *content.Loader
}

// Service implements the marketplace use cases
type Service struct {
	repo       storage.Repository
	carts      cart.Store
	engine     *recommend.Engine
	guard      *authz.Guard
	content    *content.Loader
	jwtSecret  []byte
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *slog.Logger
}

// New creates the service
func New(deps Deps, cfg Config) (*Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("marketplace: repository is required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("marketplace: cart store is required")
	}
	if deps.Guard == nil {
		return nil, fmt.Errorf("marketplace: guard is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("marketplace: JWT secret is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	engine := deps.Engine
	if engine == nil {
		engine = recommend.NewEngine(nil, deps.Repo)
	}

	loader := deps.Content
	if loader == nil {
		l, err := content.NewLoader()
		if err != nil {
			return nil, err
		}
		loader = l
	}

	return &Service{
		repo:       deps.Repo,
		carts:      deps.Carts,
		engine:     engine,
		guard:      deps.Guard,
		content:    loader,
		jwtSecret:  []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		now:        cfg.Now,
		logger:     slog.With("component", "marketplace"),
	}, nil
}

// Guard returns the authorization guard used by the service
func (s *Service) Guard() *authz.Guard {
	return s.guard
}

// authorize turns a deny decision into an error
func (s *Service) authorize(user *models.User, action authz.Action, resource authz.Owned) error {
	d := s.guard.Authorize(user, action, resource)
	if d.Allowed {
		return nil
	}
	if user == nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, d.Reason)
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

// storageErr maps repository sentinels onto service errors
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// percent returns int(part/total*100), 0 when total is 0
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}

// Cart loads the user's cart
func (s *Service) Cart(ctx context.Context, userID int64) (cart.Cart, error) {
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

// SaveCart stores the user's cart
func (s *Service) SaveCart(ctx context.Context, userID int64, c cart.Cart) error {
	if err := s.carts.Save(ctx, userID, c); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// ClearCart empties the user's cart
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
