package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"article-api/internal/domain"
	"article-api/internal/repository"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// It is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists is returned when signing up with an email that is already registered.
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound is returned when an operation references a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput wraps validation failures on request payloads.
	ErrInvalidInput = errors.New("invalid input")
)

// SignupInput carries the fields accepted at signup.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Age      *float64
}

// UserService describes user lifecycle operations.
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, name *string, age *float64) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	cache  ArticleCache
	cost   int
	logger logrus.FieldLogger
}

// NewUserService builds a UserService. cache may be nil; when set, name
// changes drop the cached article listing since it embeds author names.
func NewUserService(users repository.UserRepository, cache ArticleCache, bcryptCost int, logger logrus.FieldLogger) UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = DefaultBcryptCost
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &userService{
		users:  users,
		cache:  cache,
		cost:   bcryptCost,
		logger: logger,
	}
}

func (s *userService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	email := in.Email
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrEmailExists
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Age:          in.Age,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// a concurrent signup can slip past the lookup; the unique index catches it
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, name *string, age *float64) (*domain.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, name, age)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if s.cache != nil && name != nil {
		if err := s.cache.InvalidateArticles(ctx); err != nil {
			s.logger.WithError(err).Warn("invalidate article cache")
		}
	}
	return user, nil
}
