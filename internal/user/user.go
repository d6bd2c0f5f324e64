// Package user registers marketplace accounts and checks their passwords.
package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/pkg/logging"
)

const MinPasswordLength = 6

type Store interface {
	// CreateUser fails with ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	// UpdateUser applies fn to the current user and stores the result atomically.
	UpdateUser(ctx context.Context, id string, fn func(*domain.User) error) (domain.User, error)
}

type Service struct {
	store Store
	log   logging.Logger
	cost  int
	now   func() time.Time
}

type Option func(*Service)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store Store, log logging.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, cost: bcrypt.DefaultCost, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Registration struct {
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Password     string           `json:"password"`
	Role         domain.Role      `json:"role"`
	Phone        string           `json:"phone"`
	Address      string           `json:"address"`
	BusinessName string           `json:"businessName"`
	Location     *domain.GeoPoint `json:"location"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r Registration) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return domain.Validation("user.register", "Please provide name, email and password")
	}
	email := strings.TrimSpace(r.Email)
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return domain.Validation("user.register", "Please provide a valid email")
	}
	if len(r.Password) < MinPasswordLength {
		return domain.Validation("user.register", "Password must be at least %d characters", MinPasswordLength)
	}
	if !r.Role.Valid() {
		return domain.Validation("user.register", "Role must be vendor or supplier")
	}
	return nil
}

// Register creates the account with a bcrypt hash of the password.
func (s *Service) Register(ctx context.Context, r Registration) (domain.User, error) {
	if err := r.validate(); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(r.Name),
		Email:        normalizeEmail(r.Email),
		PasswordHash: string(hash),
		Role:         r.Role,
		Phone:        strings.TrimSpace(r.Phone),
		Address:      strings.TrimSpace(r.Address),
		BusinessName: strings.TrimSpace(r.BusinessName),
		Location:     r.Location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.User{}, &domain.Error{Op: "user.register", Kind: domain.ErrDuplicate, Message: "User already exists with this email", Err: err}
		}
		return domain.User{}, err
	}
	s.log.Log(logging.Fields{CallerID: u.ID, Step: "user_register", Status: string(u.Role)})
	return u, nil
}

// Login returns the account matching email and password. Unknown emails and wrong passwords
// fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.User{}, domain.Validation("user.login", "Please provide email and password")
	}
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.Unauthenticated("user.login", "Invalid credentials")
	}
	if err != nil {
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.Unauthenticated("user.login", "Invalid credentials")
	}
	s.log.Log(logging.Fields{CallerID: u.ID, Step: "user_login", Status: "ok"})
	return u, nil
}

func (s *Service) Profile(ctx context.Context, c domain.Caller) (domain.User, error) {
	return s.store.GetUser(ctx, c.ID)
}

// UpdateProfile changes the caller's own profile. Email, role and password stay as registered.
func (s *Service) UpdateProfile(ctx context.Context, c domain.Caller, p domain.ProfilePatch) (domain.User, error) {
	return s.store.UpdateUser(ctx, c.ID, func(u *domain.User) error {
		p.Apply(u)
		u.Name = strings.TrimSpace(u.Name)
		if u.Name == "" {
			return domain.Validation("user.update", "Name cannot be empty")
		}
		u.UpdatedAt = s.now()
		return nil
	})
}
