package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rede-de-patas/patas-api/internal/auth"
	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/db/repositories"
	"github.com/rede-de-patas/patas-api/internal/policy"
	"github.com/rede-de-patas/patas-api/internal/telemetry"
)

// RegisterInput is the payload of a new account
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Phone      *string
	PostalCode *string
	Address    *string
	// IsAdmin is honoured only when auth.allow_admin_signup is enabled
	IsAdmin bool
	models.HousingSurvey
}

// ProfileInput is a partial profile update. Nil fields are left unchanged.
type ProfileInput struct {
	Name       *string
	Email      *string
	Password   *string
	Phone      *string
	PostalCode *string
	Address    *string
	models.HousingSurvey
}

// Token is an issued access token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AccountService handles registration, login and profile management
type AccountService struct {
	users UserStore
	ongs  OngStore
	cfg   config.AuthConfig

	// dummyHash is compared against when the email is unknown so that both
	// failure paths cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore, ongs OngStore, cfg config.AuthConfig) *AccountService {
	return &AccountService{users: users, ongs: ongs, cfg: cfg}
}

// Register creates a user account. A taken email returns a Conflict error.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return nil, invalid("name and email are required")
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, invalid(err.Error())
	}
	if err != nil {
		return nil, unavailable("hash_password", err)
	}

	user := &models.User{
		Name:          name,
		Email:         email,
		Phone:         in.Phone,
		PostalCode:    in.PostalCode,
		Address:       in.Address,
		IsAdmin:       in.IsAdmin && s.cfg.AllowAdminSignup,
		PasswordHash:  hash,
		HousingSurvey: in.HousingSurvey,
	}
	if in.IsAdmin && !s.cfg.AllowAdminSignup {
		slog.Info("admin signup disabled, registering as regular user", "email", email)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, conflict("email already registered", err)
		}
		return nil, unavailable("create_user", err)
	}
	return user, nil
}

// Login exchanges an email and password for an access token. An unknown
// email and a wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Token, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, nil, unavailable("get_user_by_email", err)
	}

	if user == nil {
		auth.VerifyPassword(password, s.fallbackHash())
		telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, unauthenticated("incorrect email or password")
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, unauthenticated("incorrect email or password")
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return token, user, nil
}

// Authenticate resolves a bearer token to its user. Every failure, including
// a token for a user that no longer exists, is Unauthenticated.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := auth.VerifyToken(token)
	if err != nil {
		return nil, unauthenticated("invalid or expired token")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, unavailable("get_user", err)
	}
	if user == nil {
		return nil, unauthenticated("invalid or expired token")
	}
	return user, nil
}

// Refresh issues a fresh token for an authenticated user
func (s *AccountService) Refresh(_ context.Context, actor *models.User) (*Token, error) {
	if actor == nil {
		return nil, unauthenticated("authentication required")
	}
	return s.issue(actor)
}

// Me returns the actor together with the ONGs they belong to
func (s *AccountService) Me(ctx context.Context, actor *models.User) (*models.UserWithMemberships, error) {
	if actor == nil {
		return nil, unauthenticated("authentication required")
	}
	memberships, err := s.ongs.GetUserMemberships(ctx, actor.ID)
	if err != nil {
		return nil, unavailable("get_user_memberships", err)
	}
	return &models.UserWithMemberships{User: *actor, Memberships: memberships}, nil
}

// UpdateProfile applies a partial update to the actor's own account.
// is_admin cannot be changed here.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.User, error) {
	if actor == nil {
		return nil, unauthenticated("authentication required")
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, unavailable("get_user", err)
	}
	if user == nil {
		return nil, unauthenticated("account no longer exists")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, invalid("email must not be empty")
		}
		user.Email = email
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password, s.cfg.BcryptCost)
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalid(err.Error())
		}
		if err != nil {
			return nil, unavailable("hash_password", err)
		}
		user.PasswordHash = hash
	}
	setIfPresent(&user.Phone, in.Phone)
	setIfPresent(&user.PostalCode, in.PostalCode)
	setIfPresent(&user.Address, in.Address)
	setIfPresent(&user.Housing, in.Housing)
	setIfPresent(&user.WindowScreens, in.WindowScreens)
	setIfPresent(&user.ChildrenAtHome, in.ChildrenAtHome)
	setIfPresent(&user.OpenArea, in.OpenArea)
	setIfPresent(&user.HasAnimals, in.HasAnimals)
	setIfPresent(&user.AnimalTypes, in.AnimalTypes)
	setIfPresent(&user.AnimalCount, in.AnimalCount)

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmailTaken):
			return nil, conflict("email already registered", err)
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, unauthenticated("account no longer exists")
		}
		return nil, unavailable("update_user", err)
	}
	return user, nil
}

// ListUsers returns every account. Admins only.
func (s *AccountService) ListUsers(ctx context.Context, actor *models.User) ([]*models.User, error) {
	if actor == nil {
		return nil, unauthenticated("authentication required")
	}
	if !actor.IsAdmin {
		return nil, forbidden(policy.ReasonNotAdmin)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, unavailable("list_users", err)
	}
	return users, nil
}

// PromoteAdmin sets or clears the admin flag of the account with email.
// It has no HTTP route; cmd/server exposes it to operators.
func (s *AccountService) PromoteAdmin(ctx context.Context, email string, isAdmin bool) (*models.User, error) {
	user, err := s.users.SetAdminByEmail(ctx, strings.TrimSpace(email), isAdmin)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, &Error{Kind: KindNotFound, Resource: "user", Msg: "no user with email " + email}
	}
	if err != nil {
		return nil, unavailable("set_admin", err)
	}
	return user, nil
}

func (s *AccountService) issue(user *models.User) (*Token, error) {
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	signed, err := auth.IssueToken(user.ID, user.Email, ttl)
	if err != nil {
		return nil, unavailable("issue_token", err)
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
		ExpiresAt:   time.Now().Add(ttl),
	}, nil
}

func (s *AccountService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		cost := s.cfg.BcryptCost
		if cost == 0 {
			cost = auth.DefaultBcryptCost
		}
		hash, err := auth.HashPassword("placeholder-password", cost)
		if err != nil {
			slog.Warn("failed to build fallback password hash", "error", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func setIfPresent[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}
