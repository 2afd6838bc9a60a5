package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/db/repositories"
	"github.com/rede-de-patas/patas-api/internal/policy"
)

// OngInput is the payload of a new ONG
type OngInput struct {
	Name        string
	Email       string
	Phone       *string
	Address     *string
	SocialMedia *string
	Website     *string
}

// OngPatch is a partial ONG update. Nil fields are left unchanged.
type OngPatch struct {
	Name        *string
	Email       *string
	Phone       *string
	Address     *string
	SocialMedia *string
	Website     *string
}

// OngService manages ONGs and their memberships
type OngService struct {
	ongs  OngStore
	users UserStore
	guard guard
}

// NewOngService creates a new ONG service
func NewOngService(ongs OngStore, users UserStore, pol *policy.Policy) *OngService {
	return &OngService{
		ongs:  ongs,
		users: users,
		guard: guard{policy: pol, ongs: ongs},
	}
}

// Create registers a new ONG. The actor becomes its first member in the same
// transaction.
func (s *OngService) Create(ctx context.Context, actor *models.User, in OngInput) (*models.Organization, error) {
	a, err := s.guard.begin(ctx, actor, policy.ActionOngCreate)
	if err != nil {
		return nil, err
	}
	if err := s.guard.check(a, policy.ActionOngCreate, policy.Resource{}); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return nil, invalid("name and email are required")
	}

	org := &models.Organization{
		Name:        name,
		Email:       email,
		Phone:       in.Phone,
		Address:     in.Address,
		SocialMedia: in.SocialMedia,
		Website:     in.Website,
	}
	if err := s.ongs.CreateWithFounder(ctx, org, a.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, unauthenticated("account no longer exists")
		}
		return nil, unavailable("create_ong", err)
	}
	return org, nil
}

// Get returns one ONG
func (s *OngService) Get(ctx context.Context, id int64) (*models.Organization, error) {
	return s.load(ctx, id)
}

// List returns every ONG
func (s *OngService) List(ctx context.Context) ([]*models.Organization, error) {
	orgs, err := s.ongs.List(ctx)
	if err != nil {
		return nil, unavailable("list_ongs", err)
	}
	return orgs, nil
}

// Update applies a partial update to an ONG the actor belongs to
func (s *OngService) Update(ctx context.Context, actor *models.User, id int64, patch OngPatch) (*models.Organization, error) {
	a, err := s.guard.begin(ctx, actor, policy.ActionOngUpdate)
	if err != nil {
		return nil, err
	}
	org, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.check(a, policy.ActionOngUpdate, policy.Resource{OngID: id}); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, invalid("name must not be empty")
		}
		org.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		if strings.TrimSpace(*patch.Email) == "" {
			return nil, invalid("email must not be empty")
		}
		org.Email = strings.TrimSpace(*patch.Email)
	}
	setIfPresent(&org.Phone, patch.Phone)
	setIfPresent(&org.Address, patch.Address)
	setIfPresent(&org.SocialMedia, patch.SocialMedia)
	setIfPresent(&org.Website, patch.Website)

	if err := s.ongs.Update(ctx, org); err != nil {
		if errors.Is(err, repositories.ErrOngNotFound) {
			return nil, notFound("ong", id)
		}
		return nil, unavailable("update_ong", err)
	}
	return org, nil
}

// Delete removes an ONG with all of its memberships. Its animals become unowned.
func (s *OngService) Delete(ctx context.Context, actor *models.User, id int64) error {
	a, err := s.guard.begin(ctx, actor, policy.ActionOngDelete)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.guard.check(a, policy.ActionOngDelete, policy.Resource{OngID: id}); err != nil {
		return err
	}

	if err := s.ongs.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrOngNotFound) {
			return notFound("ong", id)
		}
		return unavailable("delete_ong", err)
	}
	return nil
}

// Invite makes userID a member of ongID. Inviting an existing member returns
// Forbidden(already_member) and leaves the membership set unchanged.
func (s *OngService) Invite(ctx context.Context, actor *models.User, ongID, userID int64) ([]*models.OrganizationMemberWithUser, error) {
	a, err := s.guard.begin(ctx, actor, policy.ActionOngInvite)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, ongID); err != nil {
		return nil, err
	}

	invitee := &policy.Invitee{}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unavailable("get_user", err)
	}
	if user != nil {
		invitee.Exists = true
		invitee.IsAdmin = user.IsAdmin
		invitee.AlreadyMember, err = s.ongs.IsMember(ctx, ongID, userID)
		if err != nil {
			return nil, unavailable("is_member", err)
		}
	}
	if err := s.guard.check(a, policy.ActionOngInvite, policy.Resource{OngID: ongID, Invitee: invitee}); err != nil {
		return nil, err
	}

	// The store re-checks uniqueness; a concurrent invite of the same user
	// surfaces here.
	if err := s.ongs.AddMember(ctx, ongID, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyMember):
			return nil, forbidden(policy.ReasonAlreadyMember)
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, forbidden(policy.ReasonNotFound)
		case errors.Is(err, repositories.ErrOngNotFound):
			return nil, notFound("ong", ongID)
		}
		return nil, unavailable("add_member", err)
	}
	return s.members(ctx, ongID)
}

// RemoveMember deletes the membership of userID in ongID. Members may remove
// themselves; the ONG is kept when its last member leaves.
func (s *OngService) RemoveMember(ctx context.Context, actor *models.User, ongID, userID int64) error {
	a, err := s.guard.begin(ctx, actor, policy.ActionOngRemoveMember)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, ongID); err != nil {
		return err
	}
	exists, err := s.ongs.IsMember(ctx, ongID, userID)
	if err != nil {
		return unavailable("is_member", err)
	}
	if err := s.guard.check(a, policy.ActionOngRemoveMember, policy.Resource{OngID: ongID, MembershipExists: exists}); err != nil {
		return err
	}

	if err := s.ongs.RemoveMember(ctx, ongID, userID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return forbidden(policy.ReasonNotFound)
		}
		return unavailable("remove_member", err)
	}

	// The removal is committed; a failed lookup here is only logged.
	remaining, err := s.ongs.MembersOf(ctx, ongID)
	switch {
	case err != nil:
		slog.Warn("failed to count remaining ong members", "ong_id", ongID, "error", err)
	case len(remaining) == 0:
		slog.Warn("ong has no members left", "ong_id", ongID, "removed_user_id", userID, "actor_id", actor.ID)
	}
	return nil
}

// ListMembers returns the members of an ONG with their names
func (s *OngService) ListMembers(ctx context.Context, ongID int64) ([]*models.OrganizationMemberWithUser, error) {
	if _, err := s.load(ctx, ongID); err != nil {
		return nil, err
	}
	return s.members(ctx, ongID)
}

// ListForUser returns the ONGs the actor belongs to
func (s *OngService) ListForUser(ctx context.Context, actor *models.User) ([]models.UserMembership, error) {
	if actor == nil {
		return nil, unauthenticated("authentication required")
	}
	memberships, err := s.ongs.GetUserMemberships(ctx, actor.ID)
	if err != nil {
		return nil, unavailable("get_user_memberships", err)
	}
	return memberships, nil
}

func (s *OngService) load(ctx context.Context, id int64) (*models.Organization, error) {
	org, err := s.ongs.GetByID(ctx, id)
	if err != nil {
		return nil, unavailable("get_ong", err)
	}
	if org == nil {
		return nil, notFound("ong", id)
	}
	return org, nil
}

func (s *OngService) members(ctx context.Context, ongID int64) ([]*models.OrganizationMemberWithUser, error) {
	members, err := s.ongs.ListMembersWithUsers(ctx, ongID)
	if err != nil {
		return nil, unavailable("list_members", err)
	}
	return members, nil
}
