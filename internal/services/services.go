// Package services implements the account, ONG and animal operations of the
// adoption API. Each mutating call loads the facts the policy needs, asks
// policy.Authorize for a decision and only then touches the store.
//
// The acting user is always passed in explicitly; nothing here reads identity
// from a context or a request.
package services

import (
	"context"

	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/policy"
	"github.com/rede-de-patas/patas-api/internal/telemetry"
)

// UserStore is the subset of repositories.UserRepository used by the services.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetAdminByEmail(ctx context.Context, email string, isAdmin bool) (*models.User, error)
}

// OngStore is the subset of repositories.OrganizationRepository used by the services.
type OngStore interface {
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	CreateWithFounder(ctx context.Context, org *models.Organization, founderID int64) error
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, ongID, userID int64) error
	RemoveMember(ctx context.Context, ongID, userID int64) error
	IsMember(ctx context.Context, ongID, userID int64) (bool, error)
	MembershipsFor(ctx context.Context, userID int64) ([]int64, error)
	MembersOf(ctx context.Context, ongID int64) ([]int64, error)
	ListMembersWithUsers(ctx context.Context, ongID int64) ([]*models.OrganizationMemberWithUser, error)
	GetUserMemberships(ctx context.Context, userID int64) ([]models.UserMembership, error)
}

// AnimalStore is the subset of repositories.AnimalRepository used by the services.
type AnimalStore interface {
	Create(ctx context.Context, animal *models.Animal) error
	GetByID(ctx context.Context, id int64) (*models.Animal, error)
	List(ctx context.Context, filter models.AnimalFilter) ([]*models.Animal, error)
	// Update, SetPhoto and Delete only write while the stored ong_id still
	// equals owner, the ONG the actor was authorized against.
	Update(ctx context.Context, animal *models.Animal, owner *int64) error
	SetPhoto(ctx context.Context, id int64, path string, owner *int64) error
	Delete(ctx context.Context, id int64, owner *int64) error
}

// guard wraps the policy with the membership lookup every mutation needs.
type guard struct {
	policy *policy.Policy
	ongs   OngStore
}

// actorFor turns the authenticated user into a policy actor. Memberships are
// only loaded for admins; a non-admin is denied before they are consulted.
func (g guard) actorFor(ctx context.Context, user *models.User) (policy.Actor, error) {
	if user == nil {
		return policy.Actor{}, unauthenticated("authentication required")
	}
	actor := policy.Actor{UserID: user.ID, IsAdmin: user.IsAdmin}
	if !user.IsAdmin {
		return actor, nil
	}
	ids, err := g.ongs.MembershipsFor(ctx, user.ID)
	if err != nil {
		return policy.Actor{}, unavailable("memberships_for", err)
	}
	actor.Memberships = ids
	return actor, nil
}

// begin resolves the actor and rejects non-admins straight away, so that a
// non-admin gets not_admin even for targets that do not exist.
func (g guard) begin(ctx context.Context, user *models.User, action policy.Action) (policy.Actor, error) {
	actor, err := g.actorFor(ctx, user)
	if err != nil {
		return actor, err
	}
	if !actor.IsAdmin {
		return actor, g.check(actor, action, policy.Resource{})
	}
	return actor, nil
}

// check asks the policy for a decision and records it.
func (g guard) check(actor policy.Actor, action policy.Action, res policy.Resource) error {
	_, err := g.decide(actor, action, res)
	return err
}

func (g guard) decide(actor policy.Actor, action policy.Action, res policy.Resource) (policy.Decision, error) {
	d := g.policy.Authorize(actor, action, res)
	telemetry.RecordPolicyDecision(string(action), d.Allowed, string(d.Reason))
	if !d.Allowed {
		return d, forbidden(d.Reason)
	}
	return d, nil
}
