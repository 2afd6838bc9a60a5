// Package policy decides whether an actor may perform an action on an ONG or
// an animal. Authorize is a pure function over facts loaded by the caller; it
// never touches the database, so every rule is table-testable.
//
// Rule precedence:
//
//  1. Reads are always allowed. Every mutation by a non-admin is denied with
//     not_admin, before any membership fact is consulted.
//  2. Any admin may create an ONG.
//  3. Updating or deleting an ONG requires membership of it.
//  4. Inviting requires membership; the invitee must exist and must not
//     already be a member. Optionally the invitee must be an admin.
//  5. Removing a member requires membership; the target membership must exist.
//  6. Creating an animal resolves the owning ONG with the configured strategy.
//  7. Updating or deleting an animal requires membership of its current owner,
//     and of the destination ONG when the update moves it.
package policy

import (
	"log/slog"

	"github.com/rede-de-patas/patas-api/internal/config"
)

// Action identifies an operation subject to authorization.
type Action string

const (
	ActionOngCreate       Action = "ong:create"
	ActionOngRead         Action = "ong:read"
	ActionOngUpdate       Action = "ong:update"
	ActionOngDelete       Action = "ong:delete"
	ActionOngInvite       Action = "ong:invite"
	ActionOngRemoveMember Action = "ong:remove_member"
	ActionAnimalCreate    Action = "animal:create"
	ActionAnimalRead      Action = "animal:read"
	ActionAnimalUpdate    Action = "animal:update"
	ActionAnimalDelete    Action = "animal:delete"
)

// IsMutation reports whether the action changes state.
func (a Action) IsMutation() bool {
	return a != ActionOngRead && a != ActionAnimalRead
}

// Reason is the machine-readable cause of a denial.
type Reason string

const (
	ReasonNotAdmin             Reason = "not_admin"
	ReasonNotMember            Reason = "not_member"
	ReasonAlreadyMember        Reason = "already_member"
	ReasonNotFound             Reason = "not_found"
	ReasonNoMembershipAssigned Reason = "no_membership_assigned"
	ReasonInviteeNotAdmin      Reason = "invitee_not_admin"
)

// Actor is the authenticated user together with the ONGs they belong to.
// Memberships must be ordered by join time, oldest first.
type Actor struct {
	UserID      int64
	IsAdmin     bool
	Memberships []int64
}

// IsMemberOf reports whether the actor holds a membership of ongID.
func (a Actor) IsMemberOf(ongID int64) bool {
	for _, id := range a.Memberships {
		if id == ongID {
			return true
		}
	}
	return false
}

// FirstMembership returns the actor's oldest membership.
func (a Actor) FirstMembership() (int64, bool) {
	if len(a.Memberships) == 0 {
		return 0, false
	}
	return a.Memberships[0], true
}

// Invitee holds what the caller knows about the user being invited.
type Invitee struct {
	Exists        bool
	IsAdmin       bool
	AlreadyMember bool
}

// Resource carries the facts a rule needs. Only the fields relevant to the
// action are read.
type Resource struct {
	// OngID is the target ONG of ong:update, ong:delete, ong:invite and
	// ong:remove_member.
	OngID int64

	// Invitee is required for ong:invite.
	Invitee *Invitee

	// MembershipExists tells ong:remove_member whether the target membership is present.
	MembershipExists bool

	// CurrentOwner is the animal's owning ONG, nil when unowned.
	CurrentOwner *int64

	// RequestedOwner is the ONG named by an animal create or update request.
	RequestedOwner *int64
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason

	// OwnerID is the resolved owning ONG for an allowed animal:create.
	OwnerID int64
}

func allow() Decision { return Decision{Allowed: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// Policy holds the deployment switches of the rules.
type Policy struct {
	inviteRequiresAdmin bool
	ownerStrategy       string
}

// New builds a Policy from configuration. An unrecognised owner strategy
// falls back to explicit.
func New(cfg config.PolicyConfig) *Policy {
	strategy := cfg.AnimalOwnerStrategy
	switch strategy {
	case config.OwnerStrategyExplicit, config.OwnerStrategyFirstMembership:
	case config.OwnerStrategyLegacyCreatorID:
		slog.Warn("animal owner strategy legacy_creator_id is deprecated; new animals are owned by the ONG whose id equals the creator's user id")
	default:
		strategy = config.OwnerStrategyExplicit
	}
	return &Policy{
		inviteRequiresAdmin: cfg.InviteRequiresAdmin,
		ownerStrategy:       strategy,
	}
}

// OwnerStrategy returns the animal owner resolution strategy in effect.
func (p *Policy) OwnerStrategy() string { return p.ownerStrategy }

// Authorize evaluates action for actor against res.
func (p *Policy) Authorize(actor Actor, action Action, res Resource) Decision {
	if !action.IsMutation() {
		return allow()
	}
	if !actor.IsAdmin {
		return deny(ReasonNotAdmin)
	}

	switch action {
	case ActionOngCreate:
		return allow()

	case ActionOngUpdate, ActionOngDelete:
		if !actor.IsMemberOf(res.OngID) {
			return deny(ReasonNotMember)
		}
		return allow()

	case ActionOngInvite:
		return p.authorizeInvite(actor, res)

	case ActionOngRemoveMember:
		if !actor.IsMemberOf(res.OngID) {
			return deny(ReasonNotMember)
		}
		if !res.MembershipExists {
			return deny(ReasonNotFound)
		}
		return allow()

	case ActionAnimalCreate:
		return p.resolveOwner(actor, res)

	case ActionAnimalUpdate:
		// An unowned animal has no ONG whose members could edit it.
		if res.CurrentOwner == nil || !actor.IsMemberOf(*res.CurrentOwner) {
			return deny(ReasonNotMember)
		}
		if res.RequestedOwner != nil && *res.RequestedOwner != *res.CurrentOwner && !actor.IsMemberOf(*res.RequestedOwner) {
			return deny(ReasonNotMember)
		}
		return allow()

	case ActionAnimalDelete:
		if res.CurrentOwner == nil || !actor.IsMemberOf(*res.CurrentOwner) {
			return deny(ReasonNotMember)
		}
		return allow()
	}

	// Unknown mutations are never allowed.
	return deny(ReasonNotMember)
}

func (p *Policy) authorizeInvite(actor Actor, res Resource) Decision {
	if !actor.IsMemberOf(res.OngID) {
		return deny(ReasonNotMember)
	}
	if res.Invitee == nil || !res.Invitee.Exists {
		return deny(ReasonNotFound)
	}
	if res.Invitee.AlreadyMember {
		return deny(ReasonAlreadyMember)
	}
	if p.inviteRequiresAdmin && !res.Invitee.IsAdmin {
		return deny(ReasonInviteeNotAdmin)
	}
	return allow()
}

// resolveOwner picks the owning ONG of a new animal. Request shape errors
// (a missing or forbidden ong_id) are the caller's concern and are checked
// before Authorize runs.
func (p *Policy) resolveOwner(actor Actor, res Resource) Decision {
	switch p.ownerStrategy {
	case config.OwnerStrategyFirstMembership:
		first, ok := actor.FirstMembership()
		if !ok {
			return deny(ReasonNoMembershipAssigned)
		}
		return Decision{Allowed: true, OwnerID: first}

	case config.OwnerStrategyLegacyCreatorID:
		return Decision{Allowed: true, OwnerID: actor.UserID}

	default:
		if res.RequestedOwner == nil || !actor.IsMemberOf(*res.RequestedOwner) {
			return deny(ReasonNotMember)
		}
		return Decision{Allowed: true, OwnerID: *res.RequestedOwner}
	}
}
