package services

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/db/repositories"
)

func TestMain(m *testing.M) {
	os.Setenv("PATAS_JWT_SECRET", "services-test-secret-32-characters!!")
	os.Exit(m.Run())
}

// world is an in-memory database shared by the fake stores. It enforces the
// same uniqueness and foreign-key rules as the schema.
type world struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*models.User
	ongs    map[int64]*models.Organization
	members []models.OrganizationMember
	animals map[int64]*models.Animal

	// failWith, when set, is returned by every store call.
	failWith error
}

func newWorld() *world {
	return &world{
		nextID:  100,
		users:   map[int64]*models.User{},
		ongs:    map[int64]*models.Organization{},
		animals: map[int64]*models.Animal{},
	}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

func (w *world) addUser(id int64, name string, isAdmin bool) *models.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := &models.User{ID: id, Name: name, Email: strings.ToLower(name) + "@example.org", IsAdmin: isAdmin}
	w.users[id] = u
	return u
}

func (w *world) addOng(id int64, name string, memberIDs ...int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ongs[id] = &models.Organization{ID: id, Name: name, Email: "contact@" + strings.ToLower(name) + ".org"}
	for _, uid := range memberIDs {
		w.members = append(w.members, models.OrganizationMember{UserID: uid, OngID: id, CreatedAt: time.Now()})
	}
}

func (w *world) memberIDs(ongID int64) []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var ids []int64
	for _, m := range w.members {
		if m.OngID == ongID {
			ids = append(ids, m.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *world) isMember(ongID, userID int64) bool {
	for _, m := range w.members {
		if m.OngID == ongID && m.UserID == userID {
			return true
		}
	}
	return false
}

// ---- users -------------------------------------------------------------------

type fakeUsers struct{ *world }

func (f fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrEmailTaken
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeUsers) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.User{}
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeUsers) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	for id, u := range f.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrEmailTaken
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f fakeUsers) SetAdminByEmail(_ context.Context, email string, isAdmin bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			u.IsAdmin = isAdmin
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// ---- ONGs and memberships ----------------------------------------------------

type fakeOngs struct{ *world }

func (f fakeOngs) GetByID(_ context.Context, id int64) (*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	o, ok := f.ongs[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f fakeOngs) List(_ context.Context) ([]*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Organization{}
	for _, o := range f.ongs {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeOngs) CreateWithFounder(_ context.Context, org *models.Organization, founderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[founderID]; !ok {
		return repositories.ErrUserNotFound
	}
	org.ID = f.id()
	cp := *org
	f.ongs[org.ID] = &cp
	f.members = append(f.members, models.OrganizationMember{UserID: founderID, OngID: org.ID, CreatedAt: time.Now()})
	return nil
}

func (f fakeOngs) Update(_ context.Context, org *models.Organization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ongs[org.ID]; !ok {
		return repositories.ErrOngNotFound
	}
	cp := *org
	f.ongs[org.ID] = &cp
	return nil
}

func (f fakeOngs) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ongs[id]; !ok {
		return repositories.ErrOngNotFound
	}
	delete(f.ongs, id)
	kept := f.members[:0]
	for _, m := range f.members {
		if m.OngID != id {
			kept = append(kept, m)
		}
	}
	f.members = kept
	for _, a := range f.animals {
		if a.OngID != nil && *a.OngID == id {
			a.OngID = nil
		}
	}
	return nil
}

func (f fakeOngs) AddMember(_ context.Context, ongID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ongs[ongID]; !ok {
		return repositories.ErrOngNotFound
	}
	if _, ok := f.users[userID]; !ok {
		return repositories.ErrUserNotFound
	}
	if f.isMember(ongID, userID) {
		return repositories.ErrAlreadyMember
	}
	f.members = append(f.members, models.OrganizationMember{UserID: userID, OngID: ongID, CreatedAt: time.Now()})
	return nil
}

func (f fakeOngs) RemoveMember(_ context.Context, ongID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.members {
		if m.OngID == ongID && m.UserID == userID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrMembershipNotFound
}

func (f fakeOngs) IsMember(_ context.Context, ongID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isMember(ongID, userID), nil
}

func (f fakeOngs) MembershipsFor(_ context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	ids := []int64{}
	for _, m := range f.members {
		if m.UserID == userID {
			ids = append(ids, m.OngID)
		}
	}
	return ids, nil
}

func (f fakeOngs) MembersOf(_ context.Context, ongID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	ids := []int64{}
	for _, m := range f.members {
		if m.OngID == ongID {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (f fakeOngs) ListMembersWithUsers(_ context.Context, ongID int64) ([]*models.OrganizationMemberWithUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.OrganizationMemberWithUser{}
	for _, m := range f.members {
		if m.OngID != ongID {
			continue
		}
		u := f.users[m.UserID]
		out = append(out, &models.OrganizationMemberWithUser{
			OngID: ongID, UserID: u.ID, UserName: u.Name, UserEmail: u.Email, IsAdmin: u.IsAdmin, CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (f fakeOngs) GetUserMemberships(_ context.Context, userID int64) ([]models.UserMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.UserMembership{}
	for _, m := range f.members {
		if m.UserID == userID {
			out = append(out, models.UserMembership{OngID: m.OngID, OngName: f.ongs[m.OngID].Name, CreatedAt: m.CreatedAt})
		}
	}
	return out, nil
}

// ---- animals -----------------------------------------------------------------

type fakeAnimals struct{ *world }

func (f fakeAnimals) Create(_ context.Context, animal *models.Animal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if animal.OngID != nil {
		if _, ok := f.ongs[*animal.OngID]; !ok {
			return repositories.ErrOngNotFound
		}
	}
	animal.ID = f.id()
	cp := *animal
	f.animals[animal.ID] = &cp
	return nil
}

func (f fakeAnimals) GetByID(_ context.Context, id int64) (*models.Animal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	a, ok := f.animals[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f fakeAnimals) List(_ context.Context, filter models.AnimalFilter) ([]*models.Animal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Animal{}
	for _, a := range f.animals {
		if !containsFold(a.Name, filter.Name) || !containsFold(a.Species, filter.Species) {
			continue
		}
		if filter.Size != "" && (a.Size == nil || !containsFold(*a.Size, filter.Size)) {
			continue
		}
		if filter.Available != nil && a.Available != *filter.Available {
			continue
		}
		if filter.OngID != nil && (a.OngID == nil || *a.OngID != *filter.OngID) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// containsFold mirrors the repository's ILIKE '%sub%' match.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// guarded looks up animal id for a write authorized against owner.
func (f fakeAnimals) guarded(id int64, owner *int64) (*models.Animal, error) {
	a, ok := f.animals[id]
	if !ok {
		return nil, repositories.ErrAnimalNotFound
	}
	if !sameOwner(a.OngID, owner) {
		return nil, repositories.ErrAnimalOwnerChanged
	}
	return a, nil
}

func (f fakeAnimals) Update(_ context.Context, animal *models.Animal, owner *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.guarded(animal.ID, owner); err != nil {
		return err
	}
	if animal.OngID != nil {
		if _, ok := f.ongs[*animal.OngID]; !ok {
			return repositories.ErrOngNotFound
		}
	}
	cp := *animal
	f.animals[animal.ID] = &cp
	return nil
}

func (f fakeAnimals) SetPhoto(_ context.Context, id int64, path string, owner *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.guarded(id, owner)
	if err != nil {
		return err
	}
	a.PhotoPath = &path
	return nil
}

func (f fakeAnimals) Delete(_ context.Context, id int64, owner *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.guarded(id, owner); err != nil {
		return err
	}
	delete(f.animals, id)
	return nil
}
