// Package models - user.go defines the User account, including the optional
// housing-suitability survey filled in by prospective adopters.
package models

import "time"

// User represents an account. Users are never hard-deleted.
type User struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Email        string  `db:"email" json:"email"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	PostalCode   *string `db:"postal_code" json:"postal_code,omitempty"`
	Address      *string `db:"address" json:"address,omitempty"`
	IsAdmin      bool    `db:"is_admin" json:"is_admin"`
	PasswordHash string  `db:"password_hash" json:"-"`
	HousingSurvey
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HousingSurvey holds the adopter's answers about their home. Every answer is optional.
type HousingSurvey struct {
	Housing        *string `db:"housing" json:"housing,omitempty"`
	WindowScreens  *bool   `db:"window_screens" json:"window_screens,omitempty"`
	ChildrenAtHome *bool   `db:"children_at_home" json:"children_at_home,omitempty"`
	OpenArea       *bool   `db:"open_area" json:"open_area,omitempty"`
	HasAnimals     *bool   `db:"has_animals" json:"has_animals,omitempty"`
	AnimalTypes    *string `db:"animal_types" json:"animal_types,omitempty"`
	AnimalCount    *int    `db:"animal_count" json:"animal_count,omitempty"`
}

// UserWithMemberships is a user together with the ONGs they administer
type UserWithMemberships struct {
	User
	Memberships []UserMembership `json:"memberships"`
}

// OngIDs returns the ids of every ONG in Memberships, in order.
func (u *UserWithMemberships) OngIDs() []int64 {
	ids := make([]int64, 0, len(u.Memberships))
	for _, m := range u.Memberships {
		ids = append(ids, m.OngID)
	}
	return ids
}

// IsMemberOf reports whether the user administers ongID.
func (u *UserWithMemberships) IsMemberOf(ongID int64) bool {
	for _, m := range u.Memberships {
		if m.OngID == ongID {
			return true
		}
	}
	return false
}
