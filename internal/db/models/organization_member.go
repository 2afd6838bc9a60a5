// Package models - organization_member.go defines the user-to-ONG membership
// and the enriched views used when listing members or a user's ONGs.
package models

import "time"

// OrganizationMember grants one user administrative rights over one ONG.
// (UserID, OngID) is unique.
type OrganizationMember struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	OngID     int64     `db:"ong_id" json:"ong_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrganizationMemberWithUser includes the member's name and email for display
type OrganizationMemberWithUser struct {
	OngID     int64     `db:"ong_id" json:"ong_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	UserName  string    `db:"user_name" json:"user_name"`
	UserEmail string    `db:"user_email" json:"user_email"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserMembership includes the ONG's name for a user's membership
type UserMembership struct {
	OngID     int64     `db:"ong_id" json:"ong_id"`
	OngName   string    `db:"ong_name" json:"ong_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
