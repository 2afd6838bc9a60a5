// Package models - organization.go defines the Organization (ONG) that
// publishes animals for adoption.
package models

import "time"

// Organization represents an animal-protection ONG
type Organization struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Address     *string   `db:"address" json:"address,omitempty"`
	SocialMedia *string   `db:"social_media" json:"social_media,omitempty"`
	Website     *string   `db:"website" json:"website,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
