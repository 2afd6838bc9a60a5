// Package models - animal.go defines the adoptable Animal and the filter used
// to search the catalogue.
package models

import "time"

// Animal is an animal offered for adoption. OngID is nil when the owning ONG
// was deleted. A nil health flag means it is not known.
type Animal struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Species          string    `db:"species" json:"species"`
	Age              *int      `db:"age" json:"age,omitempty"`
	Breed            *string   `db:"breed" json:"breed,omitempty"`
	Size             *string   `db:"size" json:"size,omitempty"`
	Color            *string   `db:"color" json:"color,omitempty"`
	Vaccinated       *bool     `db:"vaccinated" json:"vaccinated"`
	Neutered         *bool     `db:"neutered" json:"neutered"`
	Dewormed         *bool     `db:"dewormed" json:"dewormed"`
	Sex              *string   `db:"sex" json:"sex,omitempty"`
	Description      *string   `db:"description" json:"description,omitempty"`
	Available        bool      `db:"available" json:"available"`
	SociableWithCats *bool     `db:"sociable_with_cats" json:"sociable_with_cats,omitempty"`
	SociableWithDogs *bool     `db:"sociable_with_dogs" json:"sociable_with_dogs,omitempty"`
	PhotoPath        *string   `db:"photo_path" json:"photo_path,omitempty"`
	OngID            *int64    `db:"ong_id" json:"ong_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// AnimalFilter narrows an animal listing. Text fields match case-insensitive
// substrings; nil fields are ignored.
type AnimalFilter struct {
	Name             string
	Species          string
	Size             string
	Available        *bool
	SociableWithCats *bool
	SociableWithDogs *bool
	OngID            *int64
}
