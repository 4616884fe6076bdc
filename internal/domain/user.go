package domain

import "time"

type User struct {
	ID              string    `json:"id"`
	Email           *string   `json:"email"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UpsertUser carries the identity fields of a User; ID is the stable key.
type UpsertUser struct {
	ID              string  `json:"id" validate:"required,max=255"`
	Email           *string `json:"email" validate:"omitempty,email"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,url"`
}
