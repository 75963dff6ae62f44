package models

import "gorm.io/gorm"

// User is a profile row in PostgreSQL, keyed by the Firebase UID that the
// document stores reference as user id.
type User struct {
	gorm.Model `json:"-"`
	UID        string `json:"uid" gorm:"uniqueIndex;size:128"`
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	PhotoURL   string `json:"photo_url,omitempty"`
	Role       Role   `json:"role" gorm:"size:16;index"`
	Bio        string `json:"bio,omitempty"`
}

// UserCompact is the display info attached to notifications and sessions.
type UserCompact struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// ToCompact reduces a profile to its display info.
func (u *User) ToCompact() UserCompact {
	return UserCompact{UID: u.UID, Name: u.Name, PhotoURL: u.PhotoURL}
}

// SyncUserRequest defines the request body for upserting a profile after a
// Firebase sign-in.
type SyncUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	PhotoURL string `json:"photo_url,omitempty" validate:"omitempty,url"`
	Role     Role   `json:"role" validate:"required,oneof=mentor student"`
}

// UpdateUserRequest defines the request body for updating a profile.
type UpdateUserRequest struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	PhotoURL string `json:"photo_url,omitempty" validate:"omitempty,url"`
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=500"`
}
