// Package models - user.go defines the User model for platform accounts with a
// unique email identity. Password and session handling live in the auth package;
// the PasswordHash column only exists for the bootstrap super admin login.
package models

import "time"

// User represents a user in the system
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
