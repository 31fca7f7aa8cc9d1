package models

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleReferee UserRole = "referee"
	RolePlayer  UserRole = "player"
)

// User is a player directory entry. This system only consults it to
// validate registration eligibility; credentials live elsewhere.
type User struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Role        UserRole  `json:"role" db:"role"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
