package models

import "time"

// User is the public view of an account. Credentials live with the auth service.
type User struct {
	ID         string    `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	ProfilePic string    `db:"profile_pic" json:"profile_pic,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
