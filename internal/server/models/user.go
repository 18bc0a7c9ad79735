package models

import "time"

// User is a registered account. UserName is unique and never changes.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}
