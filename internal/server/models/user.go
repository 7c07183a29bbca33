package models

import "time"

// User is a registered identity. Only the bcrypt hash of the password is
// ever stored.
type User struct {
	ID           int64
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time
}
