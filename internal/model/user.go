package model

import "time"

// User is a registered account that can watch sections
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
