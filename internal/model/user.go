package model

import "time"

// User is a review-surface account.
type User struct {
	ID           int
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
