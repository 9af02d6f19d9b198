package domain

import "time"

// User is the domain model for registered accounts.
//
// PasswordHash is only populated on the credentials read path used by login;
// every other read leaves it empty and no response DTO carries it.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
