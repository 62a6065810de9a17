package domain

import "time"

// Credential is a username/password pair. Passwords are stored as given.
type Credential struct {
	Username  string
	Password  string
	CreatedAt time.Time
}
