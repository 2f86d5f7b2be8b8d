package domain

import "time"

// Principal is the subject a token is issued to.
type Principal struct {
	ID        string // ULID
	Identity  string // normalized email or "telegram:<id>"
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
