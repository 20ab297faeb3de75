package customer

import "time"

// Customer is an account owner. Credentials and sessions live in the
// surrounding layer; the core only needs a resolved identity.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
