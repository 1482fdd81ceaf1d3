package models

import (
	"time"
)

// User is the identity an authentication event belongs to. Users are owned by the
// host identity system; this service only reads them.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
