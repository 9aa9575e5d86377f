package customer

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer carries only the profile fields the loan core displays and
// searches on. Profile management lives outside this service.
type Customer struct {
	ID           uuid.UUID
	CustomerCode string
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
