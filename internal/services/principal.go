package services

import (
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
)

// Principal identifies the authenticated caller of a service operation.
type Principal struct {
	ID   uuid.UUID
	Role string
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// Can reports whether the principal may act on the given account: self or
// admin.
func (p Principal) Can(accountID uuid.UUID) bool {
	return p.ID == accountID || p.IsAdmin()
}
