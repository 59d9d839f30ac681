package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

var ErrIdentityNotFound = errors.New("identity not found")

// Identity is the authenticated caller, resolved once at request entry.
// DoctorID/PatientID point at the linked profile when one exists; downstream
// logic branches on the closed role set instead of probing attributes.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	Role      Role
	Elevated  bool // staff flag, grants the same access as RoleAdmin
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// CanManage reports whether the identity may reach the create/update/delete
// surface at all. Scope narrowing happens separately per record.
func (i Identity) CanManage() bool {
	return i.Elevated || i.Role == RoleAdmin || i.Role == RoleDoctor
}

// Resolver loads the full identity for a user id extracted from a token.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Identity, error)
}
