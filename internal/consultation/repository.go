package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClinicNotFound       = errors.New("clinic not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrConsultationNotFound = errors.New("consultation not found")
)

// Scope restricts queries and mutations to what a caller may reach.
// The zero value grants access to nothing.
type Scope struct {
	All      bool
	DoctorID *uuid.UUID
}

func (s Scope) Empty() bool {
	return !s.All && s.DoctorID == nil
}

// Contains reports whether a consultation falls inside the scope.
func (s Scope) Contains(c *Consultation) bool {
	if s.All {
		return true
	}
	if s.DoctorID != nil {
		return c.DoctorID == *s.DoctorID
	}
	return false
}

// ListFilter is what the store actually evaluates: the caller-facing query
// plus the structural restrictions the service layers on top of it.
type ListFilter struct {
	Query     ListQuery
	Claimed   *bool      // nil means either
	Scope     *Scope     // visibility restriction, nil means unrestricted
	DoctorID  *uuid.UUID // own-doctor restriction (upcoming block)
	PatientID *uuid.UUID // own-patient restriction (upcoming block)
}

// Repository contains all store interactions needed by the service.
type Repository interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetConsultationDetail(ctx context.Context, id uuid.UUID) (*ConsultationDetail, error)

	CreateConsultation(ctx context.Context, c *Consultation) error
	UpdateConsultation(ctx context.Context, c *Consultation) error
	DeleteConsultation(ctx context.Context, id uuid.UUID) error

	// ClaimConsultation atomically assigns the patient and flips the status to
	// confirmed, only where no patient is set and the start is still in the
	// future. Returns whether the claim won.
	ClaimConsultation(ctx context.Context, id, patientID uuid.UUID, now time.Time) (bool, error)

	ListConsultations(ctx context.Context, f ListFilter) ([]ConsultationDetail, error)

	// Reconciliation
	ListForReconcile(ctx context.Context) ([]Consultation, error)
	SetConsultationStatus(ctx context.Context, id uuid.UUID, status Status) error
	FindExpiredUnclaimed(ctx context.Context, now time.Time) ([]Consultation, error)
	// DeleteIfUnclaimedExpired re-checks eligibility at delete time so a slot
	// claimed between scan and delete survives. Returns whether a row went.
	DeleteIfUnclaimedExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
