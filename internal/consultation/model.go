package consultation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusPaid      Status = "paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPending, StatusConfirmed, StatusStarted, StatusCompleted, StatusPaid:
		return true
	}
	return false
}

type Clinic struct {
	ID            uuid.UUID
	Name          string
	LegalAddress  string
	ActualAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Doctor and Patient carry the name fields of their linked user so the search
// surface can match on them without another join at the call site.

type Doctor struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Speciality string
	FirstName  string
	MiddleName string
	LastName   string
}

type Patient struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Phone      string
	FirstName  string
	MiddleName string
	LastName   string
}

// Consultation is the central record. A nil PatientID means the slot is open
// for patient self-registration. CreatedAt is set once and never modified.
type Consultation struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID *uuid.UUID
	Status    Status
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

func (c Consultation) Claimed() bool {
	return c.PatientID != nil
}

type ConsultationDetail struct {
	Consultation
	Clinic  *Clinic
	Doctor  *Doctor
	Patient *Patient
}

type EventLog struct {
	ID             int64
	EventType      string
	ConsultationID *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}
