package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateConsultationRequest struct {
	ClinicID  string    `json:"clinic_id"`
	DoctorID  string    `json:"doctor_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	StartDate time.Time `json:"start_date"`
}

type UpdateConsultationRequest struct {
	ClinicID  string    `json:"clinic_id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id,omitempty"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
}

type ClinicResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	LegalAddress  string    `json:"legal_address"`
	ActualAddress string    `json:"actual_address"`
}

type DoctorResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	LastName   string    `json:"last_name"`
	Speciality string    `json:"speciality"`
}

type PatientResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone"`
}

type ConsultationResponse struct {
	ID          uuid.UUID        `json:"id"`
	Clinic      *ClinicResponse  `json:"clinic,omitempty"`
	Doctor      *DoctorResponse  `json:"doctor,omitempty"`
	Patient     *PatientResponse `json:"patient,omitempty"`
	Status      string           `json:"status"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	CreatedAt   time.Time        `json:"created_at"`
	CanRegister bool             `json:"can_register,omitempty"`
}

type ListConsultationsResponse struct {
	Items    []ConsultationResponse `json:"items"`
	Upcoming []ConsultationResponse `json:"upcoming"`
	Page     int                    `json:"page"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
