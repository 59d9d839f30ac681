package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/consultation-service/internal/consultation"
)

const consultationsPath = "/consultations"

const browsePageSize = 20

func listConsultationsHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		q := consultation.ParseListQuery(r.URL.Query())

		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				page = n
			}
		}
		q.Limit = browsePageSize
		q.Offset = (page - 1) * browsePageSize

		items, err := svc.Browse(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		upcoming, err := svc.Upcoming(r.Context(), ident, consultation.ParseListQuery(r.URL.Query()))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := ListConsultationsResponse{
			Items:    toResponses(items),
			Upcoming: toResponses(upcoming),
			Page:     page,
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// manageConsultationsHandler lists everything inside the caller's visible
// scope. Callers outside the manage surface get an empty list, not an error.
func manageConsultationsHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		q := consultation.ParseListQuery(r.URL.Query())

		items, err := svc.ListVisible(r.Context(), ident, q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, ListConsultationsResponse{
			Items: toResponses(items),
			Page:  1,
		})
	}
}

func getConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		view, err := svc.Get(r.Context(), ident, id)
		if err != nil {
			if errors.Is(err, consultation.ErrConsultationNotFound) {
				writeError(w, http.StatusNotFound, "consultation_not_found", "consultation not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := toResponse(view.ConsultationDetail)
		resp.CanRegister = view.CanRegister

		writeJSON(w, http.StatusOK, resp)
	}
}

func createConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		var req CreateConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		params := consultation.CreateParams{
			ClinicID:  clinicID,
			Status:    consultation.Status(req.Status),
			StartDate: req.StartDate,
		}
		if req.DoctorID != "" {
			doctorID, err := uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			params.DoctorID = &doctorID
		}

		_, err = svc.Create(r.Context(), ident, params)
		if err != nil {
			handleWorkflowError(w, err)
			return
		}

		seeOther(w, consultationsPath)
	}
}

func updateConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		var req UpdateConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		params := consultation.UpdateParams{
			ClinicID:  clinicID,
			DoctorID:  doctorID,
			Status:    consultation.Status(req.Status),
			StartDate: req.StartDate,
		}
		if req.PatientID != "" {
			patientID, err := uuid.Parse(req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			params.PatientID = &patientID
		}

		_, err = svc.Update(r.Context(), ident, id, params)
		if err != nil {
			handleWorkflowError(w, err)
			return
		}

		seeOther(w, consultationsPath)
	}
}

func deleteConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		if err := svc.Delete(r.Context(), ident, id); err != nil {
			handleWorkflowError(w, err)
			return
		}

		seeOther(w, consultationsPath)
	}
}

// registerConsultationHandler reports success for every outcome short of an
// infrastructure failure. Claimed, already taken, gone or ineligible all
// look the same to the caller, matching the original fail-quiet flow.
func registerConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no identity in request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		outcome, err := svc.Register(r.Context(), ident, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if outcome != consultation.RegisterClaimed {
			log.Info().
				Str("consultation_id", id.String()).
				Str("outcome", outcome.String()).
				Msg("registration did not claim")
		}

		seeOther(w, consultationsPath)
	}
}

// handleWorkflowError maps service errors for the create/update/delete flow.
// Disallowed roles get the same redirect the original issued instead of a
// forbidden signal; unauthorized records surface as not found.
func handleWorkflowError(w http.ResponseWriter, err error) {
	var verr *consultation.ValidationError

	switch {
	case errors.Is(err, consultation.ErrNotAllowed):
		seeOther(w, consultationsPath)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "validation_failed",
			Fields: verr.Fields,
		})
	case errors.Is(err, consultation.ErrConsultationNotFound):
		writeError(w, http.StatusNotFound, "consultation_not_found", "consultation not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toResponses(list []consultation.ConsultationDetail) []ConsultationResponse {
	out := make([]ConsultationResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toResponse(d))
	}
	return out
}

func toResponse(d consultation.ConsultationDetail) ConsultationResponse {
	resp := ConsultationResponse{
		ID:        d.ID,
		Status:    string(d.Status),
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		CreatedAt: d.CreatedAt,
	}

	if d.Clinic != nil {
		resp.Clinic = &ClinicResponse{
			ID:            d.Clinic.ID,
			Name:          d.Clinic.Name,
			LegalAddress:  d.Clinic.LegalAddress,
			ActualAddress: d.Clinic.ActualAddress,
		}
	}
	if d.Doctor != nil {
		resp.Doctor = &DoctorResponse{
			ID:         d.Doctor.ID,
			FirstName:  d.Doctor.FirstName,
			MiddleName: d.Doctor.MiddleName,
			LastName:   d.Doctor.LastName,
			Speciality: d.Doctor.Speciality,
		}
	}
	if d.Patient != nil {
		resp.Patient = &PatientResponse{
			ID:         d.Patient.ID,
			FirstName:  d.Patient.FirstName,
			MiddleName: d.Patient.MiddleName,
			LastName:   d.Patient.LastName,
			Phone:      d.Patient.Phone,
		}
	}

	return resp
}
