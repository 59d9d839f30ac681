package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/consultation-service/internal/config"
	"github.com/clinicore/consultation-service/internal/identity"
	redisclient "github.com/clinicore/consultation-service/internal/redis"
)

const (
	EventConsultationCreated = "CONSULTATION_CREATED"
	EventConsultationClaimed = "CONSULTATION_CLAIMED"
	EventConsultationUpdated = "CONSULTATION_UPDATED"
	EventConsultationDeleted = "CONSULTATION_DELETED"
	EventStatusReconciled    = "CONSULTATION_STATUS_RECONCILED"
	EventConsultationPruned  = "CONSULTATION_PRUNED"
)

var (
	// ErrNotAllowed means the caller's role has no access to the booking
	// surface at all. Record-level denial is ErrConsultationNotFound instead,
	// so existence never leaks.
	ErrNotAllowed = errors.New("operation not allowed for this role")
)

// ValidationError carries field-level detail back to the input form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// VisibleScope computes which consultations the caller may browse on the
// manage surface: everything for admins and staff, own records for doctors
// with a linked profile, nothing for everyone else.
func (s *Service) VisibleScope(ident identity.Identity) Scope {
	if ident.Elevated || ident.Role == identity.RoleAdmin {
		return Scope{All: true}
	}
	if ident.Role == identity.RoleDoctor && ident.DoctorID != nil {
		return Scope{DoctorID: ident.DoctorID}
	}
	return Scope{}
}

// MutableScope gates update and delete. Same rule as VisibleScope.
func (s *Service) MutableScope(ident identity.Identity) Scope {
	return s.VisibleScope(ident)
}

type CreateParams struct {
	ClinicID  uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
	StartDate time.Time
}

// Create books a new open slot. Only staff, admins and doctors may create;
// a doctor-caller always books for their own profile regardless of the
// submitted doctor id. The end date is never caller-supplied.
func (s *Service) Create(ctx context.Context, ident identity.Identity, p CreateParams) (*Consultation, error) {
	if !ident.CanManage() {
		return nil, ErrNotAllowed
	}

	var doctorID uuid.UUID
	if ident.Role == identity.RoleDoctor && !ident.Elevated {
		if ident.DoctorID == nil {
			return nil, newValidationError("doctor", "no doctor profile is linked to this account")
		}
		doctorID = *ident.DoctorID
	} else {
		if p.DoctorID == nil {
			return nil, newValidationError("doctor", "a doctor must be selected")
		}
		if _, err := s.repo.GetDoctor(ctx, *p.DoctorID); err != nil {
			if errors.Is(err, ErrDoctorNotFound) {
				return nil, newValidationError("doctor", "selected doctor does not exist")
			}
			return nil, fmt.Errorf("load doctor: %w", err)
		}
		doctorID = *p.DoctorID
	}

	if _, err := s.repo.GetClinic(ctx, p.ClinicID); err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			return nil, newValidationError("clinic", "selected clinic does not exist")
		}
		return nil, fmt.Errorf("load clinic: %w", err)
	}

	status := p.Status
	if status == "" {
		status = StatusCreated
	}
	if !status.Valid() {
		return nil, newValidationError("status", "unknown status")
	}

	if p.StartDate.IsZero() {
		return nil, newValidationError("start_date", "start date is required")
	}

	c := &Consultation{
		ID:        uuid.New(),
		ClinicID:  p.ClinicID,
		DoctorID:  doctorID,
		Status:    status,
		StartDate: p.StartDate,
		EndDate:   p.StartDate.Add(s.cfg.ConsultDuration),
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateConsultation(ctx, c); err != nil {
		return nil, fmt.Errorf("create consultation: %w", err)
	}

	s.logEvent(ctx, c.ID, EventConsultationCreated, map[string]any{
		"clinic_id":  c.ClinicID.String(),
		"doctor_id":  c.DoctorID.String(),
		"start_date": c.StartDate,
	})

	return c, nil
}

type UpdateParams struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID *uuid.UUID
	Status    Status
	StartDate time.Time
}

// Update edits a consultation inside the caller's mutable scope. The end
// date is recomputed from the start date, not taken from the caller.
func (s *Service) Update(ctx context.Context, ident identity.Identity, id uuid.UUID, p UpdateParams) (*Consultation, error) {
	if !ident.CanManage() {
		return nil, ErrNotAllowed
	}

	c, err := s.getMutable(ctx, ident, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetClinic(ctx, p.ClinicID); err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			return nil, newValidationError("clinic", "selected clinic does not exist")
		}
		return nil, fmt.Errorf("load clinic: %w", err)
	}
	if _, err := s.repo.GetDoctor(ctx, p.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, newValidationError("doctor", "selected doctor does not exist")
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if p.PatientID != nil {
		if _, err := s.repo.GetPatient(ctx, *p.PatientID); err != nil {
			if errors.Is(err, ErrPatientNotFound) {
				return nil, newValidationError("patient", "selected patient does not exist")
			}
			return nil, fmt.Errorf("load patient: %w", err)
		}
	}
	if !p.Status.Valid() {
		return nil, newValidationError("status", "unknown status")
	}
	if p.StartDate.IsZero() {
		return nil, newValidationError("start_date", "start date is required")
	}

	c.ClinicID = p.ClinicID
	c.DoctorID = p.DoctorID
	c.PatientID = p.PatientID
	c.Status = p.Status
	c.StartDate = p.StartDate
	c.EndDate = p.StartDate.Add(s.cfg.ConsultDuration)

	if err := s.repo.UpdateConsultation(ctx, c); err != nil {
		return nil, fmt.Errorf("update consultation: %w", err)
	}

	s.logEvent(ctx, c.ID, EventConsultationUpdated, map[string]any{
		"status":     string(c.Status),
		"start_date": c.StartDate,
	})

	return c, nil
}

// Delete removes a consultation inside the caller's mutable scope.
func (s *Service) Delete(ctx context.Context, ident identity.Identity, id uuid.UUID) error {
	if !ident.CanManage() {
		return ErrNotAllowed
	}

	c, err := s.getMutable(ctx, ident, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteConsultation(ctx, c.ID); err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}

	s.logEvent(ctx, c.ID, EventConsultationDeleted, map[string]any{})

	return nil
}

func (s *Service) getMutable(ctx context.Context, ident identity.Identity, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetConsultation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, ErrConsultationNotFound
		}
		return nil, fmt.Errorf("load consultation: %w", err)
	}
	if !s.MutableScope(ident).Contains(c) {
		// Outside the scope looks identical to absent.
		return nil, ErrConsultationNotFound
	}
	return c, nil
}

// DetailView is a hydrated consultation plus what the caller may do with it.
type DetailView struct {
	ConsultationDetail
	CanRegister bool
}

// Get returns the detail view. Any authenticated caller may look at any
// consultation, matching the original detail page; CanRegister is set for
// patient callers facing a future open slot.
func (s *Service) Get(ctx context.Context, ident identity.Identity, id uuid.UUID) (*DetailView, error) {
	d, err := s.repo.GetConsultationDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, ErrConsultationNotFound
		}
		return nil, fmt.Errorf("load consultation: %w", err)
	}

	view := &DetailView{ConsultationDetail: *d}
	if ident.Role == identity.RolePatient &&
		ident.PatientID != nil &&
		!d.Claimed() &&
		d.StartDate.After(s.now()) {
		view.CanRegister = true
	}

	return view, nil
}

// RegisterOutcome names what actually happened during self-registration.
// Every outcome surfaces to the caller as success; the distinction exists
// for logging and tests.
type RegisterOutcome int

const (
	RegisterClaimed RegisterOutcome = iota
	RegisterNoProfile
	RegisterNotFound
	RegisterNotEligible
	RegisterAlreadyTaken
)

func (o RegisterOutcome) String() string {
	switch o {
	case RegisterClaimed:
		return "claimed"
	case RegisterNoProfile:
		return "no_profile"
	case RegisterNotFound:
		return "not_found"
	case RegisterNotEligible:
		return "not_eligible"
	case RegisterAlreadyTaken:
		return "already_taken"
	}
	return "unknown"
}

// Register lets a patient claim an open slot. The claim is a single
// conditional update in the store; the redis lock around it only reduces
// contention, so a lock miss falls through to the bare claim.
func (s *Service) Register(ctx context.Context, ident identity.Identity, id uuid.UUID) (RegisterOutcome, error) {
	if ident.PatientID == nil {
		return RegisterNoProfile, nil
	}

	c, err := s.repo.GetConsultation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return RegisterNotFound, nil
		}
		return RegisterNotFound, fmt.Errorf("load consultation: %w", err)
	}

	now := s.now()
	if ident.Role != identity.RolePatient || !c.StartDate.After(now) {
		return RegisterNotEligible, nil
	}
	if c.Claimed() {
		return RegisterAlreadyTaken, nil
	}

	var claimed bool
	claim := func(ctx context.Context) error {
		ok, err := s.repo.ClaimConsultation(ctx, c.ID, *ident.PatientID, now)
		if err != nil {
			return err
		}
		claimed = ok
		return nil
	}

	if s.locker != nil {
		err = s.locker.WithConsultationLock(ctx, c.ID, claim)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = claim(ctx)
		}
	} else {
		err = claim(ctx)
	}
	if err != nil {
		return RegisterNotEligible, fmt.Errorf("claim consultation: %w", err)
	}

	if !claimed {
		return RegisterAlreadyTaken, nil
	}

	s.logEvent(ctx, c.ID, EventConsultationClaimed, map[string]any{
		"patient_id": ident.PatientID.String(),
	})

	return RegisterClaimed, nil
}

// Browse lists open slots. Available to any authenticated caller.
func (s *Service) Browse(ctx context.Context, q ListQuery) ([]ConsultationDetail, error) {
	if q.Sort != "" && q.Order == "" {
		q.Order = OrderDesc
	}
	if q.Limit <= 0 {
		q.Limit = 20 // default
	}
	if q.Limit > 100 {
		q.Limit = 100 // max
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	claimed := false
	list, err := s.repo.ListConsultations(ctx, ListFilter{
		Query:   q,
		Claimed: &claimed,
	})
	if err != nil {
		return nil, fmt.Errorf("browse consultations: %w", err)
	}
	return list, nil
}

// Upcoming lists the caller's own claimed consultations, capped after sort.
// The status filter does not apply here.
func (s *Service) Upcoming(ctx context.Context, ident identity.Identity, q ListQuery) ([]ConsultationDetail, error) {
	f := ListFilter{}

	switch {
	case ident.Role == identity.RoleDoctor && ident.DoctorID != nil:
		f.DoctorID = ident.DoctorID
	case ident.Role == identity.RolePatient && ident.PatientID != nil:
		f.PatientID = ident.PatientID
	default:
		return nil, nil
	}

	q.Statuses = nil
	q.Offset = 0
	if q.Sort != "" && q.Order == "" {
		q.Order = OrderAsc
	}
	limit := s.cfg.UpcomingLimit
	if limit <= 0 {
		limit = 20
	}
	q.Limit = limit

	claimed := true
	f.Claimed = &claimed
	f.Query = q

	list, err := s.repo.ListConsultations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list upcoming consultations: %w", err)
	}
	return list, nil
}

// ListVisible lists consultations on the manage surface, restricted to the
// caller's visible scope.
func (s *Service) ListVisible(ctx context.Context, ident identity.Identity, q ListQuery) ([]ConsultationDetail, error) {
	scope := s.VisibleScope(ident)
	if scope.Empty() {
		return nil, nil
	}

	if q.Sort != "" && q.Order == "" {
		q.Order = OrderDesc
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	list, err := s.repo.ListConsultations(ctx, ListFilter{
		Query: q,
		Scope: &scope,
	})
	if err != nil {
		return nil, fmt.Errorf("list visible consultations: %w", err)
	}
	return list, nil
}

func (s *Service) logEvent(ctx context.Context, consultationID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	cid := consultationID

	ev := EventLog{
		EventType:      eventType,
		ConsultationID: &cid,
		Payload:        data,
		CreatedAt:      s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event", eventType).
			Str("consultation_id", consultationID.String()).
			Msg("insert event log")
	}
}
