package consultation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/consultation-service/internal/config"
	"github.com/clinicore/consultation-service/internal/identity"
)

// memRepo is an in-memory Repository for exercising the service without
// Postgres. Filtering and ordering reuse the exported query helpers, so the
// tests pin the same semantics the SQL implementation encodes.
type memRepo struct {
	mu            sync.Mutex
	clinics       map[uuid.UUID]*Clinic
	doctors       map[uuid.UUID]*Doctor
	patients      map[uuid.UUID]*Patient
	consultations map[uuid.UUID]*Consultation
	events        []EventLog

	failStatusFor map[uuid.UUID]bool // SetConsultationStatus fails for these ids
}

func newMemRepo() *memRepo {
	return &memRepo{
		clinics:       make(map[uuid.UUID]*Clinic),
		doctors:       make(map[uuid.UUID]*Doctor),
		patients:      make(map[uuid.UUID]*Patient),
		consultations: make(map[uuid.UUID]*Consultation),
		failStatusFor: make(map[uuid.UUID]bool),
	}
}

func (r *memRepo) GetClinic(_ context.Context, id uuid.UUID) (*Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clinics[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrClinicNotFound
}

func (r *memRepo) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.doctors[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, ErrDoctorNotFound
}

func (r *memRepo) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrPatientNotFound
}

func (r *memRepo) GetConsultation(_ context.Context, id uuid.UUID) (*Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.consultations[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrConsultationNotFound
}

func (r *memRepo) GetConsultationDetail(_ context.Context, id uuid.UUID) (*ConsultationDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.consultations[id]; ok {
		d := r.detailLocked(c)
		return &d, nil
	}
	return nil, ErrConsultationNotFound
}

func (r *memRepo) detailLocked(c *Consultation) ConsultationDetail {
	d := ConsultationDetail{Consultation: *c}
	d.Clinic = r.clinics[c.ClinicID]
	d.Doctor = r.doctors[c.DoctorID]
	if c.PatientID != nil {
		d.Patient = r.patients[*c.PatientID]
	}
	return d
}

func (r *memRepo) CreateConsultation(_ context.Context, c *Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.consultations[c.ID] = &cp
	return nil
}

func (r *memRepo) UpdateConsultation(_ context.Context, c *Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.consultations[c.ID]
	if !ok {
		return ErrConsultationNotFound
	}
	cp := *c
	cp.CreatedAt = existing.CreatedAt // immutable
	r.consultations[c.ID] = &cp
	return nil
}

func (r *memRepo) DeleteConsultation(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.consultations[id]; !ok {
		return ErrConsultationNotFound
	}
	delete(r.consultations, id)
	return nil
}

func (r *memRepo) ClaimConsultation(_ context.Context, id, patientID uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return false, nil
	}
	if c.PatientID != nil || !c.StartDate.After(now) {
		return false, nil
	}
	pid := patientID
	c.PatientID = &pid
	c.Status = StatusConfirmed
	return true, nil
}

func (r *memRepo) ListConsultations(_ context.Context, f ListFilter) ([]ConsultationDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []ConsultationDetail
	for _, c := range r.consultations {
		if f.Claimed != nil && c.Claimed() != *f.Claimed {
			continue
		}
		if f.Scope != nil && !f.Scope.Contains(c) {
			continue
		}
		if f.DoctorID != nil && c.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && (c.PatientID == nil || *c.PatientID != *f.PatientID) {
			continue
		}
		d := r.detailLocked(c)
		if !f.Query.Matches(d) {
			continue
		}
		result = append(result, d)
	}

	SortDetails(result, f.Query.Sort, f.Query.Order)

	if f.Query.Offset > 0 {
		if f.Query.Offset >= len(result) {
			return nil, nil
		}
		result = result[f.Query.Offset:]
	}
	if f.Query.Limit > 0 && len(result) > f.Query.Limit {
		result = result[:f.Query.Limit]
	}

	return result, nil
}

func (r *memRepo) ListForReconcile(_ context.Context) ([]Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Consultation, 0, len(r.consultations))
	for _, c := range r.consultations {
		result = append(result, *c)
	}
	return result, nil
}

func (r *memRepo) SetConsultationStatus(_ context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStatusFor[id] {
		return fmt.Errorf("simulated store failure")
	}
	c, ok := r.consultations[id]
	if !ok {
		return ErrConsultationNotFound
	}
	c.Status = status
	return nil
}

func (r *memRepo) FindExpiredUnclaimed(_ context.Context, now time.Time) ([]Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Consultation
	for _, c := range r.consultations {
		if c.Status == StatusCreated && c.PatientID == nil && c.StartDate.Before(now) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *memRepo) DeleteIfUnclaimedExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return false, nil
	}
	if c.Status != StatusCreated || c.PatientID != nil || !c.StartDate.Before(now) {
		return false, nil
	}
	delete(r.consultations, id)
	return true, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Fixtures

type fixture struct {
	repo *memRepo
	svc  *Service
	now  time.Time

	clinic  *Clinic
	doctor  *Doctor  // linked to doctorUser
	other   *Doctor  // a second doctor
	patient *Patient // linked to patientUser
	second  *Patient // a second patient

	asAdmin         identity.Identity
	asDoctor        identity.Identity // doctor with linked profile
	asBareDoctor    identity.Identity // doctor role, no profile
	asPatient       identity.Identity // patient with linked profile
	asSecondPatient identity.Identity // second patient with linked profile
}

func newFixture() *fixture {
	repo := newMemRepo()
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	cfg := config.Config{
		ConsultDuration: 30 * time.Minute,
		UpcomingLimit:   20,
	}

	svc := NewService(repo, nil, cfg).WithClock(func() time.Time { return now })

	f := &fixture{repo: repo, svc: svc, now: now}

	f.clinic = &Clinic{ID: uuid.New(), Name: "Central Clinic"}
	repo.clinics[f.clinic.ID] = f.clinic

	f.doctor = &Doctor{
		ID: uuid.New(), UserID: uuid.New(),
		Speciality: "Cardiology",
		FirstName:  "Grace", MiddleName: "Ann", LastName: "Docherty",
	}
	repo.doctors[f.doctor.ID] = f.doctor

	f.other = &Doctor{
		ID: uuid.New(), UserID: uuid.New(),
		Speciality: "Neurology",
		FirstName:  "Omar", LastName: "Nielsen",
	}
	repo.doctors[f.other.ID] = f.other

	f.patient = &Patient{
		ID: uuid.New(), UserID: uuid.New(),
		Phone:     "555-0100",
		FirstName: "Paula", MiddleName: "Jean", LastName: "Smith",
	}
	repo.patients[f.patient.ID] = f.patient

	f.second = &Patient{
		ID: uuid.New(), UserID: uuid.New(),
		Phone:     "555-0101",
		FirstName: "Sam", LastName: "Turner",
	}
	repo.patients[f.second.ID] = f.second

	f.asAdmin = identity.Identity{
		UserID: uuid.New(), Role: identity.RoleAdmin, Elevated: true,
	}
	f.asDoctor = identity.Identity{
		UserID: f.doctor.UserID, Role: identity.RoleDoctor, DoctorID: &f.doctor.ID,
	}
	f.asBareDoctor = identity.Identity{
		UserID: uuid.New(), Role: identity.RoleDoctor,
	}
	f.asPatient = identity.Identity{
		UserID: f.patient.UserID, Role: identity.RolePatient, PatientID: &f.patient.ID,
	}
	f.asSecondPatient = identity.Identity{
		UserID: f.second.UserID, Role: identity.RolePatient, PatientID: &f.second.ID,
	}

	return f
}

// addConsultation inserts a record directly into the store.
func (f *fixture) addConsultation(doctorID uuid.UUID, patientID *uuid.UUID, status Status, start time.Time) *Consultation {
	c := &Consultation{
		ID:        uuid.New(),
		ClinicID:  f.clinic.ID,
		DoctorID:  doctorID,
		PatientID: patientID,
		Status:    status,
		StartDate: start,
		EndDate:   start.Add(30 * time.Minute),
		CreatedAt: f.now,
	}
	f.repo.consultations[c.ID] = c
	return c
}
