package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.LegalAddress,
		&c.ActualAddress,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Speciality,
		&d.FirstName,
		&d.MiddleName,
		&d.LastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Phone,
		&p.FirstName,
		&p.MiddleName,
		&p.LastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var patientID *uuid.UUID

	err := row.Scan(
		&c.ID,
		&c.ClinicID,
		&c.DoctorID,
		&patientID,
		&c.Status,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}

	c.PatientID = patientID
	return &c, nil
}

// Interface methods

func (r *PgRepository) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, legal_address, actual_address, created_at, updated_at
		FROM clinics
		WHERE id = $1
	`, id)
	return scanClinic(row)
}

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT d.id, d.user_id, d.speciality, u.first_name, u.middle_name, u.last_name
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT p.id, p.user_id, p.phone, u.first_name, u.middle_name, u.last_name
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, doctor_id, patient_id, status, start_date, end_date, created_at
		FROM consultations
		WHERE id = $1
	`, id)
	return scanConsultation(row)
}

const detailSelect = `
	SELECT c.id, c.clinic_id, c.doctor_id, c.patient_id, c.status, c.start_date, c.end_date, c.created_at,
	       cl.id, cl.name, cl.legal_address, cl.actual_address, cl.created_at, cl.updated_at,
	       d.id, d.user_id, d.speciality, du.first_name, du.middle_name, du.last_name,
	       p.id, p.user_id, p.phone, pu.first_name, pu.middle_name, pu.last_name
	FROM consultations c
	JOIN clinics cl ON cl.id = c.clinic_id
	JOIN doctors d ON d.id = c.doctor_id
	JOIN users du ON du.id = d.user_id
	LEFT JOIN patients p ON p.id = c.patient_id
	LEFT JOIN users pu ON pu.id = p.user_id
`

func scanConsultationDetail(row pgx.Row) (*ConsultationDetail, error) {
	var det ConsultationDetail
	var clinic Clinic
	var doctor Doctor

	var patientID *uuid.UUID
	var pID, pUserID *uuid.UUID
	var pPhone, pFirst, pMiddle, pLast *string

	err := row.Scan(
		&det.ID,
		&det.ClinicID,
		&det.DoctorID,
		&patientID,
		&det.Status,
		&det.StartDate,
		&det.EndDate,
		&det.CreatedAt,
		&clinic.ID,
		&clinic.Name,
		&clinic.LegalAddress,
		&clinic.ActualAddress,
		&clinic.CreatedAt,
		&clinic.UpdatedAt,
		&doctor.ID,
		&doctor.UserID,
		&doctor.Speciality,
		&doctor.FirstName,
		&doctor.MiddleName,
		&doctor.LastName,
		&pID,
		&pUserID,
		&pPhone,
		&pFirst,
		&pMiddle,
		&pLast,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}

	det.PatientID = patientID
	det.Clinic = &clinic
	det.Doctor = &doctor

	if pID != nil {
		det.Patient = &Patient{
			ID:         *pID,
			UserID:     *pUserID,
			Phone:      deref(pPhone),
			FirstName:  deref(pFirst),
			MiddleName: deref(pMiddle),
			LastName:   deref(pLast),
		}
	}

	return &det, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *PgRepository) GetConsultationDetail(ctx context.Context, id uuid.UUID) (*ConsultationDetail, error) {
	row := r.pool.QueryRow(ctx, detailSelect+` WHERE c.id = $1`, id)
	return scanConsultationDetail(row)
}

func (r *PgRepository) CreateConsultation(ctx context.Context, c *Consultation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO consultations (id, clinic_id, doctor_id, patient_id, status, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.ClinicID, c.DoctorID, c.PatientID, c.Status, c.StartDate, c.EndDate, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

// UpdateConsultation writes every mutable field. created_at is never touched.
func (r *PgRepository) UpdateConsultation(ctx context.Context, c *Consultation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET clinic_id = $2,
		    doctor_id = $3,
		    patient_id = $4,
		    status = $5,
		    start_date = $6,
		    end_date = $7
		WHERE id = $1
	`, c.ID, c.ClinicID, c.DoctorID, c.PatientID, c.Status, c.StartDate, c.EndDate)
	if err != nil {
		return fmt.Errorf("update consultation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConsultationNotFound
	}
	return nil
}

func (r *PgRepository) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM consultations WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConsultationNotFound
	}
	return nil
}

func (r *PgRepository) ClaimConsultation(ctx context.Context, id, patientID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET patient_id = $2,
		    status = $3
		WHERE id = $1
		  AND patient_id IS NULL
		  AND start_date > $4
	`, id, patientID, StatusConfirmed, now)
	if err != nil {
		return false, fmt.Errorf("claim consultation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ListConsultations(ctx context.Context, f ListFilter) ([]ConsultationDetail, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Claimed != nil {
		if *f.Claimed {
			where = append(where, "c.patient_id IS NOT NULL")
		} else {
			where = append(where, "c.patient_id IS NULL")
		}
	}

	if f.Scope != nil && !f.Scope.All {
		if f.Scope.DoctorID == nil {
			return nil, nil
		}
		where = append(where, "c.doctor_id = "+arg(*f.Scope.DoctorID))
	}

	if f.DoctorID != nil {
		where = append(where, "c.doctor_id = "+arg(*f.DoctorID))
	}
	if f.PatientID != nil {
		where = append(where, "c.patient_id = "+arg(*f.PatientID))
	}

	if len(f.Query.Statuses) > 0 {
		statuses := make([]string, len(f.Query.Statuses))
		for i, s := range f.Query.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "c.status = ANY("+arg(statuses)+")")
	}

	for _, tok := range f.Query.Tokens() {
		like := arg("%" + tok + "%")
		where = append(where, fmt.Sprintf(`(
			du.first_name ILIKE %[1]s OR du.middle_name ILIKE %[1]s OR du.last_name ILIKE %[1]s OR
			pu.first_name ILIKE %[1]s OR pu.middle_name ILIKE %[1]s OR pu.last_name ILIKE %[1]s
		)`, like))
	}

	sql := detailSelect
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY " + orderClause(f.Query.Sort, f.Query.Order)

	if f.Query.Limit > 0 {
		sql += " LIMIT " + arg(f.Query.Limit)
	}
	if f.Query.Offset > 0 {
		sql += " OFFSET " + arg(f.Query.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var result []ConsultationDetail
	for rows.Next() {
		d, err := scanConsultationDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func orderClause(field SortField, order SortOrder) string {
	dir := "ASC"
	if order == OrderDesc {
		dir = "DESC"
	}

	switch field {
	case SortCreated:
		return "c.created_at " + dir
	case SortStatus:
		return "c.status " + dir + ", c.start_date " + dir
	case SortStartDate:
		return "c.start_date " + dir
	default:
		// Unspecified sort ignores the order parameter.
		return "c.start_date ASC"
	}
}

func (r *PgRepository) ListForReconcile(ctx context.Context) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, doctor_id, patient_id, status, start_date, end_date, created_at
		FROM consultations
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) SetConsultationStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("set consultation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConsultationNotFound
	}
	return nil
}

func (r *PgRepository) FindExpiredUnclaimed(ctx context.Context, now time.Time) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, doctor_id, patient_id, status, start_date, end_date, created_at
		FROM consultations
		WHERE status = $1
		  AND patient_id IS NULL
		  AND start_date < $2
	`, StatusCreated, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteIfUnclaimedExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM consultations
		WHERE id = $1
		  AND status = $2
		  AND patient_id IS NULL
		  AND start_date < $3
	`, id, StatusCreated, now)
	if err != nil {
		return false, fmt.Errorf("delete expired consultation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, consultation_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.ConsultationID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
