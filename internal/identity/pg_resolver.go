package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgResolver struct {
	pool *pgxpool.Pool
}

func NewPgResolver(pool *pgxpool.Pool) *PgResolver {
	return &PgResolver{pool: pool}
}

func (r *PgResolver) Resolve(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.role, u.is_staff, d.id, p.id
		FROM users u
		LEFT JOIN doctors d ON d.user_id = u.id
		LEFT JOIN patients p ON p.user_id = u.id
		WHERE u.id = $1
	`, userID)

	var ident Identity
	var role string
	var doctorID, patientID *uuid.UUID

	err := row.Scan(
		&ident.UserID,
		&ident.Email,
		&role,
		&ident.Elevated,
		&doctorID,
		&patientID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	ident.Role = Role(role)
	ident.DoctorID = doctorID
	ident.PatientID = patientID

	return &ident, nil
}
