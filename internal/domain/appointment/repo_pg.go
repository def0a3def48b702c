package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

const activeStatuses = `'scheduled', 'confirmed'`

const appointmentColumns = `id, provider_id, patient_id, to_char(visit_date, 'YYYY-MM-DD'),
	time_of_day, status, reason, notes, confirmation_sent_at, created_at, updated_at`

// PGRepository is the PostgreSQL booking ledger. It holds the pool directly
// because Reserve opens its own transaction.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.ProviderID, &a.PatientID, &a.VisitDate,
		&a.TimeOfDay, &a.Status, &a.Reason, &a.Notes,
		&a.ConfirmationSentAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Reserve counts and inserts under a per-(provider, date) advisory lock so
// two concurrent reservations cannot both observe the last free place. The
// lock is transaction-scoped and released on commit or rollback.
func (r *PGRepository) Reserve(ctx context.Context, a *Appointment, dailyCapacity, slotLimit int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		a.ProviderID, a.VisitDate,
	)
	if err != nil {
		return fmt.Errorf("acquire reserve lock: %w", err)
	}

	var dayCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment
		 WHERE provider_id = $1 AND visit_date = $2 AND status IN (`+activeStatuses+`)`,
		a.ProviderID, a.VisitDate,
	).Scan(&dayCount)
	if err != nil {
		return fmt.Errorf("count day bookings: %w", err)
	}
	if dayCount >= dailyCapacity {
		return &CapacityError{Date: a.VisitDate, Reason: "day is fully booked"}
	}

	if slotLimit > 0 {
		var slotCount int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM appointment
			 WHERE provider_id = $1 AND visit_date = $2 AND time_of_day = $3
			   AND status IN (`+activeStatuses+`)`,
			a.ProviderID, a.VisitDate, a.TimeOfDay,
		).Scan(&slotCount)
		if err != nil {
			return fmt.Errorf("count slot bookings: %w", err)
		}
		if slotCount >= slotLimit {
			return &CapacityError{Date: a.VisitDate, Slot: a.TimeOfDay, Reason: "slot is fully booked"}
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO appointment (id, provider_id, patient_id, visit_date, time_of_day, status, reason, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		a.ID, a.ProviderID, a.PatientID, a.VisitDate, a.TimeOfDay, a.Status, a.Reason, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointment WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *PGRepository) ListByProvider(ctx context.Context, providerID string, p pagination.Params) ([]Appointment, int, error) {
	return r.list(ctx, "provider_id", providerID, p)
}

func (r *PGRepository) ListByPatient(ctx context.Context, patientID string, p pagination.Params) ([]Appointment, int, error) {
	return r.list(ctx, "patient_id", patientID, p)
}

func (r *PGRepository) list(ctx context.Context, column, value string, p pagination.Params) ([]Appointment, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+column+` = $1`, value,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointment
		 WHERE `+column+` = $1
		 ORDER BY visit_date DESC, time_of_day DESC
		 LIMIT $2 OFFSET $3`,
		value, p.Limit, p.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) CountByDay(ctx context.Context, providerID, from, to string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(visit_date, 'YYYY-MM-DD'), COUNT(*) FROM appointment
		 WHERE provider_id = $1 AND visit_date BETWEEN $2 AND $3
		   AND status IN (`+activeStatuses+`)
		 GROUP BY visit_date`,
		providerID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("count by day: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			date string
			n    int
		)
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		counts[date] = n
	}
	return counts, rows.Err()
}

func (r *PGRepository) CountBySlot(ctx context.Context, providerID, date string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT time_of_day, COUNT(*) FROM appointment
		 WHERE provider_id = $1 AND visit_date = $2
		   AND status IN (`+activeStatuses+`)
		 GROUP BY time_of_day`,
		providerID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("count by slot: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			slot string
			n    int
		)
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, fmt.Errorf("scan slot count: %w", err)
		}
		counts[slot] = n
	}
	return counts, rows.Err()
}

func (r *PGRepository) UpdateStatusIf(ctx context.Context, id string, from, to Status) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`UPDATE appointment SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+appointmentColumns,
		id, from, to,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return a, nil
}

func (r *PGRepository) MarkConfirmationSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment SET confirmation_sent_at = $2, updated_at = NOW() WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("mark confirmation sent: %w", err)
	}
	return nil
}

// PGContactDirectory reads patient notification addresses from the
// patient_contact table.
type PGContactDirectory struct {
	pool *pgxpool.Pool
}

func NewPGContactDirectory(pool *pgxpool.Pool) *PGContactDirectory {
	return &PGContactDirectory{pool: pool}
}

func (d *PGContactDirectory) PhoneFor(ctx context.Context, patientID string) (string, error) {
	var phone string
	err := d.pool.QueryRow(ctx,
		`SELECT phone FROM patient_contact WHERE patient_id = $1`, patientID,
	).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup patient contact: %w", err)
	}
	return phone, nil
}
