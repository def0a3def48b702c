package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by *pgxpool.Pool and pgx.Tx.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGOverrideRepository persists override documents as one JSONB row per
// provider.
type PGOverrideRepository struct {
	db queryable
}

func NewPGOverrideRepository(db queryable) *PGOverrideRepository {
	return &PGOverrideRepository{db: db}
}

func (r *PGOverrideRepository) Get(ctx context.Context, providerID string) (*Override, error) {
	var (
		doc       []byte
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT doc, updated_at FROM provider_availability_override WHERE provider_id = $1`,
		providerID,
	).Scan(&doc, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}

	var o Override
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("decode override doc: %w", err)
	}
	o.ProviderID = providerID
	o.UpdatedAt = updatedAt
	if o.BlockedDates == nil {
		o.BlockedDates = []string{}
	}
	if o.DailyCapacity == nil {
		o.DailyCapacity = map[string]int{}
	}
	if o.SlotCapacity == nil {
		o.SlotCapacity = map[string]map[string]int{}
	}
	return &o, nil
}

func (r *PGOverrideRepository) Put(ctx context.Context, o *Override) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode override doc: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO provider_availability_override (provider_id, doc, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (provider_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		o.ProviderID, doc, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put override: %w", err)
	}
	return nil
}
