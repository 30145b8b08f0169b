package historyrepo

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/drive-value/internal/domain/valuation"
)

//go:embed schema.sql
var schema string

// PostgresRepository implements valuation.HistoryStore using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the history table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

// Append inserts entry and trims the owner's history to capacity in one
// transaction.
func (r *PostgresRepository) Append(ctx context.Context, owner string, entry valuation.HistoryEntry, opts valuation.AppendOptions) error {
	payload, err := json.Marshal(entry.ViewModel)
	if err != nil {
		return fmt.Errorf("encode view model: %w", err)
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = valuation.DefaultHistoryCapacity
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if opts.DedupeVIN {
			if _, err := tx.Exec(ctx, `
				DELETE FROM valuation_history
				WHERE owner = $1 AND upper(vin) = upper($2)
			`, owner, entry.VIN); err != nil {
				return fmt.Errorf("dedupe history: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO valuation_history (id, owner, vin, condition, view_model, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entry.ID, owner, entry.VIN, string(entry.Condition), payload, entry.RecordedAt); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM valuation_history
			WHERE owner = $1 AND id NOT IN (
				SELECT id FROM valuation_history
				WHERE owner = $1
				ORDER BY recorded_at DESC
				LIMIT $2
			)
		`, owner, capacity); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
		return nil
	})
}

// List returns up to limit entries, newest first.
func (r *PostgresRepository) List(ctx context.Context, owner string, limit int) ([]valuation.HistoryEntry, error) {
	if limit <= 0 {
		limit = valuation.DefaultHistoryCapacity
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, vin, condition, view_model, recorded_at
		FROM valuation_history
		WHERE owner = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]valuation.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			id         uuid.UUID
			vin        string
			condition  string
			payload    []byte
			recordedAt time.Time
		)
		if err := rows.Scan(&id, &vin, &condition, &payload, &recordedAt); err != nil {
			return nil, err
		}
		var vm valuation.ViewModel
		if err := json.Unmarshal(payload, &vm); err != nil {
			return nil, fmt.Errorf("decode view model %s: %w", id, err)
		}
		entries = append(entries, valuation.HistoryEntry{
			ID:         id,
			VIN:        vin,
			Vehicle:    vm.Vehicle,
			Condition:  valuation.Condition(condition),
			ViewModel:  vm,
			RecordedAt: recordedAt.UTC(),
		})
	}
	return entries, rows.Err()
}

// Clear removes the owner's history.
func (r *PostgresRepository) Clear(ctx context.Context, owner string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM valuation_history WHERE owner = $1`, owner)
	return err
}

var _ valuation.HistoryStore = (*PostgresRepository)(nil)
