package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
)

// SQLiteStore implements PlanStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based plan store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS allocation_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		funds REAL NOT NULL,
		total_cost REAL NOT NULL,
		row_count INTEGER NOT NULL,
		options TEXT NOT NULL,
		drafts TEXT NOT NULL,
		prices TEXT NOT NULL,
		result TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_name ON allocation_plans(name);
	CREATE INDEX IF NOT EXISTS idx_plans_created ON allocation_plans(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SavePlan stores a plan.
func (s *SQLiteStore) SavePlan(ctx context.Context, plan *models.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	options, err := json.Marshal(plan.Options)
	if err != nil {
		return apperrors.NewPlanError(plan.ID, "save", err)
	}
	drafts, err := json.Marshal(finiteDrafts(plan.Drafts))
	if err != nil {
		return apperrors.NewPlanError(plan.ID, "save", err)
	}
	prices, err := json.Marshal(finitePrices(plan.Prices))
	if err != nil {
		return apperrors.NewPlanError(plan.ID, "save", err)
	}

	var result []byte
	var totalCost float64
	if plan.Result != nil {
		if result, err = json.Marshal(plan.Result); err != nil {
			return apperrors.NewPlanError(plan.ID, "save", err)
		}
		totalCost = plan.Result.Totals.TotalCost
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO allocation_plans
			(id, name, mode, funds, total_cost, row_count, options, drafts, prices, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Name, string(plan.Mode), plan.Funds, totalCost, len(plan.Drafts),
		string(options), string(drafts), string(prices), nullString(result), plan.CreatedAt,
	)
	if err != nil {
		return apperrors.NewPlanError(plan.ID, "save", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return nil
}

// GetPlan returns a plan by id, falling back to the newest plan with that name.
func (s *SQLiteStore) GetPlan(ctx context.Context, ref string) (*models.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mode, funds, options, drafts, prices, result, created_at
		FROM allocation_plans
		WHERE id = ? OR name = ?
		ORDER BY (id = ?) DESC, created_at DESC
		LIMIT 1`, ref, ref, ref)

	var (
		plan                    models.Plan
		mode                    string
		options, drafts, prices string
		result                  sql.NullString
	)
	err := row.Scan(&plan.ID, &plan.Name, &mode, &plan.Funds, &options, &drafts, &prices, &result, &plan.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPlanError(ref, "get", apperrors.ErrPlanNotFound)
	}
	if err != nil {
		return nil, apperrors.NewPlanError(ref, "get", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	plan.Mode = models.Mode(mode)

	if err := json.Unmarshal([]byte(options), &plan.Options); err != nil {
		return nil, apperrors.NewPlanError(plan.ID, "decode options", err)
	}
	if err := json.Unmarshal([]byte(drafts), &plan.Drafts); err != nil {
		return nil, apperrors.NewPlanError(plan.ID, "decode drafts", err)
	}
	if err := json.Unmarshal([]byte(prices), &plan.Prices); err != nil {
		return nil, apperrors.NewPlanError(plan.ID, "decode prices", err)
	}
	if result.Valid {
		plan.Result = &models.AllocationResult{}
		if err := json.Unmarshal([]byte(result.String), plan.Result); err != nil {
			return nil, apperrors.NewPlanError(plan.ID, "decode result", err)
		}
	}
	return &plan, nil
}

// ListPlans returns plan summaries, newest first.
func (s *SQLiteStore) ListPlans(ctx context.Context, limit int) ([]models.PlanSummary, error) {
	query := `
		SELECT id, name, mode, funds, total_cost, row_count, created_at
		FROM allocation_plans
		ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var plans []models.PlanSummary
	for rows.Next() {
		var p models.PlanSummary
		var mode string
		if err := rows.Scan(&p.ID, &p.Name, &mode, &p.Funds, &p.TotalCost, &p.Rows, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err)
		}
		p.Mode = models.Mode(mode)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan by id.
func (s *SQLiteStore) DeletePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM allocation_plans WHERE id = ?", id)
	if err != nil {
		return apperrors.NewPlanError(id, "delete", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewPlanError(id, "delete", err)
	}
	if n == 0 {
		return apperrors.NewPlanError(id, "delete", apperrors.ErrPlanNotFound)
	}
	return nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// finiteDrafts replaces NaN and infinite values, which JSON cannot encode.
func finiteDrafts(rows []models.RowDraft) []models.RowDraft {
	out := make([]models.RowDraft, len(rows))
	for i, r := range rows {
		if math.IsNaN(r.WeightPct) || math.IsInf(r.WeightPct, 0) {
			r.WeightPct = 0
		}
		if math.IsNaN(r.AmountInr) || math.IsInf(r.AmountInr, 0) {
			r.AmountInr = 0
		}
		out[i] = r
	}
	return out
}

func finitePrices(prices models.PriceMap) models.PriceMap {
	out := make(models.PriceMap, len(prices))
	for id := range prices {
		if p, ok := prices.Lookup(id); ok {
			out[id] = p
		}
	}
	return out
}
