package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mswatii/cs2-casecheck/internal/pipeline"
	"github.com/mswatii/cs2-casecheck/internal/pricing"
)

// DefaultSnapshotID names the row the price index is persisted under
const DefaultSnapshotID = "prices"

type Database struct {
	pool *pgxpool.Pool
}

// NewDatabase creates a new database connection
func NewDatabase(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Database{pool: pool}, nil
}

// Close closes the database connection
func (db *Database) Close() {
	db.pool.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *Database) CreateTables(ctx context.Context) error {
	// Create price_snapshots table
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_snapshots (
			id VARCHAR(64) PRIMARY KEY,
			payload JSONB NOT NULL,
			fetched_at_ms BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating price_snapshots table: %w", err)
	}

	// Create case_views table
	_, err = db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS case_views (
			id UUID PRIMARY KEY,
			site VARCHAR(255) NOT NULL,
			case_id VARCHAR(255) NOT NULL,
			case_name VARCHAR(255) NOT NULL,
			case_price DECIMAL(15,2) NOT NULL,
			item_count INTEGER NOT NULL,
			site_ev DOUBLE PRECISION NOT NULL,
			site_profitability DOUBLE PRECISION,
			real_ev DOUBLE PRECISION,
			real_profitability DOUBLE PRECISION,
			currency VARCHAR(10) NOT NULL,
			viewed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating case_views table: %w", err)
	}

	_, err = db.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS case_views_site_case_idx ON case_views (site, case_id, viewed_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("error creating case_views index: %w", err)
	}

	return nil
}

// SnapshotStore persists the price index in Postgres
type SnapshotStore struct {
	db *Database
	id string
}

// NewSnapshotStore creates a store for the snapshot row id. An empty id uses DefaultSnapshotID.
func NewSnapshotStore(db *Database, id string) *SnapshotStore {
	if id == "" {
		id = DefaultSnapshotID
	}
	return &SnapshotStore{db: db, id: id}
}

// Compile-time interface check.
var _ pricing.Store = (*SnapshotStore)(nil)

// Load retrieves the persisted index and its fetch time
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	var payload []byte
	var fetchedAtMs int64
	err := s.db.pool.QueryRow(ctx, `
		SELECT payload, fetched_at_ms FROM price_snapshots WHERE id = $1
	`, s.id).Scan(&payload, &fetchedAtMs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, pricing.ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("error loading price snapshot: %w", err)
	}
	return payload, time.UnixMilli(fetchedAtMs), nil
}

// Save inserts or replaces the persisted index
func (s *SnapshotStore) Save(ctx context.Context, data []byte, fetchedAt time.Time) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO price_snapshots (id, payload, fetched_at_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET
			payload = $2,
			fetched_at_ms = $3,
			updated_at = NOW()
	`, s.id, data, fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error saving price snapshot: %w", err)
	}
	return nil
}

// Clear deletes the persisted index
func (s *SnapshotStore) Clear(ctx context.Context) error {
	_, err := s.db.pool.Exec(ctx, `DELETE FROM price_snapshots WHERE id = $1`, s.id)
	if err != nil {
		return fmt.Errorf("error clearing price snapshot: %w", err)
	}
	return nil
}

// CaseViewSummary is one row of the case_views history
type CaseViewSummary struct {
	ID                string    `json:"id"`
	Site              string    `json:"site"`
	CaseID            string    `json:"case_id"`
	CaseName          string    `json:"case_name"`
	CasePrice         float64   `json:"case_price"`
	ItemCount         int       `json:"item_count"`
	SiteEV            float64   `json:"site_ev"`
	SiteProfitability *float64  `json:"site_profitability"`
	RealEV            *float64  `json:"real_ev"`
	RealProfitability *float64  `json:"real_profitability"`
	Currency          string    `json:"currency"`
	ViewedAt          time.Time `json:"viewed_at"`
}

// ViewStore records case views
type ViewStore struct {
	db *Database
}

// NewViewStore creates a view history store
func NewViewStore(db *Database) *ViewStore {
	return &ViewStore{db: db}
}

// Compile-time interface check.
var _ pipeline.Recorder = (*ViewStore)(nil)

// RecordView inserts a summary of v
func (s *ViewStore) RecordView(ctx context.Context, v *pipeline.View) error {
	return s.InsertCaseView(ctx, summarize(v))
}

func summarize(v *pipeline.View) *CaseViewSummary {
	sum := &CaseViewSummary{
		ID:                v.ID,
		Site:              v.Site,
		CaseID:            v.Case.ID,
		CaseName:          v.Case.Name,
		CasePrice:         v.Case.Price,
		ItemCount:         v.SiteStats.ItemCount,
		SiteEV:            v.SiteStats.ExpectedValue,
		SiteProfitability: v.SiteStats.Profitability,
		Currency:          v.Currency,
		ViewedAt:          v.ViewedAt,
	}
	if v.RealStats != nil {
		ev := v.RealStats.ExpectedValue
		sum.RealEV = &ev
		sum.RealProfitability = v.RealStats.Profitability
	}
	return sum
}

// InsertCaseView inserts a case view summary into the database
func (s *ViewStore) InsertCaseView(ctx context.Context, sum *CaseViewSummary) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO case_views (
			id, site, case_id, case_name, case_price, item_count,
			site_ev, site_profitability, real_ev, real_profitability, currency, viewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		sum.ID, sum.Site, sum.CaseID, sum.CaseName, sum.CasePrice, sum.ItemCount,
		sum.SiteEV, sum.SiteProfitability, sum.RealEV, sum.RealProfitability, sum.Currency, sum.ViewedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting case view: %w", err)
	}
	return nil
}

// RecentViews returns the latest views of a case, newest first
func (s *ViewStore) RecentViews(ctx context.Context, site, caseID string, limit int) ([]CaseViewSummary, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT id::text, site, case_id, case_name, case_price::float8, item_count,
		       site_ev, site_profitability, real_ev, real_profitability, currency, viewed_at
		FROM case_views
		WHERE site = $1 AND case_id = $2
		ORDER BY viewed_at DESC
		LIMIT $3
	`, site, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying case views: %w", err)
	}
	defer rows.Close()

	var results []CaseViewSummary
	for rows.Next() {
		var sum CaseViewSummary
		err := rows.Scan(
			&sum.ID, &sum.Site, &sum.CaseID, &sum.CaseName, &sum.CasePrice, &sum.ItemCount,
			&sum.SiteEV, &sum.SiteProfitability, &sum.RealEV, &sum.RealProfitability, &sum.Currency, &sum.ViewedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		results = append(results, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}
