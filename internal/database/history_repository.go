package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sartorproj/stockcast/timeseries"
)

const (
	monthlyHistoryQuery = `
		SELECT year, month, stockonhand
		FROM monthlysummary
		WHERE itemcode ILIKE $1
		ORDER BY year, month
	`
	sampleQuery = `
		SELECT itemcode, year, month, stockonhand
		FROM monthlysummary
		LIMIT 1
	`
)

// DatabasePool is the subset of *pgxpool.Pool the repository needs.
type DatabasePool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// HistorySource returns the monthly stock history of an item.
type HistorySource interface {
	MonthlyHistory(ctx context.Context, itemCode string) ([]timeseries.Observation, error)
}

// SummaryRow is one row of the monthly summary table.
type SummaryRow struct {
	ItemCode    string  `json:"itemcode"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	StockOnHand float64 `json:"stockonhand"`
}

// HistoryRepository reads monthly stock summaries.
type HistoryRepository struct {
	pool DatabasePool
}

func NewHistoryRepository(pool DatabasePool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// MonthlyHistory returns the item's rows in chronological order, each dated
// the first of its month. The item code is matched case-insensitively after
// trimming. No rows is not an error.
func (r *HistoryRepository) MonthlyHistory(ctx context.Context, itemCode string) ([]timeseries.Observation, error) {
	rows, err := r.pool.Query(ctx, monthlyHistoryQuery, strings.TrimSpace(itemCode))
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly history: %w", err)
	}
	defer rows.Close()

	var obs []timeseries.Observation
	for rows.Next() {
		var (
			year, month int
			stock       float64
		)
		if err := rows.Scan(&year, &month, &stock); err != nil {
			return nil, fmt.Errorf("failed to scan monthly history: %w", err)
		}
		if month < 1 || month > 12 {
			continue
		}
		obs = append(obs, timeseries.Observation{
			Date:  time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
			Value: stock,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly history: %w", err)
	}
	return obs, nil
}

// Sample returns any one summary row, or nil when the table is empty.
func (r *HistoryRepository) Sample(ctx context.Context) (*SummaryRow, error) {
	var row SummaryRow
	err := r.pool.QueryRow(ctx, sampleQuery).Scan(&row.ItemCode, &row.Year, &row.Month, &row.StockOnHand)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sample row: %w", err)
	}
	return &row, nil
}

// Ping checks the connection.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
