// Package catalog stores the searchable coffee list and runs translated
// search parameters against it. It has no visibility into the cache; it
// only consumes what the resolver returns.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/roastlab/brewfind/pkg/models"
)

// Catalog is the SQLite-backed coffee catalog.
type Catalog struct {
	db *sql.DB
}

const createCatalogTable = `
CREATE TABLE IF NOT EXISTS coffees (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	roaster TEXT NOT NULL,
	origin TEXT NOT NULL,
	roast TEXT NOT NULL,
	process TEXT NOT NULL,
	tasting_notes TEXT NOT NULL,
	price_usd REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coffees_origin ON coffees(origin);
`

// New opens the catalog database and runs migration.
func New(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if _, err := db.Exec(createCatalogTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Add inserts a coffee and returns its ID.
func (c *Catalog) Add(ctx context.Context, coffee models.Coffee) (int64, error) {
	notes, err := json.Marshal(coffee.TastingNotes)
	if err != nil {
		return 0, fmt.Errorf("marshal tasting notes: %w", err)
	}
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO coffees (name, roaster, origin, roast, process, tasting_notes, price_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		coffee.Name, coffee.Roaster, coffee.Origin, coffee.Roast, coffee.Process,
		string(notes), coffee.PriceUSD,
	)
	if err != nil {
		return 0, fmt.Errorf("add coffee: %w", err)
	}
	return res.LastInsertId()
}

// Search runs translated parameters against the catalog. Filters combine
// with AND; the free-text term matches name, roaster, origin, and notes.
func (c *Catalog) Search(ctx context.Context, params models.SearchParams, limit int) ([]models.Coffee, error) {
	if limit <= 0 {
		limit = 25
	}

	q := `SELECT id, name, roaster, origin, roast, process, tasting_notes, price_usd
		FROM coffees WHERE 1=1`
	var args []any

	if params.SearchText != "" {
		like := "%" + strings.ToLower(params.SearchText) + "%"
		q += ` AND (LOWER(name) LIKE ? OR LOWER(roaster) LIKE ? OR LOWER(origin) LIKE ? OR LOWER(tasting_notes) LIKE ?)`
		args = append(args, like, like, like, like)
	}
	if params.Origin != "" {
		q += ` AND LOWER(origin) = LOWER(?)`
		args = append(args, params.Origin)
	}
	if params.Roast != "" {
		q += ` AND LOWER(roast) = LOWER(?)`
		args = append(args, params.Roast)
	}
	if params.Process != "" {
		q += ` AND LOWER(process) = LOWER(?)`
		args = append(args, params.Process)
	}
	for _, note := range params.TastingNotes {
		q += ` AND LOWER(tasting_notes) LIKE ?`
		args = append(args, "%"+strings.ToLower(note)+"%")
	}
	if params.MinPrice > 0 {
		q += ` AND price_usd >= ?`
		args = append(args, params.MinPrice)
	}
	if params.MaxPrice > 0 {
		q += ` AND price_usd <= ?`
		args = append(args, params.MaxPrice)
	}

	q += ` ORDER BY price_usd ASC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	defer rows.Close()

	var coffees []models.Coffee
	for rows.Next() {
		var (
			coffee models.Coffee
			notes  string
		)
		if err := rows.Scan(&coffee.ID, &coffee.Name, &coffee.Roaster, &coffee.Origin,
			&coffee.Roast, &coffee.Process, &notes, &coffee.PriceUSD); err != nil {
			return nil, fmt.Errorf("scan coffee: %w", err)
		}
		if err := json.Unmarshal([]byte(notes), &coffee.TastingNotes); err != nil {
			return nil, fmt.Errorf("decode tasting notes: %w", err)
		}
		coffees = append(coffees, coffee)
	}
	return coffees, rows.Err()
}

// Count returns the number of catalog rows.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coffees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count coffees: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
