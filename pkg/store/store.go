// Package store persists properties in SQLite and answers search queries.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nestfind/nestfind/pkg/models"
)

// ErrNotFound is returned when no property has the requested id.
var ErrNotFound = errors.New("property not found")

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Store reads and writes properties.
type Store interface {
	// FindByID returns the property with the given id or ErrNotFound.
	FindByID(ctx context.Context, id string) (models.Property, error)
	// Search returns one page of properties matching the filters.
	Search(ctx context.Context, f models.SearchFilters) (models.SearchResult, error)
	// Insert stores a property, assigning an id when it has none.
	Insert(ctx context.Context, p *models.Property) error
	// DeleteAll removes every property.
	DeleteAll(ctx context.Context) error
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createPropertiesTable = `
CREATE TABLE IF NOT EXISTS properties (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price INTEGER NOT NULL,
	city TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT '',
	pincode TEXT NOT NULL DEFAULT '',
	lat REAL NOT NULL,
	lng REAL NOT NULL,
	property_type TEXT NOT NULL,
	bedrooms INTEGER NOT NULL DEFAULT 0,
	bathrooms INTEGER NOT NULL DEFAULT 0,
	area INTEGER NOT NULL DEFAULT 0,
	amenities TEXT NOT NULL DEFAULT '[]',
	images TEXT NOT NULL DEFAULT '[]',
	listed_date DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'available'
);
CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);
CREATE INDEX IF NOT EXISTS idx_properties_price ON properties(price);
CREATE INDEX IF NOT EXISTS idx_properties_listed ON properties(listed_date);
`

// New opens a SQLiteStore and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open property db: %w", err)
	}

	if _, err := db.Exec(createPropertiesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate property db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewID returns a fresh 24-character hex property id.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:12])
}

const selectColumns = `id, title, description, price, city, state, pincode, lat, lng,
	property_type, bedrooms, bathrooms, area, amenities, images, listed_date, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(row scanner) (models.Property, error) {
	var (
		p                 models.Property
		amenities, images string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price,
		&p.Location.City, &p.Location.State, &p.Location.Pincode,
		&p.Coordinates.Lat, &p.Coordinates.Lng,
		&p.PropertyType, &p.Bedrooms, &p.Bathrooms, &p.Area,
		&amenities, &images, &p.ListedDate, &p.Status)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(amenities), &p.Amenities); err != nil {
		return p, fmt.Errorf("decode amenities: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return p, fmt.Errorf("decode images: %w", err)
	}
	return p, nil
}

// FindByID returns the property with the given id.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (models.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM properties WHERE id = ?`, strings.ToLower(id))
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Property{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Property{}, fmt.Errorf("find property: %w", err)
	}
	return p, nil
}

// Search returns one page of matching properties. sortBy=price orders by
// ascending price; anything else orders by newest listing first.
func (s *SQLiteStore) Search(ctx context.Context, f models.SearchFilters) (models.SearchResult, error) {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}

	var (
		where []string
		args  []any
	)
	if f.City != "" {
		where = append(where, "city = ?")
		args = append(args, f.City)
	}
	if f.MinPrice > 0 {
		where = append(where, "price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		where = append(where, "price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.PropertyType != "" {
		where = append(where, "property_type = ?")
		args = append(args, f.PropertyType)
	}
	if f.MinBedrooms > 0 {
		where = append(where, "bedrooms >= ?")
		args = append(args, f.MinBedrooms)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	res := models.SearchResult{Page: f.Page, Limit: f.Limit, Results: []models.Property{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`+clause, args...).Scan(&res.Total); err != nil {
		return res, fmt.Errorf("count properties: %w", err)
	}

	order := " ORDER BY listed_date DESC, id"
	if f.SortBy == models.SortByPrice {
		order = " ORDER BY price ASC, id"
	}
	query := `SELECT ` + selectColumns + ` FROM properties` + clause + order + ` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return res, fmt.Errorf("search properties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return res, fmt.Errorf("scan property: %w", err)
		}
		res.Results = append(res.Results, p)
	}
	return res, rows.Err()
}

// Insert stores a property. A missing id is generated and written back.
func (s *SQLiteStore) Insert(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	p.ID = strings.ToLower(p.ID)
	if p.Status == "" {
		p.Status = "available"
	}
	if p.ListedDate.IsZero() {
		p.ListedDate = time.Now().UTC()
	}
	amenities, err := json.Marshal(nonNil(p.Amenities))
	if err != nil {
		return fmt.Errorf("encode amenities: %w", err)
	}
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.Price,
		p.Location.City, p.Location.State, p.Location.Pincode,
		p.Coordinates.Lat, p.Coordinates.Lng,
		p.PropertyType, p.Bedrooms, p.Bathrooms, p.Area,
		string(amenities), string(images), p.ListedDate.UTC(), p.Status,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// DeleteAll removes every property.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM properties`); err != nil {
		return fmt.Errorf("delete properties: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
