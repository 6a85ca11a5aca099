// Package storage keeps a local SQLite snapshot of a job's results. A
// snapshot can be browsed offline: Store serves the same page queries as the
// remote catalog.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/egemenmermer/business-extractor/internal/model"
)

type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Meta describes the job a snapshot was taken from.
type Meta struct {
	JobID   string
	Request model.SearchRequest
	SavedAt time.Time
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		business_name TEXT NOT NULL DEFAULT '',
		real_category TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		maps_link TEXT NOT NULL DEFAULT '',
		details_link TEXT NOT NULL DEFAULT '',
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category);
	CREATE INDEX IF NOT EXISTS idx_businesses_city ON businesses(city);
	CREATE INDEX IF NOT EXISTS idx_businesses_country ON businesses(country);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		category TEXT NOT NULL,
		location TEXT NOT NULL,
		status TEXT NOT NULL,
		processed_items INTEGER NOT NULL DEFAULT 0,
		total_items INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_job ON tasks(job_id);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Store) Path() string {
	return s.path
}

// SaveBusinesses upserts by id; a stored record is replaced wholesale.
func (s *Store) SaveBusinesses(ctx context.Context, businesses []model.Business) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO businesses
		(id, business_name, real_category, category, address, city, state,
		 postal_code, country, phone, email, website, latitude, longitude,
		 maps_link, details_link)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			business_name=excluded.business_name,
			real_category=excluded.real_category,
			category=excluded.category,
			address=excluded.address,
			city=excluded.city,
			state=excluded.state,
			postal_code=excluded.postal_code,
			country=excluded.country,
			phone=excluded.phone,
			email=excluded.email,
			website=excluded.website,
			latitude=excluded.latitude,
			longitude=excluded.longitude,
			maps_link=excluded.maps_link,
			details_link=excluded.details_link
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, b := range businesses {
		if b.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.BusinessName, b.RealCategory, b.Category, b.Address,
			b.City, b.State, b.PostalCode, b.Country, b.Phone, b.Email,
			b.Website, b.Latitude, b.Longitude, b.MapsLink, b.DetailsLink,
		); err != nil {
			return 0, fmt.Errorf("saving business %s: %w", b.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	return saved, nil
}

// SaveTasks replaces the stored tasks of jobID.
func (s *Store) SaveTasks(ctx context.Context, jobID string, tasks []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO tasks
		(id, job_id, category, location, status, processed_items, total_items, message)
		VALUES (?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx,
			t.ID, jobID, t.Category, t.Location, string(t.Status),
			t.ProcessedItems, t.TotalItems, t.Message,
		); err != nil {
			return fmt.Errorf("saving task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// Tasks returns the stored tasks of jobID.
func (s *Store) Tasks(ctx context.Context, jobID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, location, status, processed_items, total_items, message
		FROM tasks WHERE job_id = ? ORDER BY rowid`, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		var t model.Task
		var status string
		if err := rows.Scan(&t.ID, &t.Category, &t.Location, &status,
			&t.ProcessedItems, &t.TotalItems, &t.Message); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Status = model.TaskStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveMeta records which job the snapshot belongs to.
func (s *Store) SaveMeta(ctx context.Context, m Meta) error {
	req, err := json.Marshal(m.Request)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	if m.SavedAt.IsZero() {
		m.SavedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range map[string]string{
		"job_id":   m.JobID,
		"request":  string(req),
		"saved_at": m.SavedAt.UTC().Format(time.RFC3339),
	} {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("saving meta %s: %w", k, err)
		}
	}
	return nil
}

// LoadMeta returns the snapshot's job metadata; a snapshot saved without
// metadata yields the zero Meta.
func (s *Store) LoadMeta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return Meta{}, fmt.Errorf("querying meta: %w", err)
	}
	defer rows.Close()

	var m Meta
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, fmt.Errorf("scanning meta: %w", err)
		}
		switch k {
		case "job_id":
			m.JobID = v
		case "request":
			if err := json.Unmarshal([]byte(v), &m.Request); err != nil {
				return Meta{}, fmt.Errorf("decoding request: %w", err)
			}
		case "saved_at":
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				m.SavedAt = t
			}
		}
	}
	return m, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM businesses").Scan(&count)
	return count, err
}

// AllBusinesses returns every stored business in insertion order.
func (s *Store) AllBusinesses(ctx context.Context) ([]model.Business, error) {
	return s.query(ctx, `TRUE`, nil, -1, 0)
}

func (s *Store) Businesses(ctx context.Context, page, size int) ([]model.Business, error) {
	return s.query(ctx, `TRUE`, nil, size, page*size)
}

func (s *Store) BusinessesByCategory(ctx context.Context, category string, page, size int) ([]model.Business, error) {
	return s.query(ctx, `category = ?`, []any{category}, size, page*size)
}

func (s *Store) BusinessesByCity(ctx context.Context, city string, page, size int) ([]model.Business, error) {
	return s.query(ctx, `city = ?`, []any{city}, size, page*size)
}

func (s *Store) BusinessesByEmail(ctx context.Context, hasEmail bool, page, size int) (model.Page, error) {
	where := `email = ''`
	if hasEmail {
		where = `email <> ''`
	}
	return s.page(ctx, where, nil, page, size)
}

func (s *Store) BusinessesByCountry(ctx context.Context, country string, page, size int) (model.Page, error) {
	return s.page(ctx, `country = ?`, []any{country}, page, size)
}

func (s *Store) page(ctx context.Context, where string, args []any, page, size int) (model.Page, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM businesses WHERE `+where, args...).Scan(&total); err != nil {
		return model.Page{}, fmt.Errorf("counting businesses: %w", err)
	}
	items, err := s.query(ctx, where, args, size, page*size)
	if err != nil {
		return model.Page{}, err
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return model.Page{
		Content:       items,
		Last:          (page+1)*size >= total,
		TotalElements: total,
		TotalPages:    pages,
	}, nil
}

// query runs a filtered select; limit < 0 means no limit.
func (s *Store) query(ctx context.Context, where string, args []any, limit, offset int) ([]model.Business, error) {
	if limit == 0 {
		return nil, errors.New("storage: page size must be positive")
	}
	q := `
		SELECT id, business_name, real_category, category, address, city, state,
		       postal_code, country, phone, email, website, latitude, longitude,
		       maps_link, details_link
		FROM businesses WHERE ` + where + ` ORDER BY rowid LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying businesses: %w", err)
	}
	defer rows.Close()

	out := []model.Business{}
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.BusinessName, &b.RealCategory, &b.Category,
			&b.Address, &b.City, &b.State, &b.PostalCode, &b.Country, &b.Phone,
			&b.Email, &b.Website, &b.Latitude, &b.Longitude, &b.MapsLink,
			&b.DetailsLink); err != nil {
			return nil, fmt.Errorf("scanning business: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Summary describes a saved snapshot without loading its rows.
type Summary struct {
	Meta
	Businesses int
	Tasks      int
}

// Summarize opens the snapshot at path just long enough to read its meta and
// row counts.
func Summarize(ctx context.Context, path string) (Summary, error) {
	s, err := NewStore(path)
	if err != nil {
		return Summary{}, err
	}
	defer s.Close()

	meta, err := s.LoadMeta(ctx)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{Meta: meta}
	if out.Businesses, err = s.Count(ctx); err != nil {
		return Summary{}, fmt.Errorf("counting businesses: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE job_id = ?", meta.JobID).Scan(&out.Tasks); err != nil {
		return Summary{}, fmt.Errorf("counting tasks: %w", err)
	}
	return out, nil
}
