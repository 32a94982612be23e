// Package store persists snapshots as append-only rows.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/components/assert"
	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/pkg/migrations"

	"github.com/jmoiron/sqlx"
)

const (
	report_db_query = "db.query"
	report_append   = "store.append"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrMissingAuthToken means a remote store was configured without a credential that
// can write to it.
var ErrMissingAuthToken = errors.New("store: remote url configured without auth_token")

// ErrSnapshotExists means rows were already stored under the key of the appended
// snapshot. Keys have a resolution of one second.
var ErrSnapshotExists = errors.New("store: a snapshot with this key is already stored")

// HEADER is written in front of the rows before every append.
var HEADER = []string{"수집일시", "카테고리", "상품명", "가격", "상태", "URL", "이미지"}

// Row is the persisted form of a product.
type Row struct {
	Id         int64  `db:"id"`
	CapturedAt string `db:"captured_at"`
	Category   string `db:"category"`
	Name       string `db:"name"`
	PriceRaw   string `db:"price_raw"`
	Status     string `db:"status"`
	Url        string `db:"url"`
	ImageUrl   string `db:"image_url"`
	RunId      string `db:"run_id"`
}

// Values returns the row in HEADER order.
func (r Row) Values() []string {
	return []string{r.CapturedAt, r.Category, r.Name, r.PriceRaw, r.Status, r.Url, r.ImageUrl}
}

func (r Row) Product() (catalog.Product, error) {
	capturedAt, err := ParseKey(r.CapturedAt)
	if err != nil {
		return catalog.Product{}, err
	}
	return catalog.Product{
		CapturedAt: capturedAt,
		Category:   r.Category,
		Name:       r.Name,
		PriceRaw:   r.PriceRaw,
		Status:     catalog.Status(r.Status),
		Url:        r.Url,
		ImageUrl:   r.ImageUrl,
	}, nil
}

// FormatKey is the persisted form of a snapshot key, always in KST.
func FormatKey(t time.Time) string {
	return t.In(chrono.KST()).Format(catalog.CAPTURED_AT_LAYOUT)
}

func ParseKey(s string) (time.Time, error) {
	return time.ParseInLocation(catalog.CAPTURED_AT_LAYOUT, s, chrono.KST())
}

type Store struct {
	db  *sqlx.DB
	tel telemetry.API
}

// Open opens and migrates the configured database.
func Open(config Config, tel telemetry.API) (*Store, error) {
	db, err := config.OpenDB()
	if err != nil {
		return nil, err
	}
	store, err := New(db, config.Remote(), tel)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New migrates db and wraps it.
func New(db *sql.DB, remote bool, tel telemetry.API) (*Store, error) {
	assert.NotNil(db)
	assert.NotNil(tel)

	err := migrations.Up(db, migrationFiles, "migrations", remote)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:  sqlx.NewDb(db, "sqlite"),
		tel: telemetry.NewScopedAPI("store", tel),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes every product of the snapshot in one transaction after rewriting the
// header. Existing rows are never touched.
func (s *Store) Append(ctx context.Context, snapshot catalog.Snapshot) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "BeginTx")
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	key := FormatKey(snapshot.CapturedAt)
	var existing int
	err = tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM product_rows WHERE captured_at = ?`, key)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CountKey", key)
		return err
	}
	if existing > 0 {
		err = fmt.Errorf("%w: %s", ErrSnapshotExists, key)
		s.tel.ReportWarning(report_append, err, snapshot.RunId)
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM store_header`)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "DeleteHeader")
		return err
	}
	for i, column := range HEADER {
		_, err = tx.ExecContext(ctx, `INSERT INTO store_header (position, name) VALUES (?, ?)`, i, column)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "InsertHeader", column)
			return err
		}
	}

	insert, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO product_rows (captured_at, category, name, price_raw, status, url, image_url, run_id)
		VALUES (:captured_at, :category, :name, :price_raw, :status, :url, :image_url, :run_id)`)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "PrepareInsertRow")
		return err
	}
	defer insert.Close()

	for _, p := range snapshot.Products {
		_, err = insert.ExecContext(ctx, Row{
			CapturedAt: key,
			Category:   p.Category,
			Name:       p.Name,
			PriceRaw:   p.PriceRaw,
			Status:     string(p.Status),
			Url:        p.Url,
			ImageUrl:   p.ImageUrl,
			RunId:      snapshot.RunId,
		})
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "InsertRow", p.Name)
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		s.tel.ReportBroken(report_append, fmt.Errorf("commit: %w", err), key)
		return err
	}
	s.tel.ReportCount(report_append, int64(len(snapshot.Products)))
	return nil
}

// Header returns the header row currently stored.
func (s *Store) Header(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `SELECT name FROM store_header ORDER BY position`)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "SelectHeader")
		return nil, err
	}
	return names, nil
}

// SnapshotKeys returns every distinct snapshot key, newest first.
func (s *Store) SnapshotKeys(ctx context.Context) ([]time.Time, error) {
	var raw []string
	err := s.db.SelectContext(
		ctx, &raw,
		`SELECT DISTINCT captured_at FROM product_rows ORDER BY captured_at DESC`,
	)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "SelectSnapshotKeys")
		return nil, err
	}

	keys := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		key, err := ParseKey(r)
		if err != nil {
			s.tel.ReportWarning(report_db_query, fmt.Errorf("skip malformed key: %w", err), r)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Store) rows(ctx context.Context, key time.Time) ([]Row, error) {
	var rows []Row
	err := s.db.SelectContext(
		ctx, &rows,
		`SELECT * FROM product_rows WHERE captured_at = ? ORDER BY id`,
		FormatKey(key),
	)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "SelectProducts", FormatKey(key))
		return nil, err
	}
	return rows, nil
}

// Products returns the products of one snapshot in capture order.
func (s *Store) Products(ctx context.Context, key time.Time) ([]catalog.Product, error) {
	rows, err := s.rows(ctx, key)
	if err != nil {
		return nil, err
	}
	products := make([]catalog.Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.Product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Snapshot returns a whole stored snapshot.
func (s *Store) Snapshot(ctx context.Context, key time.Time) (catalog.Snapshot, error) {
	rows, err := s.rows(ctx, key)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	snapshot := catalog.Snapshot{CapturedAt: key}
	for _, r := range rows {
		p, err := r.Product()
		if err != nil {
			return catalog.Snapshot{}, err
		}
		if snapshot.RunId == "" {
			snapshot.RunId = r.RunId
		}
		snapshot.Products = append(snapshot.Products, p)
	}
	return snapshot, nil
}

// LatestKey returns the key and run id of the newest snapshot without reading its rows,
// false if the store is empty.
func (s *Store) LatestKey(ctx context.Context) (time.Time, string, bool, error) {
	var row Row
	err := s.db.GetContext(
		ctx, &row,
		`SELECT * FROM product_rows ORDER BY captured_at DESC, id LIMIT 1`,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, "", false, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "SelectLatestKey")
		return time.Time{}, "", false, err
	}
	key, err := ParseKey(row.CapturedAt)
	if err != nil {
		return time.Time{}, "", false, err
	}
	return key, row.RunId, true, nil
}

// Latest returns the newest snapshot, false if the store is empty.
func (s *Store) Latest(ctx context.Context) (catalog.Snapshot, bool, error) {
	key, _, ok, err := s.LatestKey(ctx)
	if err != nil || !ok {
		return catalog.Snapshot{}, false, err
	}
	snapshot, err := s.Snapshot(ctx, key)
	if err != nil {
		return catalog.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

// Rows calls fn with every stored row in insertion order.
func (s *Store) Rows(ctx context.Context, fn func(Row) error) error {
	rows, err := s.db.QueryxContext(ctx, `SELECT * FROM product_rows ORDER BY id`)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "SelectRows")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r Row
		err = rows.StructScan(&r)
		if err != nil {
			return err
		}
		err = fn(r)
		if err != nil {
			return err
		}
	}
	return rows.Err()
}
