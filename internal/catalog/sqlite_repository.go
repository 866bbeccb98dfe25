package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepository is the menu stored in a local sqlite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers anyway, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations() error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{
		MigrationsTable: "catalog_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const itemColumns = `id, name, category_id, unit_price, discount_percent, available, photo_url`

func (r *SQLiteRepository) Lookup(ctx context.Context, itemID int64) (domain.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM menu_items WHERE id = ?`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("query menu item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) List(ctx context.Context, categoryID string) ([]domain.CatalogItem, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if categoryID == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM menu_items ORDER BY id`)
	} else {
		var exists int
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM categories WHERE id = ?`, categoryID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("query category: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("category %q: %w", categoryID, domain.ErrNotFound)
		}
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM menu_items WHERE category_id = ? ORDER BY id`, categoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CatalogItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func (r *SQLiteRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return cats, nil
}

// Upsert inserts a new item when ID is zero, otherwise overwrites the item
// with that id. It returns the stored id.
func (r *SQLiteRepository) Upsert(ctx context.Context, item domain.CatalogItem) (int64, error) {
	if item.DiscountPercent < 0 || item.DiscountPercent > 100 {
		return 0, fmt.Errorf("discount_percent %d out of range", item.DiscountPercent)
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		item.CategoryID, item.CategoryID); err != nil {
		return 0, fmt.Errorf("ensure category: %w", err)
	}

	if item.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO menu_items (name, category_id, unit_price, discount_percent, available, photo_url)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.Name, item.CategoryID, item.UnitPrice.String(), item.DiscountPercent, item.Available, item.PhotoURL)
		if err != nil {
			return 0, fmt.Errorf("insert menu item: %w", err)
		}
		return res.LastInsertId()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO menu_items (id, name, category_id, unit_price, discount_percent, available, photo_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name,
		     category_id = excluded.category_id,
		     unit_price = excluded.unit_price,
		     discount_percent = excluded.discount_percent,
		     available = excluded.available,
		     photo_url = excluded.photo_url,
		     updated_at = CURRENT_TIMESTAMP`,
		item.ID, item.Name, item.CategoryID, item.UnitPrice.String(), item.DiscountPercent, item.Available, item.PhotoURL)
	if err != nil {
		return 0, fmt.Errorf("upsert menu item: %w", err)
	}
	return item.ID, nil
}

func (r *SQLiteRepository) SetAvailability(ctx context.Context, itemID int64, available bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_items SET available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, available, itemID)
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

// Snapshot loads the whole menu into a MemoryCatalog so request paths do not
// touch the database.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (*MemoryCatalog, error) {
	mem := NewMemoryCatalog(nil, nil)
	if err := r.ReloadInto(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

// ReloadInto replaces dst with the current database contents in one step.
func (r *SQLiteRepository) ReloadInto(ctx context.Context, dst *MemoryCatalog) error {
	cats, err := r.Categories(ctx)
	if err != nil {
		return err
	}
	items, err := r.List(ctx, "")
	if err != nil {
		return err
	}
	dst.Replace(cats, items)
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.CategoryID,
		&item.UnitPrice,
		&item.DiscountPercent,
		&item.Available,
		&item.PhotoURL,
	)
	return item, err
}
