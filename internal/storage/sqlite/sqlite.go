package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/models"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
	"github.com/dylantneal/eng.com-sub003/internal/storage/sqlq"
	_ "github.com/mattn/go-sqlite3"
)

// created_at хранится в микросекундах unix: строковое сравнение
// дат в SQLite ломается на дробных секундах разной длины.
const schema = `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		tips_cents INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS follows (
		follower_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		PRIMARY KEY (follower_id, owner_id)
	);
	CREATE TABLE IF NOT EXISTS bookmarks (
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL REFERENCES items(id),
		PRIMARY KEY (user_id, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_newest ON items(created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_items_top ON items(tips_cents DESC, created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_items_owner_id ON items(owner_id);
`

type SQLiteStorage struct {
	db *sql.DB
}

// Open создает или открывает базу по пути path
func Open(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite допускает только одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) CreateItem(ctx context.Context, item *models.FeedItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, owner_id, title, tips_cents, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Title, item.TipsCents, storage.Timestamp(item.CreatedAt).UnixMicro())
	return err
}

func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*models.FeedItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlq.Columns+` FROM items WHERE id=?`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return item, err
}

func (s *SQLiteStorage) ListItems(ctx context.Context, q storage.Query) ([]models.FeedItem, error) {
	query, args := sqlq.Build("items", q, sqlq.SQLite)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.FeedItem, 0, q.Limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) Follow(ctx context.Context, followerID, ownerID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, owner_id) VALUES (?, ?)`, followerID, ownerID)
	return err
}

func (s *SQLiteStorage) Bookmark(ctx context.Context, userID, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO bookmarks (user_id, item_id) VALUES (?, ?)`, userID, itemID)
	return err
}

func (s *SQLiteStorage) FollowedOwners(ctx context.Context, userID string) ([]string, error) {
	return s.collectIDs(ctx, `SELECT owner_id FROM follows WHERE follower_id=?`, userID)
}

func (s *SQLiteStorage) BookmarkedItems(ctx context.Context, userID string) ([]string, error) {
	return s.collectIDs(ctx, `SELECT item_id FROM bookmarks WHERE user_id=?`, userID)
}

func (s *SQLiteStorage) collectIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*models.FeedItem, error) {
	var item models.FeedItem
	var micros int64
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &item.TipsCents, &micros); err != nil {
		return nil, err
	}
	item.CreatedAt = time.UnixMicro(micros).UTC()
	return &item, nil
}
