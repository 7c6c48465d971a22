package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dylantneal/eng.com-sub003/internal/models"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
	"github.com/dylantneal/eng.com-sub003/internal/storage/sqlq"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT COLLATE "C" PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		tips_cents BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS follows (
		follower_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (follower_id, owner_id)
	);
	CREATE TABLE IF NOT EXISTS bookmarks (
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL REFERENCES items(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_newest ON items(created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_items_top ON items(tips_cents DESC, created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_items_owner_id ON items(owner_id);
`

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New открывает пул соединений с трассировкой запросов и создает схему
func New(ctx context.Context, dsn string) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) CreateItem(ctx context.Context, item *models.FeedItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO items (id, owner_id, title, tips_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.OwnerID, item.Title, item.TipsCents, storage.Timestamp(item.CreatedAt))
	return err
}

func (s *PostgresStorage) GetItem(ctx context.Context, id string) (*models.FeedItem, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sqlq.Columns+` FROM items WHERE id=$1`, id)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return item, err
}

func (s *PostgresStorage) ListItems(ctx context.Context, q storage.Query) ([]models.FeedItem, error) {
	query, args := sqlq.Build("items", q, sqlq.Postgres)

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *PostgresStorage) Follow(ctx context.Context, followerID, ownerID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO follows (follower_id, owner_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, followerID, ownerID)
	return err
}

func (s *PostgresStorage) Bookmark(ctx context.Context, userID, itemID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookmarks (user_id, item_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, itemID)
	return err
}

func (s *PostgresStorage) FollowedOwners(ctx context.Context, userID string) ([]string, error) {
	return s.collectIDs(ctx, `SELECT owner_id FROM follows WHERE follower_id=$1`, userID)
}

func (s *PostgresStorage) BookmarkedItems(ctx context.Context, userID string) ([]string, error) {
	return s.collectIDs(ctx, `SELECT item_id FROM bookmarks WHERE user_id=$1`, userID)
}

func (s *PostgresStorage) collectIDs(ctx context.Context, query string, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func scanItem(row pgx.Row) (*models.FeedItem, error) {
	var item models.FeedItem
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &item.TipsCents, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.CreatedAt = storage.Timestamp(item.CreatedAt)
	return &item, nil
}
