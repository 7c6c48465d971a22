package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/models"
)

var ErrNotFound = errors.New("item not found")

// ContentStore - хранилище элементов ленты
type ContentStore interface {
	ListItems(ctx context.Context, q Query) ([]models.FeedItem, error)
	CreateItem(ctx context.Context, item *models.FeedItem) error
	Close() error
}

// RelationshipStore отдает множества id для фильтров following и bookmarks
type RelationshipStore interface {
	FollowedOwners(ctx context.Context, userID string) ([]string, error)
	BookmarkedItems(ctx context.Context, userID string) ([]string, error)
	Follow(ctx context.Context, followerID, ownerID string) error
	Bookmark(ctx context.Context, userID, itemID string) error
	Close() error
}

// Timestamp приводит время к точности, которую хранят все бэкенды (микросекунды, UTC).
// Без этого курсор из памяти и строка из Postgres не совпадут при сравнении на равенство.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
