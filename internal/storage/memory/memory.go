package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dylantneal/eng.com-sub003/internal/models"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
)

// MemoryStorage держит элементы и связи в памяти процесса.
// Подходит для локального запуска и тестов.
type MemoryStorage struct {
	items     map[string]models.FeedItem
	follows   map[string][]string
	bookmarks map[string][]string
	mu        sync.RWMutex
}

func New() *MemoryStorage {
	return &MemoryStorage{
		items:     make(map[string]models.FeedItem),
		follows:   make(map[string][]string),
		bookmarks: make(map[string][]string),
	}
}

func (s *MemoryStorage) CreateItem(ctx context.Context, item *models.FeedItem) error {
	if item.ID == "" {
		return errors.New("item id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *item
	stored.CreatedAt = storage.Timestamp(item.CreatedAt)
	s.items[item.ID] = stored
	return nil
}

func (s *MemoryStorage) GetItem(ctx context.Context, id string) (*models.FeedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &item, nil
}

func (s *MemoryStorage) ListItems(ctx context.Context, q storage.Query) ([]models.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]models.FeedItem, 0, len(s.items))
	for _, item := range s.items {
		all = append(all, item)
	}
	s.mu.RUnlock()

	// Сортировка по ключам режима, затем ограничение и курсор
	sort.Slice(all, func(i, j int) bool {
		return q.Sort.Before(storage.KeysetOf(all[i]), storage.KeysetOf(all[j]))
	})

	result := q.Filter(all)
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *MemoryStorage) Follow(ctx context.Context, followerID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.follows[followerID] = appendUnique(s.follows[followerID], ownerID)
	return nil
}

func (s *MemoryStorage) Bookmark(ctx context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks[userID] = appendUnique(s.bookmarks[userID], itemID)
	return nil
}

func (s *MemoryStorage) FollowedOwners(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.follows[userID]...), nil
}

func (s *MemoryStorage) BookmarkedItems(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.bookmarks[userID]...), nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]models.FeedItem)
	s.follows = make(map[string][]string)
	s.bookmarks = make(map[string][]string)
	return nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
