package storage

import (
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/models"
)

// Sort - порядок выдачи. Все поля сортируются по убыванию, id - последний tie-break.
type Sort int

const (
	SortNewest Sort = iota
	SortTop
)

func (s Sort) String() string {
	if s == SortTop {
		return "top"
	}
	return "newest"
}

type RestrictionField int

const (
	RestrictOwner RestrictionField = iota + 1
	RestrictItem
)

// Restriction ограничивает выборку множеством owner_id или id
type Restriction struct {
	Field RestrictionField
	IDs   []string
}

func (r *Restriction) Empty() bool {
	return r != nil && len(r.IDs) == 0
}

func (r *Restriction) contains(set map[string]struct{}, item models.FeedItem) bool {
	key := item.ID
	if r.Field == RestrictOwner {
		key = item.OwnerID
	}
	_, ok := set[key]
	return ok
}

// Keyset - значения ключей сортировки последней отданной строки
type Keyset struct {
	Rank      int64
	CreatedAt time.Time
	ID        string
}

func KeysetOf(item models.FeedItem) Keyset {
	return Keyset{Rank: item.TipsCents, CreatedAt: Timestamp(item.CreatedAt), ID: item.ID}
}

// Before сообщает, идет ли a раньше b в порядке s
func (s Sort) Before(a, b Keyset) bool {
	if s == SortTop && a.Rank != b.Rank {
		return a.Rank > b.Rank
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Query - одна ограниченная выборка страницы
type Query struct {
	Sort        Sort
	Restriction *Restriction
	After       *Keyset
	Limit       int
}

// Filter применяет ограничение и keyset-предикат к уже загруженным элементам.
// Используется хранилищами без SQL.
func (q Query) Filter(items []models.FeedItem) []models.FeedItem {
	var set map[string]struct{}
	if q.Restriction != nil {
		set = make(map[string]struct{}, len(q.Restriction.IDs))
		for _, id := range q.Restriction.IDs {
			set[id] = struct{}{}
		}
	}

	out := make([]models.FeedItem, 0, len(items))
	for _, item := range items {
		if set != nil && !q.Restriction.contains(set, item) {
			continue
		}
		if q.After != nil && !q.Sort.Before(*q.After, KeysetOf(item)) {
			continue
		}
		out = append(out, item)
	}
	return out
}
