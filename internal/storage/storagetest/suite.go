// Package storagetest holds the behavioural checks every store implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/models"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Fixture returns items with colliding timestamps and tip amounts: i5, ta, tb and tc
// share both created_at and tips_cents.
func Fixture() []models.FeedItem {
	var items []models.FeedItem
	for n := 1; n <= 14; n++ {
		items = append(items, models.FeedItem{
			ID:        fmt.Sprintf("i%d", n),
			OwnerID:   fmt.Sprintf("u%d", n%3),
			Title:     fmt.Sprintf("Проект %d", n),
			TipsCents: int64(n%4) * 100,
			CreatedAt: base.Add(time.Duration(n) * time.Minute),
		})
	}
	for _, id := range []string{"ta", "tb", "tc"} {
		items = append(items, models.FeedItem{
			ID:        id,
			OwnerID:   "u2",
			Title:     "Связка " + id,
			TipsCents: 100,
			CreatedAt: base.Add(5 * time.Minute),
		})
	}
	return items
}

func expected(s storage.Sort, items []models.FeedItem, keep func(models.FeedItem) bool) []string {
	var out []models.FeedItem
	for _, item := range items {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.Before(storage.KeysetOf(out[i]), storage.KeysetOf(out[j]))
	})
	ids := make([]string, len(out))
	for i, item := range out {
		ids[i] = item.ID
	}
	return ids
}

// walk follows keyset pages until a short page and returns the ids in order.
func walk(t *testing.T, store storage.ContentStore, q storage.Query) []string {
	t.Helper()
	ctx := context.Background()

	var ids []string
	for pages := 0; pages < 100; pages++ {
		items, err := store.ListItems(ctx, q)
		require.NoError(t, err)
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		if len(items) < q.Limit {
			return ids
		}
		last := storage.KeysetOf(items[len(items)-1])
		q.After = &last
	}
	t.Fatal("pagination did not terminate")
	return nil
}

// Run seeds content and rel (which may be the same store) and checks keyset paging.
func Run(t *testing.T, content storage.ContentStore, rel storage.RelationshipStore) {
	ctx := context.Background()
	items := Fixture()
	for i := range items {
		require.NoError(t, content.CreateItem(ctx, &items[i]), "Ошибка при создании элемента")
	}

	for _, s := range []storage.Sort{storage.SortNewest, storage.SortTop} {
		for _, limit := range []int{1, 4, 12, 50} {
			t.Run(fmt.Sprintf("%s limit %d", s, limit), func(t *testing.T) {
				got := walk(t, content, storage.Query{Sort: s, Limit: limit})
				assert.Equal(t, expected(s, items, nil), got, "Страницы должны стыковаться без пропусков и повторов")
			})
		}
	}

	t.Run("shared timestamp ordered by id", func(t *testing.T) {
		got := walk(t, content, storage.Query{Sort: storage.SortNewest, Limit: 20})
		var tied []string
		for _, id := range got {
			if id == "i5" || id == "ta" || id == "tb" || id == "tc" {
				tied = append(tied, id)
			}
		}
		assert.Equal(t, []string{"tc", "tb", "ta", "i5"}, tied)
	})

	t.Run("owner restriction", func(t *testing.T) {
		owners := []string{"u1", "u2"}
		got := walk(t, content, storage.Query{
			Sort:        storage.SortNewest,
			Restriction: &storage.Restriction{Field: storage.RestrictOwner, IDs: owners},
			Limit:       3,
		})
		assert.Equal(t, expected(storage.SortNewest, items, func(item models.FeedItem) bool {
			return item.OwnerID == "u1" || item.OwnerID == "u2"
		}), got)
	})

	t.Run("item restriction", func(t *testing.T) {
		got := walk(t, content, storage.Query{
			Sort:        storage.SortTop,
			Restriction: &storage.Restriction{Field: storage.RestrictItem, IDs: []string{"i2", "tb", "i14"}},
			Limit:       2,
		})
		assert.Equal(t, []string{"i14", "i2", "tb"}, got)
	})

	t.Run("relationships", func(t *testing.T) {
		owners, err := rel.FollowedOwners(ctx, "viewer")
		require.NoError(t, err)
		assert.Empty(t, owners)

		require.NoError(t, rel.Follow(ctx, "viewer", "u1"))
		require.NoError(t, rel.Follow(ctx, "viewer", "u2"))
		require.NoError(t, rel.Follow(ctx, "viewer", "u2"))
		require.NoError(t, rel.Bookmark(ctx, "viewer", "i3"))

		owners, err = rel.FollowedOwners(ctx, "viewer")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1", "u2"}, owners)

		bookmarks, err := rel.BookmarkedItems(ctx, "viewer")
		require.NoError(t, err)
		assert.Equal(t, []string{"i3"}, bookmarks)
	})
}
