package feed

import (
	"context"
	"fmt"

	"github.com/dylantneal/eng.com-sub003/internal/storage"
)

type Filter string

const (
	FilterNewest    Filter = "newest"
	FilterTop       Filter = "top"
	FilterFollowing Filter = "following"
	FilterBookmarks Filter = "bookmarks"
)

// ParseFilter never fails: unknown values behave as newest.
func ParseFilter(raw string) Filter {
	switch f := Filter(raw); f {
	case FilterNewest, FilterTop, FilterFollowing, FilterBookmarks:
		return f
	default:
		return FilterNewest
	}
}

func (f Filter) Sort() storage.Sort {
	if f == FilterTop {
		return storage.SortTop
	}
	return storage.SortNewest
}

// Personal reports whether the page depends on who is asking.
func (f Filter) Personal() bool {
	return f == FilterFollowing || f == FilterBookmarks
}

// Resolver turns a filter into an id restriction for the viewer.
// A nil restriction means the whole content set.
type Resolver func(ctx context.Context, viewerID string) (*storage.Restriction, error)

// Resolvers maps filters to the restriction they need. Filters without an entry are unrestricted.
type Resolvers map[Filter]Resolver

// RelationshipResolvers builds the following and bookmarks resolvers over rel.
func RelationshipResolvers(rel storage.RelationshipStore) Resolvers {
	return Resolvers{
		FilterFollowing: restrictBy(storage.RestrictOwner, rel.FollowedOwners),
		FilterBookmarks: restrictBy(storage.RestrictItem, rel.BookmarkedItems),
	}
}

func restrictBy(field storage.RestrictionField, lookup func(context.Context, string) ([]string, error)) Resolver {
	return func(ctx context.Context, viewerID string) (*storage.Restriction, error) {
		if viewerID == "" {
			return nil, fmt.Errorf("%w: viewer required", ErrInvalidFilter)
		}
		ids, err := lookup(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return &storage.Restriction{Field: field, IDs: ids}, nil
	}
}
