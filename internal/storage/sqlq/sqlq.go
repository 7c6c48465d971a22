// Package sqlq renders a storage.Query into a single keyset-paginated SELECT.
//
// The range predicate is a disjunction of conjunctions over the sort keys,
// not a single "<" on created_at: created_at and tips_cents are not unique,
// and a one-column cursor drops or repeats rows that share a value.
package sqlq

import (
	"fmt"
	"strings"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/storage"
)

const Columns = "id, owner_id, title, tips_cents, created_at"

// Dialect describes how a driver spells placeholders and time values.
type Dialect struct {
	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
	// ArrayAny renders membership as "col = ANY($n)" with a single slice argument.
	ArrayAny bool
	// Time converts a timestamp into the stored representation.
	Time func(time.Time) any
}

var (
	Postgres = Dialect{
		Numbered: true,
		ArrayAny: true,
		Time:     func(t time.Time) any { return t },
	}
	SQLite = Dialect{
		Time: func(t time.Time) any { return t.UnixMicro() },
	}
)

type builder struct {
	d    Dialect
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	if b.d.Numbered {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

func (b *builder) in(column string, ids []string) string {
	if b.d.ArrayAny {
		return column + " = ANY(" + b.arg(ids) + ")"
	}
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = b.arg(id)
	}
	return column + " IN (" + strings.Join(marks, ", ") + ")"
}

// Build returns the statement and its arguments for table.
// An empty restriction must be short-circuited by the caller; it renders as a
// predicate that matches nothing.
func Build(table string, q storage.Query, d Dialect) (string, []any) {
	b := &builder{d: d}
	var where []string

	if r := q.Restriction; r != nil {
		column := "id"
		if r.Field == storage.RestrictOwner {
			column = "owner_id"
		}
		if len(r.IDs) == 0 {
			where = append(where, "1 = 0")
		} else {
			where = append(where, b.in(column, r.IDs))
		}
	}

	if k := q.After; k != nil {
		where = append(where, b.keyset(q.Sort, *k))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + Columns + " FROM " + table)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + OrderBy(q.Sort))
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + b.arg(q.Limit))
	}
	return sb.String(), b.args
}

func (b *builder) keyset(s storage.Sort, k storage.Keyset) string {
	if s == storage.SortTop {
		return fmt.Sprintf("(tips_cents < %s OR (tips_cents = %s AND created_at < %s) OR (tips_cents = %s AND created_at = %s AND id < %s))",
			b.arg(k.Rank),
			b.arg(k.Rank), b.arg(b.d.Time(k.CreatedAt)),
			b.arg(k.Rank), b.arg(b.d.Time(k.CreatedAt)), b.arg(k.ID))
	}
	return fmt.Sprintf("(created_at < %s OR (created_at = %s AND id < %s))",
		b.arg(b.d.Time(k.CreatedAt)),
		b.arg(b.d.Time(k.CreatedAt)), b.arg(k.ID))
}

func OrderBy(s storage.Sort) string {
	if s == storage.SortTop {
		return "tips_cents DESC, created_at DESC, id DESC"
	}
	return "created_at DESC, id DESC"
}
