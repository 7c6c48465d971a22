// Package feed implements keyset pagination over the content store for the
// gallery, home feed and questions listings.
//
// Pages are consistent only while the sort keys of already returned rows stay
// unchanged. A row whose created_at or tips_cents moves between two page
// fetches may show up twice or not at all; that is accepted, not corrected.
package feed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dylantneal/eng.com-sub003/internal/models"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultPageSize = 12

// Request - входные параметры одной страницы
type Request struct {
	Filter   string
	ViewerID string
	Cursor   string
	// Tiebreak - legacy cursorTiebreak, ранг для курсоров top без встроенного ранга
	Tiebreak string
}

type Paginator struct {
	content   storage.ContentStore
	resolvers Resolvers
	pageSize  int
	log       logrus.FieldLogger
	tracer    trace.Tracer
}

func NewPaginator(content storage.ContentStore, resolvers Resolvers, pageSize int, log logrus.FieldLogger) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if resolvers == nil {
		resolvers = Resolvers{}
	}
	return &Paginator{
		content:   content,
		resolvers: resolvers,
		pageSize:  pageSize,
		log:       log.WithField("component", "feed"),
		tracer:    otel.Tracer("github.com/dylantneal/eng.com-sub003/internal/feed"),
	}
}

// Page возвращает следующую страницу ленты. Делает не больше одного запроса
// к хранилищу контента и не делает ни одного, если ограничение пустое.
func (p *Paginator) Page(ctx context.Context, req Request) (*models.Page, error) {
	filter := ParseFilter(req.Filter)
	sort := filter.Sort()

	ctx, span := p.tracer.Start(ctx, "feed.page", trace.WithAttributes(
		attribute.String("feed.filter", string(filter)),
		attribute.String("feed.sort", sort.String()),
		attribute.Bool("feed.cursor", req.Cursor != ""),
	))
	defer span.End()

	page, err := p.page(ctx, filter, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("feed.items", len(page.Items)),
		attribute.Bool("feed.has_next", page.NextCursor != nil),
	)
	return page, nil
}

func (p *Paginator) page(ctx context.Context, filter Filter, req Request) (*models.Page, error) {
	sort := filter.Sort()
	// +1 строка, чтобы знать, есть ли следующая страница
	q := storage.Query{Sort: sort, Limit: p.pageSize + 1}

	if req.Cursor != "" {
		tiebreak, err := parseTiebreak(sort, req.Tiebreak)
		if err != nil {
			return nil, err
		}
		after, err := DecodeCursor(sort, req.Cursor, tiebreak)
		if err != nil {
			return nil, err
		}
		q.After = after
	}

	if resolve, ok := p.resolvers[filter]; ok {
		restriction, err := resolve(ctx, req.ViewerID)
		if err != nil {
			return nil, err
		}
		if restriction.Empty() {
			p.log.WithField("filter", filter).Debug("empty restriction, skipping content query")
			return models.EmptyPage(), nil
		}
		q.Restriction = restriction
	}

	items, err := p.content.ListItems(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	page := models.EmptyPage()
	if len(items) > p.pageSize {
		items = items[:p.pageSize]
		last := storage.KeysetOf(items[len(items)-1])
		next := EncodeCursor(sort, last)
		page.NextCursor = &next
		if sort == storage.SortTop {
			rank := last.Rank
			page.NextCursorTiebreak = &rank
		}
	}
	page.Items = append(page.Items, items...)

	p.log.WithFields(logrus.Fields{
		"filter":   filter,
		"items":    len(page.Items),
		"has_next": page.NextCursor != nil,
	}).Debug("feed page served")
	return page, nil
}

func parseTiebreak(sort storage.Sort, raw string) (*int64, error) {
	if sort != storage.SortTop || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: tiebreak %q", ErrMalformedCursor, raw)
	}
	return &v, nil
}
