package feed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/storage"
)

const cursorVersion = 1

// cursor - структурированная запись вместо склейки полей через разделитель
type cursor struct {
	Version   int    `json:"v"`
	Sort      string `json:"s"`
	CreatedAt string `json:"t"`
	ID        string `json:"i"`
	Rank      *int64 `json:"m,omitempty"`
}

// EncodeCursor кодирует ключи последней строки страницы для режима s
func EncodeCursor(s storage.Sort, k storage.Keyset) string {
	c := cursor{
		Version:   cursorVersion,
		Sort:      s.String(),
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        k.ID,
	}
	if s == storage.SortTop {
		rank := k.Rank
		c.Rank = &rank
	}
	// Маршалинг структуры из строк и чисел не падает
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor разбирает курсор для режима s. Для top ранг можно передать
// отдельно (legacy-параметр cursorTiebreak), если в курсоре его нет.
func DecodeCursor(s storage.Sort, raw string, tiebreak *int64) (*storage.Keyset, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}

	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	if c.Version != cursorVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedCursor, c.Version)
	}
	if c.Sort != s.String() {
		return nil, fmt.Errorf("%w: cursor for %q used with %q", ErrMalformedCursor, c.Sort, s)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedCursor)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}

	k := &storage.Keyset{CreatedAt: storage.Timestamp(createdAt), ID: c.ID}
	if s == storage.SortTop {
		switch {
		case c.Rank != nil:
			k.Rank = *c.Rank
		case tiebreak != nil:
			k.Rank = *tiebreak
		default:
			return nil, fmt.Errorf("%w: missing rank", ErrMalformedCursor)
		}
	}
	return k, nil
}
