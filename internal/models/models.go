package models

import "time"

// FeedItem - проекция контента, по которой работает пагинатор ленты
type FeedItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	TipsCents int64     `json:"tipsCents"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page - одна страница ленты. NextCursor == nil означает конец выборки.
type Page struct {
	Items              []FeedItem `json:"items"`
	NextCursor         *string    `json:"nextCursor"`
	NextCursorTiebreak *int64     `json:"nextCursorTiebreak"`
}

// EmptyPage возвращает пустую, но валидную страницу
func EmptyPage() *Page {
	return &Page{Items: []FeedItem{}}
}
