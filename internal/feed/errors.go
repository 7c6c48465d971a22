package feed

import "errors"

var (
	// ErrInvalidFilter - фильтру нужен пользователь, а его нет
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrMalformedCursor - курсор не декодируется или не подходит к режиму сортировки
	ErrMalformedCursor = errors.New("malformed cursor")
	// ErrStoreUnavailable - запрос к хранилищу контента или связей не удался; не повторяется
	ErrStoreUnavailable = errors.New("store unavailable")
)
