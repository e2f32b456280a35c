package models

// Page is the server's pagination envelope.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// PageMeta is the pagination state of a cached view, without the items.
type PageMeta struct {
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
	First         bool
	Last          bool
}

// Meta extracts the pagination state from a page envelope.
func (p Page[T]) Meta() PageMeta {
	return PageMeta{
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
	}
}

// EmptyPageMeta is the state of a view that has never been fetched.
func EmptyPageMeta(size int) PageMeta {
	return PageMeta{Size: size, First: true, Last: true}
}
