package domain

// Page is one slice of a paginated collection. Number is 0-based.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

// NewPage builds a page and derives TotalPages from total and size.
func NewPage[T any](content []T, total int64, number, size int) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		Size:          size,
		Number:        number,
	}
}

// EmptyPage is the shape shown after a failed fetch.
func EmptyPage[T any](size int) Page[T] {
	return NewPage[T](nil, 0, 0, size)
}
