package calendar

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one page of items.
type Page[T any] struct {
	Items    []T
	Page     int // 1-based
	PageSize int
	HasNext  bool
	HasPrev  bool
	Total    int
}

// NormalizePage clamps page/size to sane values: page >= 1,
// 1 <= size <= MaxPageSize.
func NormalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Offset returns the row offset of a normalized page.
func Offset(page, size int) int {
	page, size = NormalizePage(page, size)
	return (page - 1) * size
}

// PageOf wraps an already-fetched page of a larger result set.
func PageOf[T any](items []T, page, pageSize int, total int64) Page[T] {
	page, pageSize = NormalizePage(page, pageSize)
	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  int64(page*pageSize) < total,
		HasPrev:  page > 1,
		Total:    int(total),
	}
}
