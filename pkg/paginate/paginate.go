// Package paginate windows ordered sequences into fixed-size pages.
package paginate

// Page sizes used by the wizard.
const (
	TemplatePageSize = 8
	ValuePageSize    = 10
)

// Window is one page of a sequence.
type Window[T any] struct {
	Page     int // clamped into [0, LastPage]
	LastPage int
	Items    []T
}

// HasPrev reports whether a previous page exists.
func (w Window[T]) HasPrev() bool { return w.Page > 0 }

// HasNext reports whether a next page exists.
func (w Window[T]) HasNext() bool { return w.Page < w.LastPage }

// LastPage returns max(0, ceil(count/size) - 1).
func LastPage(count, size int) int {
	if size <= 0 {
		panic("paginate: page size must be positive")
	}
	if count <= 0 {
		return 0
	}
	return (count+size-1)/size - 1
}

// Clamp forces page into [0, LastPage(count, size)].
func Clamp(page, count, size int) int {
	last := LastPage(count, size)
	if page < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}

// Paginate returns the clamped page of items. It never fails for size > 0;
// an empty sequence yields page 0 with no items.
func Paginate[T any](items []T, page, size int) Window[T] {
	page = Clamp(page, len(items), size)
	start := page * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return Window[T]{
		Page:     page,
		LastPage: LastPage(len(items), size),
		Items:    items[start:end:end],
	}
}
