package calendar

// DefaultPageSize: размер страницы, если клиент его не передал.
const DefaultPageSize = 100

// MaxPageSize ограничивает размер страницы сверху.
const MaxPageSize = 500

// Page описывает одну страницу элементов. Page нумеруется с 1.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	HasPrev  bool `json:"hasPrev"`
	Total    int  `json:"total"`
}

// PageBounds приводит page/pageSize к допустимым значениям и считает смещение
// для выборки из хранилища.
func PageBounds(page, pageSize int) (normPage, normSize, offset int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize, (page - 1) * pageSize
}

// NewPage собирает страницу из уже выбранных items и общего числа записей.
func NewPage[T any](items []T, page, pageSize, total int) Page[T] {
	page, pageSize, offset := PageBounds(page, pageSize)
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  offset+len(items) < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}

// Paginate возвращает срез items для указанной страницы и метаданные.
// page нумеруется с 1; некорректные значения заменяются дефолтами.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)
	page, pageSize, start := PageBounds(page, pageSize)

	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return NewPage(items[start:end], page, pageSize, total)
}

// MapPage переводит элементы страницы, сохраняя метаданные.
func MapPage[T, U any](p Page[T], fn func(*T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for i := range p.Items {
		out = append(out, fn(&p.Items[i]))
	}
	return Page[U]{
		Items:    out,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasNext:  p.HasNext,
		HasPrev:  p.HasPrev,
		Total:    p.Total,
	}
}
