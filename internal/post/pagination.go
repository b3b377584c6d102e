package post

import "math"

const (
	// DefaultPage はページ番号の既定値。
	DefaultPage = 1
	// DefaultPageLimit は1ページあたりの既定件数。
	DefaultPageLimit = 10
	// MaxPageLimit は1ページあたりの最大件数。
	MaxPageLimit = 100
)

// Pagination はページング結果のメタデータ。
type Pagination struct {
	TotalPosts      int64
	TotalPages      int
	CurrentPage     int
	Limit           int
	HasNextPage     bool
	HasPreviousPage bool
}

func newPagination(total int64, page, limit int) Pagination {
	totalPages := calcTotalPages(total, limit)
	return Pagination{
		TotalPosts:      total,
		TotalPages:      totalPages,
		CurrentPage:     page,
		Limit:           limit,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// calcTotalPages は ceil(total/limit) を返す。件数0なら0ページ。
func calcTotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	pages := total / l
	if total%l != 0 {
		pages++
	}
	maxInt := int64(^uint(0) >> 1)
	if pages > maxInt {
		return int(maxInt)
	}
	return int(pages)
}

// pageInRange は (page-1)*limit が int に収まるかを返す。
func pageInRange(page, limit int) bool {
	if page <= 1 || limit <= 0 {
		return true
	}
	return page-1 <= math.MaxInt/limit
}

// offsetFor はページ番号からOFFSETを計算する。
// 桁あふれする組み合わせは math.MaxInt に丸める。
func offsetFor(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if !pageInRange(page, limit) {
		return math.MaxInt
	}
	return (page - 1) * limit
}
