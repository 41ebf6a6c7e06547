package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/John-Robertt/mymovies/internal/domain"
)

// DefaultPageSize 是未配置/非法 page size 时的回退值。
const DefaultPageSize = 10

// Key 是排序字段。
type Key string

const (
	ByRating Key = "rating"
	ByYear   Key = "year"
)

// ParseKey 解析排序字段（大小写不敏感）。
func ParseKey(s string) (Key, error) {
	switch Key(strings.ToLower(strings.TrimSpace(s))) {
	case ByRating:
		return ByRating, nil
	case ByYear:
		return ByYear, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want rating or year)", s)
	}
}

// Order 是排序方向；零值为降序（最高分/最新在前）。
type Order int

const (
	Desc Order = iota
	Asc
)

// Sort 返回按 key 排序后的新切片，不修改输入。
//
// 缺少该字段的记录总在末尾；相等键保持输入顺序（稳定排序）。
func Sort(movies []domain.Movie, key Key, order Order) []domain.Movie {
	out := append([]domain.Movie(nil), movies...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := keyOf(out[i], key)
		b, bok := keyOf(out[j], key)
		switch {
		case !aok:
			return false
		case !bok:
			return true
		case order == Asc:
			return a < b
		default:
			return a > b
		}
	})
	return out
}

func keyOf(m domain.Movie, key Key) (float64, bool) {
	switch key {
	case ByRating:
		if m.Rating == nil {
			return 0, false
		}
		return *m.Rating, true
	case ByYear:
		if m.Year == nil {
			return 0, false
		}
		return float64(*m.Year), true
	default:
		return 0, false
	}
}

// Page 是一个分页窗口。Number 从 1 开始。
type Page struct {
	Number int
	Total  int
	// Offset 是 Items[0] 在完整列表中的下标，用于展示连续编号。
	Offset int
	Items  []domain.Movie
}

// Paginate 把列表切成固定大小的窗口；纯切片操作，可随时从任意页重新开始。
// 空列表返回 nil。
func Paginate(movies []domain.Movie, size int) []Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if len(movies) == 0 {
		return nil
	}
	total := (len(movies) + size - 1) / size
	pages := make([]Page, 0, total)
	for i := 0; i < total; i++ {
		lo := i * size
		hi := lo + size
		if hi > len(movies) {
			hi = len(movies)
		}
		pages = append(pages, Page{
			Number: i + 1,
			Total:  total,
			Offset: lo,
			Items:  movies[lo:hi],
		})
	}
	return pages
}
