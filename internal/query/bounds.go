package query

import "github.com/John-Robertt/mymovies/internal/domain"

// Bounds 是评分/年份的闭区间过滤条件；nil 表示该端不设限。
//
// 某一轴只要设了任一端，缺少该字段的记录就会被排除。
type Bounds struct {
	MinRating *float64
	MaxRating *float64
	MinYear   *int
	MaxYear   *int
}

func (b Bounds) ratingSet() bool { return b.MinRating != nil || b.MaxRating != nil }
func (b Bounds) yearSet() bool   { return b.MinYear != nil || b.MaxYear != nil }

// Contains 判断单条记录是否落在区间内。
func (b Bounds) Contains(m domain.Movie) bool {
	if b.ratingSet() {
		if m.Rating == nil {
			return false
		}
		if b.MinRating != nil && *m.Rating < *b.MinRating {
			return false
		}
		if b.MaxRating != nil && *m.Rating > *b.MaxRating {
			return false
		}
	}
	if b.yearSet() {
		if m.Year == nil {
			return false
		}
		if b.MinYear != nil && *m.Year < *b.MinYear {
			return false
		}
		if b.MaxYear != nil && *m.Year > *b.MaxYear {
			return false
		}
	}
	return true
}

// Apply 返回满足区间的记录，保持原始顺序。
func (b Bounds) Apply(movies []domain.Movie) []domain.Movie {
	out := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if b.Contains(m) {
			out = append(out, m)
		}
	}
	return out
}
