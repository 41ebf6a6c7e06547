package stats

import (
	"math"
	"math/rand"
	"sort"

	"github.com/John-Robertt/mymovies/internal/domain"
)

// ratings 收集存在的评分（保持输入顺序）。
func ratings(movies []domain.Movie) []float64 {
	out := make([]float64, 0, len(movies))
	for _, m := range movies {
		if m.Rating != nil {
			out = append(out, *m.Rating)
		}
	}
	return out
}

// Average 返回存在评分的算术平均；没有任何评分时返回 domain.ErrEmptyDataset。
func Average(movies []domain.Movie) (float64, error) {
	rs := ratings(movies)
	if len(rs) == 0 {
		return 0, domain.ErrEmptyDataset
	}
	var sum float64
	for _, r := range rs {
		sum += r
	}
	return sum / float64(len(rs)), nil
}

// Median 返回存在评分的中位数（偶数个取中间两个的平均）。
func Median(movies []domain.Movie) (float64, error) {
	rs := ratings(movies)
	if len(rs) == 0 {
		return 0, domain.ErrEmptyDataset
	}
	sort.Float64s(rs)
	n := len(rs)
	if n%2 == 1 {
		return rs[n/2], nil
	}
	return (rs[n/2-1] + rs[n/2]) / 2, nil
}

// RandomPick 均匀随机挑选一条记录。rnd 为 nil 时使用全局随机源。
func RandomPick(movies []domain.Movie, rnd *rand.Rand) (domain.Movie, error) {
	if len(movies) == 0 {
		return domain.Movie{}, domain.ErrEmptyDataset
	}
	var i int
	if rnd != nil {
		i = rnd.Intn(len(movies))
	} else {
		i = rand.Intn(len(movies))
	}
	return movies[i], nil
}

// Summary 是统计页展示的全部数据。
type Summary struct {
	Total  int     `json:"total"`
	Rated  int     `json:"rated"`
	Avg    float64 `json:"average"`
	Median float64 `json:"median"`

	Best       []string `json:"best"`
	BestRating float64  `json:"best_rating"`

	Worst       []string `json:"worst"`
	WorstRating float64  `json:"worst_rating"`
}

// Summarize 汇总评分统计。
//
// 最高/最低分按保留两位小数后的值比较，并列的标题全部列出（按字典序）。
func Summarize(movies []domain.Movie) (Summary, error) {
	rated := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if m.Rating != nil {
			rated = append(rated, m)
		}
	}
	if len(rated) == 0 {
		return Summary{Total: len(movies)}, domain.ErrEmptyDataset
	}

	avg, _ := Average(rated)
	med, _ := Median(rated)
	s := Summary{
		Total:  len(movies),
		Rated:  len(rated),
		Avg:    avg,
		Median: med,
	}

	hi, lo := math.Inf(-1), math.Inf(1)
	for _, m := range rated {
		r := round2(*m.Rating)
		hi = math.Max(hi, r)
		lo = math.Min(lo, r)
	}
	for _, m := range rated {
		r := round2(*m.Rating)
		if r == hi {
			s.Best = append(s.Best, m.Title)
		}
		if r == lo {
			s.Worst = append(s.Worst, m.Title)
		}
	}
	sort.Strings(s.Best)
	sort.Strings(s.Worst)
	s.BestRating, s.WorstRating = hi, lo
	return s, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
