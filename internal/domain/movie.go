package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinRating = 0.0
	MaxRating = 10.0
)

// Movie 是目录中唯一的实体。
//
// 约束：
// - Title 非空（去空白后）；标题是事实上的自然键，但允许重复
// - Year/Rating 用指针表达“缺失”，缺失与 0 永远不混用
// - Rating 存在时必须落在 [0, 10]
type Movie struct {
	Title    string   `json:"title"`
	Year     *int     `json:"year,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Actors   []string `json:"actors,omitempty"`
	Plot     string   `json:"plot,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Director string   `json:"director,omitempty"`
}

// ErrInvalidMovie 是 Validate 失败时的哨兵错误（用 errors.Is 判断）。
var ErrInvalidMovie = errors.New("invalid movie")

// Validate 校验不变量；不修改记录本身。
func (m Movie) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidMovie)
	}
	if m.Rating != nil && (math.IsNaN(*m.Rating) || *m.Rating < MinRating || *m.Rating > MaxRating) {
		return fmt.Errorf("%w: rating %.1f outside [0, 10]", ErrInvalidMovie, *m.Rating)
	}
	if m.Year != nil && (*m.Year < 1 || *m.Year > 9999) {
		return fmt.Errorf("%w: year %d is not a valid release year", ErrInvalidMovie, *m.Year)
	}
	return nil
}

// Clone 返回深拷贝：可选字段与 Actors 都不与原记录共享底层存储。
func (m Movie) Clone() Movie {
	c := m
	if m.Year != nil {
		c.Year = Int(*m.Year)
	}
	if m.Rating != nil {
		c.Rating = Float(*m.Rating)
	}
	if m.Actors != nil {
		c.Actors = append([]string(nil), m.Actors...)
	}
	return c
}

// Int / Float 构造可选字段的值。
func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }

// SplitActors 把逗号分隔的演员串拆成有序列表（去空白、丢弃空项与 "N/A"）。
func SplitActors(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "N/A") {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
