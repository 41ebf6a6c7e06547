package query

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/mymovies/internal/domain"
)

// ErrUnknownField 仅在 Options.StrictFields=true 时返回：查询里出现了未注册的字段代码。
var ErrUnknownField = errors.New("unknown search field")

// Options 控制解析行为。零值即兼容模式（未知字段代码按标题字面量匹配）。
type Options struct {
	StrictFields bool
}

// Expr 是一个已解析的查询片段（bang 表达式或隐式标题词）。
type Expr struct {
	// Field 是规范化后的字段名（title/actors/year/...）。
	Field string
	Value string
	// Literal=true 表示来自未知字段代码的兜底：整段 token 作为标题子串匹配。
	Literal bool

	match func(domain.Movie) bool
}

// Query 是若干 Expr 的 AND 组合；零值匹配所有记录。
type Query struct {
	Exprs []Expr
}

// Match 判断单条记录是否满足全部表达式。
func (q Query) Match(m domain.Movie) bool {
	for _, e := range q.Exprs {
		if !e.match(m) {
			return false
		}
	}
	return true
}

// Empty 表示查询不含任何表达式（空串/纯空白）。
func (q Query) Empty() bool { return len(q.Exprs) == 0 }

// Filter 返回 movies 中满足 q 的记录，保持原始顺序。
func Filter(movies []domain.Movie, q Query) []domain.Movie {
	out := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if q.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// Match 用兼容模式解析 raw 并过滤 movies。兼容模式下解析永不失败。
func Match(movies []domain.Movie, raw string) []domain.Movie {
	q, _ := Parse(raw, Options{})
	return Filter(movies, q)
}

// Parse 把原始查询串解析为 Query。
//
// 语法：
// - token 以空白分隔；形如 <code>:<value> 且 code 全为 ASCII 字母的 token 是 bang 表达式
// - 第一个 bang 之前的普通 token 合并为一个隐式标题词
// - bang 之后的普通 token 续接到该 bang 的值上（单空格连接），所以 "a:Tom Hanks" 是一个演员条件
// - 已注册字段的空值（"y:"）不匹配任何记录
// - 未知字段代码：整段 token 作为标题子串（兼容模式），或返回 ErrUnknownField（严格模式）
func Parse(raw string, opts Options) (Query, error) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return Query{}, nil
	}

	var (
		exprs []Expr
		cur   *pending
	)
	for _, tok := range tokens {
		code, val, ok := splitBang(tok)
		if !ok {
			if cur == nil {
				cur = &pending{field: fields["title"]}
			}
			cur.parts = append(cur.parts, tok)
			continue
		}

		if cur != nil {
			exprs = append(exprs, cur.expr())
		}

		f, known := fields[strings.ToLower(code)]
		if !known {
			if opts.StrictFields {
				return Query{}, fmt.Errorf("%w: %q", ErrUnknownField, code)
			}
			cur = &pending{field: fields["title"], literal: true, parts: []string{tok}}
			continue
		}
		cur = &pending{field: f}
		if val != "" {
			cur.parts = append(cur.parts, val)
		}
	}
	if cur != nil {
		exprs = append(exprs, cur.expr())
	}
	return Query{Exprs: exprs}, nil
}

type pending struct {
	field   *field
	literal bool
	parts   []string
}

func (p *pending) expr() Expr {
	v := strings.Join(p.parts, " ")
	e := Expr{Field: p.field.name, Value: v, Literal: p.literal}
	if v == "" {
		e.match = func(domain.Movie) bool { return false }
	} else {
		e.match = p.field.build(v)
	}
	return e
}

// splitBang 判断 tok 是否为 <letters>:<value>。
func splitBang(tok string) (code, val string, ok bool) {
	i := strings.IndexByte(tok, ':')
	if i <= 0 {
		return "", "", false
	}
	code = tok[:i]
	for j := 0; j < len(code); j++ {
		c := code[j]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", "", false
		}
	}
	return code, tok[i+1:], true
}

// field 把一个字段代码映射到谓词构造函数。
// build 在解析阶段只调用一次，便于把值的解析（例如年份）前置。
type field struct {
	name     string
	desc     string
	synonyms []string
	build    func(value string) func(domain.Movie) bool
}

var fields = map[string]*field{
	"title": {
		name:     "title",
		desc:     "title contains the value (same as a bare search term)",
		synonyms: []string{"t"},
		build: func(v string) func(domain.Movie) bool {
			return func(m domain.Movie) bool { return containsFold(m.Title, v) }
		},
	},
	"actors": {
		name:     "actors",
		desc:     "any actor name contains the value, e.g. a:Tom Hanks",
		synonyms: []string{"a", "actor"},
		build: func(v string) func(domain.Movie) bool {
			return func(m domain.Movie) bool {
				for _, a := range m.Actors {
					if containsFold(a, v) {
						return true
					}
				}
				return false
			}
		},
	},
	"year": {
		name:     "year",
		desc:     "release year equals the value, e.g. y:1994",
		synonyms: []string{"y"},
		build: func(v string) func(domain.Movie) bool {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return func(domain.Movie) bool { return false }
			}
			return func(m domain.Movie) bool { return m.Year != nil && *m.Year == n }
		},
	},
	"rating": {
		name:     "rating",
		desc:     "rating equals the value, e.g. r:8.5",
		synonyms: []string{"r"},
		build: func(v string) func(domain.Movie) bool {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(f) {
				return func(domain.Movie) bool { return false }
			}
			return func(m domain.Movie) bool {
				return m.Rating != nil && math.Abs(*m.Rating-f) < 1e-9
			}
		},
	},
	"director": {
		name:     "director",
		desc:     "director contains the value",
		synonyms: []string{"d"},
		build: func(v string) func(domain.Movie) bool {
			return func(m domain.Movie) bool { return containsFold(m.Director, v) }
		},
	},
	"genre": {
		name:     "genre",
		desc:     "genre contains the value",
		synonyms: []string{"g"},
		build: func(v string) func(domain.Movie) bool {
			return func(m domain.Movie) bool { return containsFold(m.Genre, v) }
		},
	},
}

func init() {
	// 同义词指向同一个 *field；先收集再写入，避免边遍历边修改 map。
	alias := map[string]*field{}
	for _, f := range fields {
		for _, s := range f.synonyms {
			alias[s] = f
		}
	}
	for s, f := range alias {
		fields[s] = f
	}
}

// Usage 返回可读的字段代码说明（每行一个字段，按名称排序）。
func Usage() []string {
	seen := map[*field]struct{}{}
	var list []*field
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		list = append(list, f)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })

	out := make([]string, 0, len(list))
	for _, f := range list {
		codes := append([]string(nil), f.synonyms...)
		codes = append(codes, f.name)
		out = append(out, fmt.Sprintf("%s: %s", strings.Join(codes, "/"), f.desc))
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
