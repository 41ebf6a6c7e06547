package nfo

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/John-Robertt/mymovies/internal/domain"
)

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title     string `xml:"title"`
	SortTitle string `xml:"sorttitle"`
	Year      int    `xml:"year,omitempty"`
	Premiered string `xml:"premiered,omitempty"`

	Ratings *ratings `xml:"ratings,omitempty"`
	// UserRating 是 Kodi 的 0-10 整数个人评分。
	UserRating int `xml:"userrating,omitempty"`

	Plot     string   `xml:"plot,omitempty"`
	Outline  string   `xml:"outline,omitempty"`
	Genres   []string `xml:"genre,omitempty"`
	Director []string `xml:"director,omitempty"`
	Actors   []actor  `xml:"actor,omitempty"`
}

type ratings struct {
	Rating []rating `xml:"rating"`
}

type rating struct {
	Name    string `xml:"name,attr"`
	Max     int    `xml:"max,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:"value"`
}

type actor struct {
	Name  string `xml:"name"`
	Order int    `xml:"order"`
}

// Encode 把一条记录转成 Kodi/Jellyfin/Emby 可读取的 movie NFO（XML）。
//
// 规则：
// - 缺失的年份/评分不输出对应节点（不写 0）
// - genre/director 按逗号拆分；列表去空白、去重并保持输入顺序
func Encode(m domain.Movie) ([]byte, error) {
	title := strings.TrimSpace(m.Title)
	out := movie{
		Title:     title,
		SortTitle: sortTitle(title),
		Plot:      strings.TrimSpace(m.Plot),
		Genres:    normList(strings.Split(m.Genre, ",")),
		Director:  normList(strings.Split(m.Director, ",")),
	}
	out.Outline = out.Plot

	if m.Year != nil {
		out.Year = *m.Year
		out.Premiered = strconv.Itoa(*m.Year) + "-01-01"
	}
	if m.Rating != nil {
		out.Ratings = &ratings{Rating: []rating{{
			Name:    "user",
			Max:     10,
			Default: true,
			Value:   strconv.FormatFloat(*m.Rating, 'f', 1, 64),
		}}}
		out.UserRating = int(*m.Rating + 0.5)
	}

	actors := normList(m.Actors)
	if len(actors) > 0 {
		out.Actors = make([]actor, 0, len(actors))
		for i, a := range actors {
			out.Actors = append(out.Actors, actor{Name: a, Order: i})
		}
	}

	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	// 输出带 standalone="yes" 的 XML 头，与常见刮削器产物一致。
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

// sortTitle 去掉英文冠词，媒体库按主体词排序。
func sortTitle(title string) string {
	lower := strings.ToLower(title)
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, article) && len(title) > len(article) {
			return strings.TrimSpace(title[len(article):])
		}
	}
	return title
}

func normList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "N/A") {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
