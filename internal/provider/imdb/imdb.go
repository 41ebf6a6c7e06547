package imdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/mymovies/internal/domain"
	providerx "github.com/John-Robertt/mymovies/internal/provider"
)

// Provider 通过 IMDb 网页查询影片，作为 OMDb 的回退。
//
// IMDb 需要先搜索再进入详情页；详情页的结构化数据取自 JSON-LD，
// 缺失时退回 og:title / h1 只拿标题。
type Provider struct {
	// BaseURL 为空时使用 https://www.imdb.com。
	BaseURL string
}

func (Provider) Name() string { return "imdb" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://www.imdb.com"
	}
	return strings.TrimRight(u, "/")
}

// Fetch: /find/?q=<title>&s=tt&ttype=ft -> 第一个 /title/tt.../ 链接 -> 详情页。
func (p Provider) Fetch(ctx context.Context, title string, c *http.Client) ([]byte, string, error) {
	base := p.baseURL()
	searchURL := base + "/find/?q=" + url.QueryEscape(title) + "&s=tt&ttype=ft"
	searchHTML, err := providerx.Get(ctx, c, searchURL)
	if err != nil {
		return nil, "", err
	}
	if blocked(searchHTML) {
		return nil, "", &providerx.BlockedError{URL: searchURL, Reason: "captcha"}
	}

	href, err := findDetailHref(searchHTML)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", err, title)
	}
	pageURL := resolveURL(base+"/", href)
	b, err := providerx.Get(ctx, c, pageURL)
	if err != nil {
		return nil, "", err
	}
	if blocked(b) {
		return nil, "", &providerx.BlockedError{URL: pageURL, Reason: "captcha"}
	}
	return b, pageURL, nil
}

// Parse 把详情页解析为 domain.Movie。
func (Provider) Parse(title string, body []byte, pageURL string) (domain.Movie, error) {
	if len(body) == 0 {
		return domain.Movie{}, errors.New("empty page")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Movie{}, err
	}

	var m domain.Movie
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld ldMovie
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil || ld.Name == "" {
			return true
		}
		m = ld.movie()
		return false
	})

	if m.Title == "" {
		m.Title = ogTitle(doc)
	}
	if m.Title == "" {
		m.Title = providerx.NormSpace(doc.Find("h1").First().Text())
	}
	if m.Title == "" {
		return domain.Movie{}, fmt.Errorf("no title on page %s", pageURL)
	}
	return m, nil
}

// ldMovie 是 schema.org/Movie 里我们关心的子集。
type ldMovie struct {
	Name            string      `json:"name"`
	DatePublished   string      `json:"datePublished"`
	Description     string      `json:"description"`
	Genre           flexStrings `json:"genre"`
	Actor           flexPersons `json:"actor"`
	Director        flexPersons `json:"director"`
	AggregateRating *struct {
		RatingValue json.Number `json:"ratingValue"`
	} `json:"aggregateRating"`
}

func (ld ldMovie) movie() domain.Movie {
	m := domain.Movie{
		Title:    html.UnescapeString(providerx.NormSpace(ld.Name)),
		Plot:     html.UnescapeString(providerx.NormSpace(ld.Description)),
		Genre:    strings.Join(ld.Genre, ", "),
		Director: strings.Join(ld.Director.names(), ", "),
		Actors:   ld.Actor.names(),
	}
	if y := providerx.FirstInt(ld.DatePublished); y > 0 {
		m.Year = domain.Int(y)
	}
	if ld.AggregateRating != nil {
		if f, err := strconv.ParseFloat(ld.AggregateRating.RatingValue.String(), 64); err == nil &&
			f >= domain.MinRating && f <= domain.MaxRating {
			m.Rating = domain.Float(f)
		}
	}
	return m
}

// flexStrings 兼容 "Drama" 与 ["Drama","Romance"] 两种写法。
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*f = normList([]string{one})
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*f = normList(many)
	return nil
}

type ldPerson struct {
	Name string `json:"name"`
}

// flexPersons 兼容单个对象与对象数组。
type flexPersons []ldPerson

func (f *flexPersons) UnmarshalJSON(b []byte) error {
	var one ldPerson
	if err := json.Unmarshal(b, &one); err == nil {
		*f = flexPersons{one}
		return nil
	}
	var many []ldPerson
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

func (f flexPersons) names() []string {
	out := make([]string, 0, len(f))
	for _, p := range f {
		out = append(out, html.UnescapeString(p.Name))
	}
	out = normList(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// ogTitle 去掉 "Forrest Gump (1994) - IMDb" 里的年份与站点后缀。
func ogTitle(doc *goquery.Document) string {
	v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if !ok {
		return ""
	}
	v = strings.TrimSuffix(providerx.NormSpace(v), " - IMDb")
	if i := strings.LastIndex(v, " ("); i > 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func findDetailHref(searchHTML []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(searchHTML))
	if err != nil {
		return "", err
	}
	var href string
	doc.Find(`a[href^="/title/tt"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, _ := s.Attr("href")
		href = strings.TrimSpace(h)
		return href == ""
	})
	if href == "" {
		return "", providerx.ErrNotFound
	}
	return href, nil
}

func blocked(b []byte) bool {
	return bytes.Contains(b, []byte("awswaf")) || bytes.Contains(b, []byte("captcha-container"))
}

// resolveURL 把相对链接解析到 base 上，并去掉 ?ref_= 之类的追踪参数。
func resolveURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	u := bu.ResolveReference(ru)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func normList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = providerx.NormSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
