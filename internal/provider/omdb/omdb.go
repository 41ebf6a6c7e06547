package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/mymovies/internal/domain"
	providerx "github.com/John-Robertt/mymovies/internal/provider"
)

const defaultBaseURL = "https://www.omdbapi.com"

// ErrNoAPIKey 表示未配置 OMDb API key。
var ErrNoAPIKey = errors.New("omdb api key is not configured")

// Provider 按标题查询 OMDb（GET /?apikey=<key>&t=<title>）。
type Provider struct {
	APIKey string
	// BaseURL 为空时使用 https://www.omdbapi.com（测试时指向 httptest）。
	BaseURL string
}

func (Provider) Name() string { return "omdb" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// Fetch 返回 JSON 响应体；pageURL 不包含 apikey，可以安全地写进日志。
func (p Provider) Fetch(ctx context.Context, title string, c *http.Client) ([]byte, string, error) {
	key := strings.TrimSpace(p.APIKey)
	if key == "" {
		return nil, "", ErrNoAPIKey
	}
	q := url.Values{}
	q.Set("t", title)
	pageURL := p.baseURL() + "/?" + q.Encode()

	q.Set("apikey", key)
	body, err := providerx.Get(ctx, c, p.baseURL()+"/?"+q.Encode())
	if err != nil {
		var se *providerx.HTTPStatusError
		if errors.As(err, &se) {
			// 不把带 key 的 URL 带出去
			se.URL = pageURL
		}
		return nil, "", err
	}
	return body, pageURL, nil
}

type response struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Plot       string `json:"Plot"`
	Director   string `json:"Director"`
	Genre      string `json:"Genre"`
	Actors     string `json:"Actors"`
	IMDBRating string `json:"imdbRating"`
	IMDBID     string `json:"imdbID"`
}

// Parse 把 OMDb 响应映射为 domain.Movie。"N/A" 一律视为缺失。
func (Provider) Parse(title string, body []byte, pageURL string) (domain.Movie, error) {
	if len(body) == 0 {
		return domain.Movie{}, errors.New("empty response body")
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.Movie{}, fmt.Errorf("decode omdb response: %w", err)
	}
	if !strings.EqualFold(r.Response, "True") {
		msg := strings.TrimSpace(r.Error)
		if strings.Contains(strings.ToLower(msg), "not found") {
			return domain.Movie{}, fmt.Errorf("%w: %q", providerx.ErrNotFound, title)
		}
		if msg == "" {
			msg = "unexpected response"
		}
		return domain.Movie{}, fmt.Errorf("omdb: %s", msg)
	}

	m := domain.Movie{
		Title:    na(r.Title),
		Actors:   domain.SplitActors(r.Actors),
		Plot:     na(r.Plot),
		Genre:    na(r.Genre),
		Director: na(r.Director),
	}
	if m.Title == "" {
		m.Title = strings.TrimSpace(title)
	}
	if y := providerx.FirstInt(na(r.Year)); y > 0 {
		m.Year = domain.Int(y)
	}
	if v := na(r.IMDBRating); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= domain.MinRating && f <= domain.MaxRating {
			m.Rating = domain.Float(f)
		}
	}
	return m, nil
}

func na(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "N/A") {
		return ""
	}
	return s
}
