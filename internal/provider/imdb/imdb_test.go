package imdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	providerx "github.com/John-Robertt/mymovies/internal/provider"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestFindDetailHref_FromSearchFixture(t *testing.T) {
	href, err := findDetailHref(readFixture(t, "search.html"))
	if err != nil {
		t.Fatalf("findDetailHref 失败：%v", err)
	}
	if href != "/title/tt0109830/?ref_=fn_al_tt_1" {
		t.Fatalf("期望第一个结果，实际=%q", href)
	}
	if got := resolveURL("https://www.imdb.com/", href); got != "https://www.imdb.com/title/tt0109830/" {
		t.Fatalf("resolveURL 应去掉追踪参数，实际=%q", got)
	}

	_, err = findDetailHref(readFixture(t, "empty_search.html"))
	if !errors.Is(err, providerx.ErrNotFound) {
		t.Fatalf("无结果时期望 ErrNotFound，实际：%v", err)
	}
}

func TestParse_JSONLD(t *testing.T) {
	m, err := Provider{}.Parse("forrest gump", readFixture(t, "tt0109830.html"), "https://www.imdb.com/title/tt0109830/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Title != "Forrest Gump" {
		t.Fatalf("期望标题 Forrest Gump，实际 %q", m.Title)
	}
	if m.Year == nil || *m.Year != 1994 {
		t.Fatalf("期望年份 1994，实际 %v", m.Year)
	}
	if m.Rating == nil || *m.Rating != 8.8 {
		t.Fatalf("期望评分 8.8，实际 %v", m.Rating)
	}
	if strings.Join(m.Actors, "|") != "Tom Hanks|Robin Wright|Gary Sinise" {
		t.Fatalf("演员不符合预期：%v", m.Actors)
	}
	if m.Director != "Robert Zemeckis" || m.Genre != "Drama, Romance" {
		t.Fatalf("导演/类型不符合预期：%q / %q", m.Director, m.Genre)
	}
	if !strings.Contains(m.Plot, "the '70s") {
		t.Fatalf("简介应反转义 HTML 实体：%q", m.Plot)
	}
}

func TestParse_FallbackToOGTitle(t *testing.T) {
	m, err := Provider{}.Parse("paris texas", readFixture(t, "no_jsonld.html"), "https://www.imdb.com/title/tt0087884/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Title != "Paris, Texas" {
		t.Fatalf("期望 %q，实际 %q", "Paris, Texas", m.Title)
	}
	if m.Year != nil || m.Rating != nil {
		t.Fatalf("无 JSON-LD 时不应猜测年份/评分：%+v", m)
	}
}

func TestParse_EmptyPage(t *testing.T) {
	if _, err := (Provider{}).Parse("x", []byte("<html><body></body></html>"), "u"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestFetch_SearchThenDetail(t *testing.T) {
	search := readFixture(t, "search.html")
	detail := readFixture(t, "tt0109830.html")

	mux := http.NewServeMux()
	mux.HandleFunc("/find/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Forrest Gump" || r.URL.Query().Get("s") != "tt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(search)
	})
	mux.HandleFunc("/title/tt0109830/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(detail)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := Provider{BaseURL: srv.URL}
	body, pageURL, err := p.Fetch(context.Background(), "Forrest Gump", srv.Client())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if pageURL != srv.URL+"/title/tt0109830/" {
		t.Fatalf("pageURL 不符合预期：%q", pageURL)
	}

	// 与 provider.LookupTrace 走同一条链路
	reg, err := providerx.NewRegistry(p)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	m, err := providerx.Lookup(context.Background(), reg, "imdb", "Forrest Gump", srv.Client())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want, _ := p.Parse("Forrest Gump", body, pageURL)
	if m.Title != want.Title || m.Validate() != nil {
		t.Fatalf("Lookup 结果不符合预期：%+v", m)
	}
}

func TestFetch_BlockedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script src="https://x.awswaf.com/challenge.js"></script></html>`))
	}))
	defer srv.Close()

	_, _, err := Provider{BaseURL: srv.URL}.Fetch(context.Background(), "x", srv.Client())
	var be *providerx.BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("期望 BlockedError，实际：%T %v", err, err)
	}
}
