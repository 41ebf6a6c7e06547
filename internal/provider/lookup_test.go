package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/John-Robertt/mymovies/internal/domain"
)

type stubProvider struct {
	name string

	fetchErr error
	parseErr error

	url   string
	movie domain.Movie

	fetchCalls int
	parseCalls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(ctx context.Context, title string, c *http.Client) ([]byte, string, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, "", p.fetchErr
	}
	return []byte("{}"), p.url, nil
}

func (p *stubProvider) Parse(title string, body []byte, pageURL string) (domain.Movie, error) {
	p.parseCalls++
	if p.parseErr != nil {
		return domain.Movie{}, p.parseErr
	}
	return p.movie, nil
}

func notFound(title string) error { return fmt.Errorf("%w: %s", ErrNotFound, title) }

func TestLookupTrace_FallbackOnNotFound(t *testing.T) {
	omdb := &stubProvider{name: "omdb", fetchErr: notFound("Heat")}
	imdb := &stubProvider{name: "imdb", url: "https://example.test/title/tt1/", movie: domain.Movie{Title: "Heat"}}

	reg, err := NewRegistry(omdb, imdb)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	res, err := LookupTrace(context.Background(), reg, "omdb", "Heat", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Provider != "imdb" || res.PageURL != imdb.url || res.Movie.Title != "Heat" {
		t.Fatalf("结果不符合预期：%+v", res)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("期望 2 条 attempts，实际 %d: %+v", len(res.Attempts), res.Attempts)
	}
	if a := res.Attempts[0]; a.Provider != "omdb" || a.Stage != "fetch" || a.Err == nil {
		t.Fatalf("attempt[0] 不符合预期：%+v", a)
	}
	if a := res.Attempts[1]; a.Provider != "imdb" || a.Stage != "ok" || a.Err != nil {
		t.Fatalf("attempt[1] 不符合预期：%+v", a)
	}
}

func TestLookupTrace_RequestedGoesFirst(t *testing.T) {
	omdb := &stubProvider{name: "omdb", movie: domain.Movie{Title: "from omdb"}}
	imdb := &stubProvider{name: "imdb", movie: domain.Movie{Title: "from imdb"}}
	reg, _ := NewRegistry(omdb, imdb)

	m, err := Lookup(context.Background(), reg, "IMDB", "x", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Title != "from imdb" || omdb.fetchCalls != 0 {
		t.Fatalf("应先尝试 imdb：got=%q omdb.fetchCalls=%d", m.Title, omdb.fetchCalls)
	}
}

func TestLookupTrace_AllNotFound(t *testing.T) {
	reg, _ := NewRegistry(
		&stubProvider{name: "omdb", fetchErr: notFound("x")},
		&stubProvider{name: "imdb", parseErr: notFound("x")},
	)

	res, err := LookupTrace(context.Background(), reg, "", "x", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，实际：%v", err)
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		t.Fatalf("全部 not found 时不应返回 NetworkError：%v", err)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("期望 2 条 attempts，实际 %d", len(res.Attempts))
	}
}

func TestLookupTrace_FirstNetworkErrorWins(t *testing.T) {
	boom := errors.New("connection refused")
	reg, _ := NewRegistry(
		&stubProvider{name: "omdb", fetchErr: boom},
		&stubProvider{name: "imdb", fetchErr: &HTTPStatusError{StatusCode: 503}},
	)

	_, err := LookupTrace(context.Background(), reg, "omdb", "x", nil)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("期望 NetworkError，实际：%T %v", err, err)
	}
	if ne.Provider != "omdb" || !errors.Is(err, boom) {
		t.Fatalf("应返回第一个网络错误，实际：%v", err)
	}
}

func TestLookupTrace_InvalidParsedMovieFallsBack(t *testing.T) {
	bad := &stubProvider{name: "omdb", movie: domain.Movie{Title: "x", Rating: domain.Float(42)}}
	good := &stubProvider{name: "imdb", movie: domain.Movie{Title: "x", Rating: domain.Float(4.2)}}
	reg, _ := NewRegistry(bad, good)

	res, err := LookupTrace(context.Background(), reg, "omdb", "x", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Provider != "imdb" || res.Attempts[0].Stage != "parse" {
		t.Fatalf("评分越界的结果应被丢弃并回退：%+v", res)
	}
}

func TestLookupTrace_UnknownProviderAndEmptyTitle(t *testing.T) {
	reg, _ := NewRegistry(&stubProvider{name: "omdb"})

	if _, err := LookupTrace(context.Background(), reg, "nope", "x", nil); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := LookupTrace(context.Background(), reg, "", "  ", nil); err == nil {
		t.Fatalf("空标题应返回错误")
	}
	if _, err := LookupTrace(context.Background(), Registry{}, "", "x", nil); err == nil {
		t.Fatalf("空注册表应返回错误")
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(&stubProvider{name: "omdb"}, &stubProvider{name: "OMDB"})
	if err == nil {
		t.Fatalf("期望重复 provider 报错")
	}
}

func TestFirstInt(t *testing.T) {
	cases := map[string]int{
		"2005–2010":  2005,
		"1994-07-06": 1994,
		"N/A":        0,
		"":           0,
		"  1999":     1999,
	}
	for in, want := range cases {
		if got := FirstInt(in); got != want {
			t.Fatalf("FirstInt(%q)：期望 %d，实际 %d", in, want, got)
		}
	}
}
