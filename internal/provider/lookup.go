package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/mymovies/internal/domain"
)

// Attempt 记录一次 provider 尝试（用于解释回退原因）。
type Attempt struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" / "parse" / "ok"
	Err      error  // nil when Stage=="ok"
}

// Result 是一次成功查询的结果。
type Result struct {
	Movie    domain.Movie
	Provider string
	PageURL  string
	Attempts []Attempt
}

// Lookup 与 LookupTrace 相同，只返回影片。
func Lookup(ctx context.Context, reg Registry, requested, title string, c *http.Client) (domain.Movie, error) {
	res, err := LookupTrace(ctx, reg, requested, title, c)
	return res.Movie, err
}

// LookupTrace 按“requested -> 其余按注册顺序”依次尝试，直到某个 provider 给出影片。
//
// 失败时：
// - 所有尝试都是 ErrNotFound：返回包装了 ErrNotFound 的错误
// - 否则返回第一个 *NetworkError
//
// requested 为空表示直接按注册顺序。两种情况下 Result.Attempts 都记录了完整链路。
func LookupTrace(ctx context.Context, reg Registry, requested, title string, c *http.Client) (Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Result{}, errors.New("title must not be empty")
	}
	order, err := lookupOrder(reg, requested)
	if err != nil {
		return Result{}, err
	}

	var (
		attempts []Attempt
		firstNet *NetworkError
	)
	fail := func(name, stage string, err error) {
		attempts = append(attempts, Attempt{Provider: name, Stage: stage, Err: err})
		if errors.Is(err, ErrNotFound) || firstNet != nil {
			return
		}
		firstNet = &NetworkError{Provider: name, Stage: stage, Err: err}
	}

	for _, name := range order {
		p, _ := reg.Get(name)

		body, pageURL, ferr := p.Fetch(ctx, title, c)
		if ferr != nil {
			fail(name, "fetch", ferr)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		m, perr := p.Parse(title, body, pageURL)
		if perr == nil {
			perr = m.Validate()
		}
		if perr != nil {
			fail(name, "parse", perr)
			continue
		}

		attempts = append(attempts, Attempt{Provider: name, Stage: "ok"})
		return Result{Movie: m, Provider: name, PageURL: pageURL, Attempts: attempts}, nil
	}

	res := Result{Attempts: attempts}
	if firstNet != nil {
		return res, firstNet
	}
	return res, fmt.Errorf("%w: %q", ErrNotFound, title)
}

func lookupOrder(reg Registry, requested string) ([]string, error) {
	names := reg.Names()
	if len(names) == 0 {
		return nil, errors.New("no lookup provider is configured")
	}
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" {
		return names, nil
	}
	if _, ok := reg.Get(requested); !ok {
		return nil, fmt.Errorf("unknown provider %q", requested)
	}
	order := make([]string, 0, len(names))
	order = append(order, requested)
	for _, n := range names {
		if n != requested {
			order = append(order, n)
		}
	}
	return order, nil
}
