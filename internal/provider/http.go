package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxBody 限制单个响应体大小（详情页通常 < 2MB）。
const maxBody = 8 << 20

// Get 发起 GET 并读取响应体；非 2xx 返回 *HTTPStatusError。
func Get(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client must not be nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// FirstInt 返回 s 中第一段连续数字；没有时返回 0。
// 例如 "2005–2010" => 2005，"1994-07-06" => 1994。
func FirstInt(s string) int {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(s[start:i])
			return n
		}
	}
	if start >= 0 {
		n, _ := strconv.Atoi(s[start:])
		return n
	}
	return 0
}

// NormSpace 折叠连续空白。
func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
