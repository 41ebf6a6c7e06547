package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 表示远程服务明确回答“没有这部影片”。
var ErrNotFound = errors.New("movie not found")

// NetworkError 表示某个 provider 无法给出可用结果：传输失败、非 2xx、服务端错误响应、
// 或页面无法解析。与 ErrNotFound 区分，让界面能提示“稍后重试”而不是“换个标题”。
type NetworkError struct {
	Provider string
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError 表示远程服务返回了非 2xx 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示请求被引导到了验证/拦截页。不尝试绕过。
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}
