package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/mymovies/internal/domain"
)

// Provider 把远程服务的差异限制在各自的包里；目录层只依赖统一接口与 domain.Movie。
//
// 约束：
// - Fetch 不做缓存、不做重试（重试由 httpx.Transport 统一实现）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - 找不到对应影片时返回包装了 ErrNotFound 的错误
type Provider interface {
	Name() string
	Fetch(ctx context.Context, title string, c *http.Client) (body []byte, pageURL string, err error)
	Parse(title string, body []byte, pageURL string) (domain.Movie, error)
}
