package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/domain"
)

// Store 是记录集合的持久化后端。语义是“最后一次成功保存生效”：
// Save 总是整体替换，Load 总是整体读取。
type Store interface {
	Load(ctx context.Context) ([]domain.Movie, error)
	Save(ctx context.Context, movies []domain.Movie) error
	Close() error
}

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

// Open 按 kind 选择后端。logger 为 nil 时不输出日志。
func Open(kind, path string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindJSON:
		return NewJSONFile(path, logger), nil
	case KindSQLite:
		st, err := OpenSQLite(path, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// keepValid 丢弃不满足不变量的记录（手工编辑过的文件可能出现），并逐条告警。
func keepValid(movies []domain.Movie, source string, log *zap.Logger) []domain.Movie {
	out := movies[:0]
	for i, m := range movies {
		if err := m.Validate(); err != nil {
			log.Warn("skip invalid record", zap.String("source", source), zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out
}
