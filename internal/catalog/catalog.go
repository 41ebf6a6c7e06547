package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/domain"
	"github.com/John-Robertt/mymovies/internal/store"
)

// ErrOutOfRange 表示位置下标越界。
var ErrOutOfRange = errors.New("position out of range")

// SaveError 表示内存中的修改已生效，但持久化失败。
// 会话可以继续；下一次成功保存会把全部修改一起写出。
type SaveError struct {
	Op  string
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%s: change kept in memory but not saved: %v", e.Op, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// IsSaveError 判断 err 是否只是保存失败（修改本身已生效）。
func IsSaveError(err error) bool {
	var e *SaveError
	return errors.As(err, &e)
}

// Catalog 持有一次会话的记录列表，每次修改后整体保存。
//
// 记录按位置寻址：标题允许重复，Find 返回全部匹配的位置。
// 不是并发安全的（单用户单会话）。
type Catalog struct {
	st     store.Store
	log    *zap.Logger
	movies []domain.Movie
}

// Open 从 st 加载全部记录。
func Open(ctx context.Context, st store.Store, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	movies, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded", zap.Int("records", len(movies)))
	return &Catalog{st: st, log: logger, movies: movies}, nil
}

// Movies 返回全部记录的深拷贝（调用方修改不影响目录）。
func (c *Catalog) Movies() []domain.Movie {
	out := make([]domain.Movie, len(c.movies))
	for i, m := range c.movies {
		out[i] = m.Clone()
	}
	return out
}

func (c *Catalog) Len() int { return len(c.movies) }

// Get 返回位置 i 的记录副本。
func (c *Catalog) Get(i int) (domain.Movie, error) {
	if i < 0 || i >= len(c.movies) {
		return domain.Movie{}, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	return c.movies[i].Clone(), nil
}

// Find 返回标题（去空白、大小写不敏感）完全相同的全部位置，按目录顺序。
func (c *Catalog) Find(title string) []int {
	title = strings.TrimSpace(title)
	var out []int
	for i, m := range c.movies {
		if strings.EqualFold(strings.TrimSpace(m.Title), title) {
			out = append(out, i)
		}
	}
	return out
}

// Add 校验后追加记录并保存，返回新记录的位置。
func (c *Catalog) Add(ctx context.Context, m domain.Movie) (int, error) {
	m.Title = strings.TrimSpace(m.Title)
	if err := m.Validate(); err != nil {
		return -1, err
	}
	c.movies = append(c.movies, m.Clone())
	i := len(c.movies) - 1
	c.log.Info("movie added", zap.String("title", m.Title), zap.Int("position", i))
	return i, c.save(ctx, "add")
}

// Update 对位置 i 的记录副本执行 edit，校验通过后替换并保存。
// 校验失败时目录保持不变。
func (c *Catalog) Update(ctx context.Context, i int, edit func(*domain.Movie)) error {
	cur, err := c.Get(i)
	if err != nil {
		return err
	}
	edit(&cur)
	cur.Title = strings.TrimSpace(cur.Title)
	if err := cur.Validate(); err != nil {
		return err
	}
	c.movies[i] = cur
	c.log.Info("movie updated", zap.String("title", cur.Title), zap.Int("position", i))
	return c.save(ctx, "update")
}

// Delete 删除位置 i 的记录并保存，返回被删除的记录。
func (c *Catalog) Delete(ctx context.Context, i int) (domain.Movie, error) {
	if i < 0 || i >= len(c.movies) {
		return domain.Movie{}, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	m := c.movies[i]
	c.movies = append(c.movies[:i], c.movies[i+1:]...)
	c.log.Info("movie deleted", zap.String("title", m.Title), zap.Int("position", i))
	return m, c.save(ctx, "delete")
}

// DeleteAll 删除多个位置（去重，越界报错且不做任何修改），只保存一次。
func (c *Catalog) DeleteAll(ctx context.Context, positions []int) ([]domain.Movie, error) {
	drop := make(map[int]bool, len(positions))
	for _, i := range positions {
		if i < 0 || i >= len(c.movies) {
			return nil, fmt.Errorf("%w: %d", ErrOutOfRange, i)
		}
		drop[i] = true
	}
	var removed []domain.Movie
	kept := c.movies[:0]
	for i, m := range c.movies {
		if drop[i] {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	c.movies = kept
	c.log.Info("movies deleted", zap.Int("count", len(removed)))
	return removed, c.save(ctx, "delete")
}

func (c *Catalog) save(ctx context.Context, op string) error {
	if err := c.st.Save(ctx, c.movies); err != nil {
		c.log.Warn("save failed", zap.String("op", op), zap.Error(err))
		return &SaveError{Op: op, Err: err}
	}
	return nil
}

// Close 关闭底层存储。
func (c *Catalog) Close() error { return c.st.Close() }
