package nfo

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/domain"
	"github.com/John-Robertt/mymovies/internal/infra/fsx"
)

// Failure 记录一条导出失败的记录。
type Failure struct {
	Title string `json:"title"`
	Err   string `json:"error"`
}

// Report 汇总一次导出的结果。
type Report struct {
	Dir     string    `json:"dir"`
	Written []string  `json:"written"`
	Skipped []string  `json:"skipped"`
	Failed  []Failure `json:"failed,omitempty"`
}

// Export 在 dir 下为每条记录写一个 "<Title> (<Year>).nfo"。
//
// 同名同年的记录依次加 " [2]"、" [3]" 后缀；已存在的文件永远不覆盖（记入 Skipped）；
// 单条失败不影响其它记录。
// 只有 dir 本身无法创建时才返回 error。
func Export(dir string, movies []domain.Movie, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rep := Report{Dir: dir, Written: []string{}, Skipped: []string{}}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rep, err
	}

	used := map[string]bool{}
	for _, m := range movies {
		name := uniqueName(FileName(m), used)
		p := filepath.Join(dir, name)

		b, err := Encode(m)
		if err == nil {
			err = fsx.WriteFile(p, b, fsx.NoOverwrite)
		}
		switch {
		case err == nil:
			rep.Written = append(rep.Written, name)
		case errors.Is(err, os.ErrExist):
			logger.Debug("nfo exists, skipped", zap.String("path", p))
			rep.Skipped = append(rep.Skipped, name)
		default:
			logger.Warn("write nfo failed", zap.String("path", p), zap.Error(err))
			rep.Failed = append(rep.Failed, Failure{Title: m.Title, Err: err.Error()})
		}
	}
	return rep, nil
}

// uniqueName 让同一次导出里同名同年的记录各得一个文件："Heat (1995).nfo"、"Heat (1995) [2].nfo"。
func uniqueName(name string, used map[string]bool) string {
	base := strings.TrimSuffix(name, ".nfo")
	for n := 2; used[name]; n++ {
		name = base + " [" + strconv.Itoa(n) + "].nfo"
	}
	used[name] = true
	return name
}

// FileName 返回记录对应的 nfo 文件名（去掉文件系统不允许的字符）。
func FileName(m domain.Movie) string {
	base := sanitize(m.Title)
	if m.Year != nil {
		base += " (" + strconv.Itoa(*m.Year) + ")"
	}
	return base + ".nfo"
}

func sanitize(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r < 0x20:
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), ". ")
	if r := []rune(s); len(r) > 120 {
		s = strings.TrimSpace(string(r[:120]))
	}
	if s == "" {
		s = "untitled"
	}
	return s
}
