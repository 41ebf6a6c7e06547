package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/domain"
	"github.com/John-Robertt/mymovies/internal/infra/fsx"
)

// JSONFile 把记录保存为一个 JSON 数组文件。
type JSONFile struct {
	path string
	log  *zap.Logger
	now  func() time.Time
}

func NewJSONFile(path string, logger *zap.Logger) *JSONFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONFile{path: path, log: logger, now: time.Now}
}

func (s *JSONFile) Path() string { return s.path }

// Load 读取记录。
//
// - 文件不存在：空集合
// - 文件无法解析：挪到 <path>.corrupt-<unix> 后返回空集合，下次保存写出新文件
// - 兼容旧格式 {"<title>": {"rating":..,"year":..,"description":..,"actors":[..]}}
func (s *JSONFile) Load(ctx context.Context) ([]domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug("data file does not exist yet", zap.String("path", s.path))
		return []domain.Movie{}, nil
	}
	if err != nil {
		return nil, err
	}

	movies, err := decode(b)
	if err != nil {
		dst, qerr := fsx.Quarantine(s.path, s.now())
		if qerr != nil {
			return nil, fmt.Errorf("data file %q is unreadable (%v) and could not be moved aside: %w", s.path, err, qerr)
		}
		s.log.Warn("data file is corrupt, starting with an empty catalog",
			zap.String("path", s.path),
			zap.String("moved_to", dst),
			zap.Error(err))
		return []domain.Movie{}, nil
	}
	return keepValid(movies, s.path, s.log), nil
}

// Save 原子替换数据文件。
func (s *JSONFile) Save(ctx context.Context, movies []domain.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if movies == nil {
		movies = []domain.Movie{}
	}
	b, err := json.MarshalIndent(movies, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if err := fsx.WriteFile(s.path, b, fsx.Replace); err != nil {
		return err
	}
	s.log.Debug("catalog saved", zap.String("path", s.path), zap.Int("records", len(movies)))
	return nil
}

func (s *JSONFile) Close() error { return nil }

func decode(b []byte) ([]domain.Movie, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []domain.Movie{}, nil
	}
	switch b[0] {
	case '[':
		var movies []domain.Movie
		if err := json.Unmarshal(b, &movies); err != nil {
			return nil, err
		}
		if movies == nil {
			movies = []domain.Movie{}
		}
		return movies, nil
	case '{':
		return decodeLegacy(b)
	default:
		return nil, fmt.Errorf("unexpected leading byte %q", b[0])
	}
}

// legacyRecord 是旧格式里以标题为键的值；0 表示缺失。
type legacyRecord struct {
	Rating      float64  `json:"rating"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Actors      []string `json:"actors"`
}

// decodeLegacy 逐 token 读取对象，保留文件里的键顺序。
func decodeLegacy(b []byte) ([]domain.Movie, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	movies := []domain.Movie{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		title, _ := tok.(string)
		var rec legacyRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("record %q: %w", title, err)
		}
		m := domain.Movie{
			Title: strings.TrimSpace(title),
			Plot:  strings.TrimSpace(rec.Description),
		}
		if rec.Rating != 0 {
			m.Rating = domain.Float(rec.Rating)
		}
		if rec.Year != 0 {
			m.Year = domain.Int(rec.Year)
		}
		for _, a := range rec.Actors {
			if a = strings.TrimSpace(a); a != "" {
				m.Actors = append(m.Actors, a)
			}
		}
		movies = append(movies, m)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after legacy object")
	}
	return movies, nil
}
