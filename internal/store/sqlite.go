package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/John-Robertt/mymovies/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS movies (
	position INTEGER PRIMARY KEY,
	title    TEXT NOT NULL,
	year     INTEGER,
	rating   REAL,
	plot     TEXT NOT NULL DEFAULT '',
	genre    TEXT NOT NULL DEFAULT '',
	director TEXT NOT NULL DEFAULT '',
	actors   TEXT NOT NULL DEFAULT '[]'
);`

// SQLite 把记录保存在单表里；position 保留目录顺序。
type SQLite struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db, path: path, log: logger}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]domain.Movie, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, year, rating, plot, genre, director, actors FROM movies ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []domain.Movie{}
	for rows.Next() {
		var (
			m      domain.Movie
			year   sql.NullInt64
			rating sql.NullFloat64
			actors string
		)
		if err := rows.Scan(&m.Title, &year, &rating, &m.Plot, &m.Genre, &m.Director, &actors); err != nil {
			return nil, err
		}
		if year.Valid {
			m.Year = domain.Int(int(year.Int64))
		}
		if rating.Valid {
			m.Rating = domain.Float(rating.Float64)
		}
		if err := json.Unmarshal([]byte(actors), &m.Actors); err != nil {
			s.log.Warn("drop malformed actors column", zap.String("title", m.Title), zap.Error(err))
			m.Actors = nil
		}
		if len(m.Actors) == 0 {
			m.Actors = nil
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keepValid(movies, s.path, s.log), nil
}

// Save 在一个事务里整体替换表内容。
func (s *SQLite) Save(ctx context.Context, movies []domain.Movie) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movies`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO movies (position, title, year, rating, plot, genre, director, actors) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range movies {
		actors := m.Actors
		if actors == nil {
			actors = []string{}
		}
		aj, err := json.Marshal(actors)
		if err != nil {
			return err
		}
		var (
			year   any
			rating any
		)
		if m.Year != nil {
			year = *m.Year
		}
		if m.Rating != nil {
			rating = *m.Rating
		}
		if _, err := stmt.ExecContext(ctx, i, m.Title, year, rating, m.Plot, m.Genre, m.Director, string(aj)); err != nil {
			return fmt.Errorf("insert %q: %w", m.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("catalog saved", zap.String("path", s.path), zap.Int("records", len(movies)))
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
