package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/domain"
)

func sample() []domain.Movie {
	return []domain.Movie{
		{Title: "Heat", Year: domain.Int(1995), Rating: domain.Float(8.3), Actors: []string{"Al Pacino", "Robert De Niro"}, Director: "Michael Mann", Genre: "Crime", Plot: "A group of thieves."},
		{Title: "Heat"},
		{Title: "Stalker", Rating: domain.Float(0)},
	}
}

func TestJSONFile_MissingFileIsEmpty(t *testing.T) {
	s := NewJSONFile(filepath.Join(t.TempDir(), "movies.json"), zap.NewNop())
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestJSONFile_SaveThenLoadKeepsOrderAndOptionals(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "movies.json")
	s := NewJSONFile(p, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	got, err := s.Load(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Fatalf("加载结果与保存内容不一致 (-want +got):\n%s", diff)
	}
	// 评分 0 是有效值，不能和缺失混淆
	require.NotNil(t, got[2].Rating)
	assert.Nil(t, got[1].Rating)
}

func TestJSONFile_SaveEmptyWritesArray(t *testing.T) {
	p := filepath.Join(t.TempDir(), "movies.json")
	require.NoError(t, NewJSONFile(p, nil).Save(context.Background(), nil))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(b)))
}

func TestJSONFile_LegacyObjectFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "movies.json")
	legacy := `{
  "Titanic": {"rating": 7.9, "year": 1997, "description": "A seventeen-year-old aristocrat falls in love.", "actors": ["Leonardo DiCaprio", "Kate Winslet"]},
  "Alien": {"rating": 0, "year": 0, "description": "", "actors": []}
}`
	require.NoError(t, os.WriteFile(p, []byte(legacy), 0o644))

	got, err := NewJSONFile(p, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Titanic", got[0].Title)
	assert.Equal(t, 1997, *got[0].Year)
	assert.Equal(t, 7.9, *got[0].Rating)
	assert.Equal(t, "A seventeen-year-old aristocrat falls in love.", got[0].Plot)
	assert.Equal(t, []string{"Leonardo DiCaprio", "Kate Winslet"}, got[0].Actors)

	assert.Equal(t, "Alien", got[1].Title)
	assert.Nil(t, got[1].Year)
	assert.Nil(t, got[1].Rating)
	assert.Nil(t, got[1].Actors)
}

func TestJSONFile_CorruptFileIsQuarantined(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "movies.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"title": "Heat"`), 0o644))

	s := NewJSONFile(p, zap.NewNop())
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err), "损坏的文件应被移走")
	b, err := os.ReadFile(p + ".corrupt-1700000000")
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "Heat"`, string(b))
}

func TestJSONFile_SkipsInvalidRecords(t *testing.T) {
	p := filepath.Join(t.TempDir(), "movies.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"title":"ok"},{"title":"  "},{"title":"bad","rating":11}]`), 0o644))

	got, err := NewJSONFile(p, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Title)
}

func TestSQLite_SaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "movies.db")
	ctx := context.Background()

	s, err := Open(KindSQLite, p, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, sample()))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Fatalf("加载结果与保存内容不一致 (-want +got):\n%s", diff)
	}

	// 第二次保存整体替换
	require.NoError(t, s.Save(ctx, sample()[:1]))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	p := filepath.Join(t.TempDir(), "movies.db")
	ctx := context.Background()

	s, err := OpenSQLite(p, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sample()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(p, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("csv", filepath.Join(t.TempDir(), "x"), nil)
	assert.Error(t, err)
}
