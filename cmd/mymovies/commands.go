package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/mymovies/internal/catalog"
	"github.com/John-Robertt/mymovies/internal/config"
	"github.com/John-Robertt/mymovies/internal/domain"
	"github.com/John-Robertt/mymovies/internal/nfo"
	"github.com/John-Robertt/mymovies/internal/provider"
	"github.com/John-Robertt/mymovies/internal/query"
	"github.com/John-Robertt/mymovies/internal/stats"
	"github.com/John-Robertt/mymovies/internal/view"
)

// runE 让每个子命令的失败都经过 fail 报告一次。
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			a.fail(err)
			return err
		}
		return nil
	}
}

type listDoc struct {
	Total  int            `json:"total"`
	Page   int            `json:"page,omitempty"`
	Pages  int            `json:"pages,omitempty"`
	Movies []domain.Movie `json:"movies"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		sortBy string
		asc    bool
		page   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出全部影片（可排序、分页）",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			movies := a.cat.Movies()
			if sortBy != "" {
				key, err := view.ParseKey(sortBy)
				if err != nil {
					return err
				}
				order := view.Desc
				if asc {
					order = view.Asc
				}
				movies = view.Sort(movies, key, order)
			}

			if page <= 0 {
				return a.emit(listDoc{Total: len(movies), Movies: nonNil(movies)}, a.r.List(movies))
			}
			pages := view.Paginate(movies, a.cfg.PageSize)
			if page > len(pages) {
				return fmt.Errorf("page %d out of range (1-%d)", page, len(pages))
			}
			p := pages[page-1]
			return a.emit(listDoc{Total: len(movies), Page: p.Number, Pages: p.Total, Movies: p.Items}, a.r.Page(p, len(movies)))
		}),
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "排序字段：rating|year（默认降序）")
	cmd.Flags().BoolVar(&asc, "asc", false, "升序（最低分/最早在前）")
	cmd.Flags().IntVar(&page, "page", 0, "只输出第 N 页（页大小见 page_size）")
	return cmd
}

type searchDoc struct {
	Query  string         `json:"query"`
	Total  int            `json:"total"`
	Movies []domain.Movie `json:"movies"`
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "按标题或字段代码检索（例如 a:Tom Hanks、y:1994）",
		Long: "字段代码：\n  " + strings.Join(query.Usage(), "\n  ") +
			"\n\n以字段代码开头的标题（例如 \"Y: The Last Man\"）请加 t: 前缀：t:Y: The Last Man",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			q, err := query.Parse(raw, query.Options{StrictFields: a.cfg.StrictFields})
			if err != nil {
				return err
			}
			found := query.Filter(a.cat.Movies(), q)
			return a.emit(searchDoc{Query: raw, Total: len(found), Movies: found}, a.r.List(found))
		}),
	}
}

func newFilterCmd(a *app) *cobra.Command {
	var (
		minRating, maxRating float64
		from, to             int
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "按评分/年份闭区间过滤",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			if math.IsNaN(minRating) || math.IsNaN(maxRating) {
				return errors.New("rating bounds must be numbers")
			}
			var b query.Bounds
			fl := cmd.Flags()
			if fl.Changed("min-rating") {
				b.MinRating = domain.Float(minRating)
			}
			if fl.Changed("max-rating") {
				b.MaxRating = domain.Float(maxRating)
			}
			if fl.Changed("from") {
				b.MinYear = domain.Int(from)
			}
			if fl.Changed("to") {
				b.MaxYear = domain.Int(to)
			}
			found := b.Apply(a.cat.Movies())
			return a.emit(listDoc{Total: len(found), Movies: found}, a.r.List(found))
		}),
	}
	cmd.Flags().Float64Var(&minRating, "min-rating", 0, "最低评分（含）")
	cmd.Flags().Float64Var(&maxRating, "max-rating", 0, "最高评分（含）")
	cmd.Flags().IntVar(&from, "from", 0, "起始年份（含）")
	cmd.Flags().IntVar(&to, "to", 0, "结束年份（含）")
	return cmd
}

type statsDoc struct {
	stats.Summary
	Empty bool `json:"empty,omitempty"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "评分统计（平均、中位数、最高/最低）",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			sum, err := stats.Summarize(a.cat.Movies())
			if errors.Is(err, domain.ErrEmptyDataset) {
				return a.emit(statsDoc{Summary: sum, Empty: true}, a.r.Info("No data: no rated movies in the catalog."))
			}
			if err != nil {
				return err
			}
			return a.emit(statsDoc{Summary: sum}, a.r.Stats(sum))
		}),
	}
}

type movieDoc struct {
	Position int           `json:"position,omitempty"`
	Source   string        `json:"source,omitempty"`
	Movie    *domain.Movie `json:"movie"`
}

func newRandomCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "随机推荐一部影片",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			m, err := stats.RandomPick(a.cat.Movies(), nil)
			if errors.Is(err, domain.ErrEmptyDataset) {
				return a.emit(movieDoc{}, a.r.Info("No data: the catalog is empty."))
			}
			if err != nil {
				return err
			}
			return a.emit(movieDoc{Movie: &m}, a.r.Card(0, m))
		}),
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		lookupTitle string
		year        int
		rating      float64
		plot        string
		genre       string
		director    string
		actors      string
	)
	cmd := &cobra.Command{
		Use:   "add [title...]",
		Short: "添加影片（手工字段，或 --lookup 远程补全）",
		Long: `添加一部影片。

--lookup 按标题查询 OMDb（失败回退 IMDb），命令行显式给出的字段覆盖查询结果。
查询不到或网络失败时回退为手工记录（只用命令行字段）。`,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fl := cmd.Flags()

			m := domain.Movie{Title: strings.Join(args, " ")}
			source := "manual"
			if lookupTitle != "" {
				res, err := a.lookup(ctx, lookupTitle)
				switch {
				case err == nil:
					m, source = res.Movie, res.Provider
				case isLookupMiss(err):
					a.note(fmt.Sprintf("lookup failed, adding manually: %v", err))
					if m.Title == "" {
						m.Title = lookupTitle
					}
				default:
					return err
				}
				if len(args) > 0 {
					m.Title = strings.Join(args, " ")
				}
			}
			if strings.TrimSpace(m.Title) == "" {
				return errors.New("title is required (argument or --lookup)")
			}

			if fl.Changed("year") {
				m.Year = domain.Int(year)
			}
			if fl.Changed("rating") {
				m.Rating = domain.Float(rating)
			}
			if fl.Changed("plot") {
				m.Plot = plot
			}
			if fl.Changed("genre") {
				m.Genre = genre
			}
			if fl.Changed("director") {
				m.Director = director
			}
			if fl.Changed("actors") {
				m.Actors = domain.SplitActors(actors)
			}

			i, err := a.cat.Add(ctx, m)
			if err != nil {
				return err
			}
			added, _ := a.cat.Get(i)
			return a.emit(movieDoc{Position: i + 1, Source: source, Movie: &added},
				a.r.Success(fmt.Sprintf("Movie '%s' added.", added.Title))+"\n"+a.r.Card(i+1, added))
		}),
	}
	f := cmd.Flags()
	f.StringVar(&lookupTitle, "lookup", "", "按标题远程查询并补全")
	f.IntVar(&year, "year", 0, "上映年份")
	f.Float64Var(&rating, "rating", 0, "评分 0-10")
	f.StringVar(&plot, "plot", "", "简介")
	f.StringVar(&genre, "genre", "", "类型（逗号分隔）")
	f.StringVar(&director, "director", "", "导演")
	f.StringVar(&actors, "actors", "", "演员（逗号分隔）")
	return cmd
}

// isLookupMiss 判断远程查询失败是否应回退为手工录入。
func isLookupMiss(err error) bool {
	var nerr *provider.NetworkError
	return errors.Is(err, provider.ErrNotFound) || errors.As(err, &nerr)
}

type deleteDoc struct {
	Deleted []domain.Movie `json:"deleted"`
}

func newDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete <title...>",
		Short: "按标题删除影片（大小写不敏感的完整匹配）",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			hits := a.cat.Find(title)
			switch {
			case len(hits) == 0:
				return fmt.Errorf("movie %q not found", title)
			case len(hits) > 1 && !all:
				return fmt.Errorf("%d movies are titled %q; pass --all to delete every one", len(hits), title)
			}
			removed, err := a.cat.DeleteAll(cmd.Context(), hits)
			if err != nil {
				return err
			}
			return a.emit(deleteDoc{Deleted: removed}, a.r.Success(fmt.Sprintf("Deleted %d movie(s) titled '%s'.", len(removed), title)))
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "同名影片全部删除")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export-nfo <dir>",
		Short: "为每部影片导出 Kodi .nfo（已存在的文件不覆盖）",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			rep, err := nfo.Export(args[0], a.cat.Movies(), a.log)
			if err != nil {
				return err
			}
			lines := []string{a.r.Success(fmt.Sprintf("written=%d skipped=%d failed=%d -> %s",
				len(rep.Written), len(rep.Skipped), len(rep.Failed), rep.Dir))}
			for _, f := range rep.Failed {
				lines = append(lines, a.r.Error(f.Title+": "+f.Err))
			}
			return a.emit(rep, strings.Join(lines, "\n"))
		}),
	}
}

type keyDoc struct {
	APIKey string `json:"api_key,omitempty"`
	Set    bool   `json:"set"`
	Path   string `json:"path,omitempty"`
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "查看或修改配置",
		Annotations: map[string]string{"catalog": "none"},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-key <api-key>",
			Short: "把 OMDb API key 写入 mymovies.yaml",
			Args:  cobra.ExactArgs(1),
			RunE: a.runE(func(cmd *cobra.Command, args []string) error {
				if err := config.SaveAPIKey(a.cfg.Dir, args[0]); err != nil {
					return err
				}
				return a.emit(keyDoc{Set: true, Path: a.cfg.ConfigPath}, a.r.Success("API key saved to "+a.cfg.ConfigPath))
			}),
		},
		&cobra.Command{
			Use:   "show-key",
			Short: "显示当前生效的 OMDb API key",
			Args:  cobra.NoArgs,
			RunE: a.runE(func(cmd *cobra.Command, args []string) error {
				key, ok := a.cfg.APIKey()
				if !ok {
					return a.emit(keyDoc{}, a.r.Warning("No API key set."))
				}
				return a.emit(keyDoc{APIKey: key, Set: true}, "Current API Key: "+key)
			}),
		},
	)
	return cmd
}

// nonNil 让空目录在 JSON 中输出 [] 而不是 null。
func nonNil(movies []domain.Movie) []domain.Movie {
	if movies == nil {
		return []domain.Movie{}
	}
	return movies
}

// saveWarning 把保存失败转换成告警文案；其它错误返回空串。
func saveWarning(err error) string {
	var se *catalog.SaveError
	if errors.As(err, &se) {
		return fmt.Sprintf("Changes are kept for this session but could not be saved: %v", se.Err)
	}
	return ""
}
