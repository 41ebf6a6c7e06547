package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/config"
	"github.com/John-Robertt/mymovies/internal/domain"
	"github.com/John-Robertt/mymovies/internal/provider"
	"github.com/John-Robertt/mymovies/internal/query"
	"github.com/John-Robertt/mymovies/internal/stats"
	"github.com/John-Robertt/mymovies/internal/ui"
	"github.com/John-Robertt/mymovies/internal/view"
)

const banner = "********** My Movies Database **********"

type menuItem struct {
	label string
	run   func(ctx context.Context) error
}

// session 是一次交互菜单会话。
type session struct {
	*app
	p *prompter
	// rnd 为 nil 时随机推荐使用全局随机源。
	rnd *rand.Rand
}

// interactive 运行菜单直到用户选择退出、在主菜单按 Ctrl-C 或输入结束。
func (a *app) interactive(ctx context.Context) error {
	rl, err := a.newReader(a.in, a.out)
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer rl.Close()

	s := &session{app: a, p: &prompter{rl: rl, out: a.out, warn: a.r.Warning}}
	a.log.Debug("interactive session started", zap.Int("movies", a.cat.Len()))
	s.mainLoop(ctx)
	return nil
}

func (s *session) mainLoop(ctx context.Context) {
	items := []menuItem{
		{"Display Movies", func(ctx context.Context) error { return s.submenu(ctx, "Display Movies Menu:", s.displayItems) }},
		{"Edit Movies", func(ctx context.Context) error { return s.submenu(ctx, "Edit Movies Menu:", s.editItems) }},
		{"Statistics & Fun", func(ctx context.Context) error { return s.submenu(ctx, "Statistics & Fun Menu:", s.statsItems) }},
		{"Settings", func(ctx context.Context) error { return s.submenu(ctx, "Settings Menu:", s.settingsItems) }},
	}
	for {
		s.clear()
		s.p.say("", s.r.S.Header.Render(banner), "", s.menu("Main Menu:", items, "Exit"))
		choice, err := s.p.ask(fmt.Sprintf("\nEnter choice (0-%d): ", len(items)))
		if err != nil || choice == "0" {
			s.p.say("", s.r.Success("Goodbye!"))
			return
		}
		it, ok := pick(items, choice)
		if !ok {
			s.p.say(s.r.Error(fmt.Sprintf("Invalid choice. Please enter a number between 0 and %d.", len(items))))
			if errors.Is(s.p.pause(), errQuit) {
				s.p.say("", s.r.Success("Goodbye!"))
				return
			}
			continue
		}
		if errors.Is(it.run(ctx), errQuit) {
			s.p.say("", s.r.Success("Goodbye!"))
			return
		}
	}
}

// submenu 循环展示 items()，每次都重新生成（例如设置 API key 后出现远程添加）。
// 返回 errQuit 表示会话应当结束。
func (s *session) submenu(ctx context.Context, title string, items func() []menuItem) error {
	for {
		its := items()
		s.clear()
		s.p.say("", s.r.S.Header.Render(banner), "", s.menu(title, its, "Back to main menu"))
		choice, err := s.p.ask(fmt.Sprintf("\nEnter choice (0-%d): ", len(its)))
		switch {
		case errors.Is(err, errCancelled):
			return nil
		case err != nil:
			return err
		case choice == "0":
			return nil
		}

		if it, ok := pick(its, choice); ok {
			err := it.run(ctx)
			switch {
			case errors.Is(err, errQuit):
				return err
			case errors.Is(err, errCancelled):
				s.p.say("", s.r.Warning("Operation cancelled."))
			case err != nil:
				s.report(err)
			}
		} else {
			s.p.say(s.r.Error(fmt.Sprintf("Invalid choice. Please enter a number between 0 and %d.", len(its))))
		}
		if err := s.p.pause(); err != nil {
			return err
		}
	}
}

func (s *session) displayItems() []menuItem {
	return []menuItem{
		{"List all movies", s.listMovies},
		{"Search movie", s.searchMovies},
		{"Filter movies", s.filterMovies},
		{"Sort by rating", s.sortByRating},
		{"Sort by year", s.sortByYear},
	}
}

func (s *session) editItems() []menuItem {
	items := []menuItem{{"Add movie manually", s.addManually}}
	if s.lookupReady() {
		items = append(items, menuItem{"Add movie from OMDb", s.addFromLookup})
	}
	return append(items,
		menuItem{"Update movie", s.updateMovie},
		menuItem{"Delete movie", s.deleteMovie},
	)
}

func (s *session) statsItems() []menuItem {
	return []menuItem{
		{"Show stats", s.showStats},
		{"Random movie", s.randomMovie},
	}
}

func (s *session) settingsItems() []menuItem {
	return []menuItem{
		{"Set OMDb API Key", s.setAPIKey},
		{"View OMDb API Key", s.viewAPIKey},
	}
}

// report 把操作失败转换成一行提示；会话继续。
func (s *session) report(err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyDataset):
		s.p.say(s.r.Info("No data."))
	case saveWarning(err) != "":
		s.p.say(s.r.Warning(saveWarning(err)))
	default:
		s.p.say(s.r.Error(err.Error()))
	}
}

// ---- Display ----

func (s *session) listMovies(ctx context.Context) error {
	return s.browse(s.cat.Movies(), "List of all movies")
}

func (s *session) sortByRating(ctx context.Context) error {
	return s.browse(view.Sort(s.cat.Movies(), view.ByRating, view.Desc), "Movies sorted by rating (highest first)")
}

func (s *session) sortByYear(ctx context.Context) error {
	for {
		order, err := s.p.ask("Sort by latest or oldest first? (l/o): ")
		if err != nil {
			return err
		}
		switch strings.ToLower(order) {
		case "l":
			return s.browse(view.Sort(s.cat.Movies(), view.ByYear, view.Desc), "Movies sorted by year (latest first)")
		case "o":
			return s.browse(view.Sort(s.cat.Movies(), view.ByYear, view.Asc), "Movies sorted by year (oldest first)")
		}
		s.p.say(s.r.Error("Invalid choice. Please enter 'l' for latest or 'o' for oldest."))
	}
}

// browse 分页展示 movies：n 下一页，p 上一页，q 退出。
func (s *session) browse(movies []domain.Movie, title string) error {
	pages := view.Paginate(movies, s.cfg.PageSize)
	if len(pages) == 0 {
		s.p.say(s.r.Warning("No movies in the database."))
		return nil
	}
	cur := 0
	for {
		s.clear()
		s.p.say("", s.r.Info(title+":"), s.r.Page(pages[cur], len(movies)), "",
			"'n' for next page, 'p' for previous, 'q' to quit")
		choice, err := s.p.ask("Enter choice: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(choice) {
		case "n":
			if cur < len(pages)-1 {
				cur++
				continue
			}
			s.p.say(s.r.Warning("You are on the last page."))
		case "p":
			if cur > 0 {
				cur--
				continue
			}
			s.p.say(s.r.Warning("You are on the first page."))
		case "q":
			return nil
		default:
			s.p.say(s.r.Error("Invalid choice."))
		}
		if err := s.p.pause(); err != nil {
			return err
		}
	}
}

func (s *session) searchMovies(ctx context.Context) error {
	if s.cat.Len() == 0 {
		s.p.say(s.r.Warning("No movies in the database."))
		return nil
	}
	s.p.say("Search by title, or prefix a field code:")
	for _, u := range query.Usage() {
		s.p.say("  " + u)
	}
	s.p.say("(e.g. 'a:Tom Hanks' or 'y:2000'; use 't:Y: The Last Man' for titles that look like a code)", "")

	raw, err := s.p.ask("Enter search term: ")
	if err != nil {
		return err
	}
	if raw == "" {
		s.p.say(s.r.Error("Please enter a search term."))
		return nil
	}
	q, err := query.Parse(raw, query.Options{StrictFields: s.cfg.StrictFields})
	if err != nil {
		return err
	}
	found := query.Filter(s.cat.Movies(), q)
	if len(found) == 0 {
		s.p.say(s.r.Warning("No movies found matching your search."))
		return nil
	}
	s.p.say("", s.r.Info(fmt.Sprintf("Search results for '%s':", raw)), s.r.List(found))
	return nil
}

func (s *session) filterMovies(ctx context.Context) error {
	if s.cat.Len() == 0 {
		s.p.say(s.r.Warning("No movies in the database."))
		return nil
	}
	var (
		b   query.Bounds
		err error
	)
	if b.MinRating, err = s.p.askRating("Enter minimum rating (0-10, leave blank for none): ", true); err != nil {
		return err
	}
	if b.MaxRating, err = s.p.askRating("Enter maximum rating (0-10, leave blank for none): ", true); err != nil {
		return err
	}
	if b.MinYear, err = s.p.askYear("Enter start year (leave blank for none): ", true); err != nil {
		return err
	}
	if b.MaxYear, err = s.p.askYear("Enter end year (leave blank for none): ", true); err != nil {
		return err
	}

	found := b.Apply(s.cat.Movies())
	if len(found) == 0 {
		s.p.say(s.r.Warning("No movies found matching your criteria."))
		return nil
	}
	s.p.say("", s.r.Info("Filtered movies:"), s.r.List(found))
	return nil
}

// ---- Edit ----

func (s *session) addManually(ctx context.Context) error {
	title, err := s.p.ask("Enter movie title: ")
	if err != nil {
		return err
	}
	if title == "" {
		s.p.say(s.r.Error("Movie title cannot be empty."))
		return nil
	}
	return s.addManualFields(ctx, title)
}

// addManualFields 读取评分/年份并保存；空输入表示未知。
func (s *session) addManualFields(ctx context.Context, title string) error {
	if ok, err := s.confirmDuplicate(title); err != nil || !ok {
		return err
	}
	m := domain.Movie{Title: title}
	var err error
	if m.Rating, err = s.p.askRating("Enter movie rating (0-10, leave blank if unknown): ", true); err != nil {
		return err
	}
	if m.Year, err = s.p.askYear("Enter movie year (leave blank if unknown): ", true); err != nil {
		return err
	}
	if _, err := s.cat.Add(ctx, m); err != nil {
		return err
	}
	s.p.say(s.r.Success(fmt.Sprintf("Movie '%s' added with rating %s and year %s.",
		m.Title, ui.FormatRating(m.Rating), ui.FormatYear(m.Year))))
	return nil
}

// addFromLookup 远程查询后添加；查询不到或网络失败时回退为手工录入。
func (s *session) addFromLookup(ctx context.Context) error {
	title, err := s.p.ask("Enter movie title to search online: ")
	if err != nil {
		return err
	}
	if title == "" {
		s.p.say(s.r.Error("Please enter a search term."))
		return nil
	}

	// 查询期间终端不在 raw 模式，Ctrl-C 以信号到达：只取消这一次查询。
	lctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	s.p.say(s.r.Info("Searching online..."))
	res, err := s.lookup(lctx, title)
	cancelled := lctx.Err() != nil && ctx.Err() == nil
	stop()

	switch {
	case cancelled:
		return errCancelled
	case errors.Is(err, provider.ErrNotFound):
		s.p.say(s.r.Warning("Movie not found online. Falling back to manual entry."))
		return s.addManualFields(ctx, title)
	case isLookupMiss(err):
		s.p.say(s.r.Warning(fmt.Sprintf("Online lookup failed (%v). Falling back to manual entry.", err)))
		return s.addManualFields(ctx, title)
	case err != nil:
		return err
	}

	m := res.Movie
	if ok, err := s.confirmDuplicate(m.Title); err != nil || !ok {
		return err
	}
	if _, err := s.cat.Add(ctx, m); err != nil {
		return err
	}
	s.p.say(s.r.Card(0, m), s.r.Success(fmt.Sprintf("Movie '%s' added successfully (via %s).", m.Title, res.Provider)))
	return nil
}

// confirmDuplicate 在同名记录已存在时询问是否仍要添加。
func (s *session) confirmDuplicate(title string) (bool, error) {
	if len(s.cat.Find(title)) == 0 {
		return true, nil
	}
	ans, err := s.p.ask(fmt.Sprintf("Movie '%s' already exists. Add another entry anyway? (y/N): ", title))
	if err != nil {
		return false, err
	}
	if strings.EqualFold(ans, "y") || strings.EqualFold(ans, "yes") {
		return true, nil
	}
	s.p.say(s.r.Warning("Nothing added."))
	return false, nil
}

func (s *session) updateMovie(ctx context.Context) error {
	i, ok, err := s.selectByTitle("Enter movie title to update: ")
	if err != nil || !ok {
		return err
	}

	fields := []string{"Title", "Year", "Rating", "Description", "Actors", "Genre", "Director"}
	for {
		cur, err := s.cat.Get(i)
		if err != nil {
			return err
		}
		s.p.say("", s.r.Card(0, cur), s.menu("What would you like to update?", fieldItems(fields), "Back"))
		choice, err := s.p.ask("\nEnter choice: ")
		if err != nil {
			return err
		}
		if choice == "0" {
			return nil
		}

		var (
			edit func(*domain.Movie)
			done string
		)
		switch choice {
		case "1":
			t, err := s.p.ask("Enter new title: ")
			if err != nil {
				return err
			}
			if t == "" {
				s.p.say(s.r.Error("Movie title cannot be empty."))
				continue
			}
			edit, done = func(m *domain.Movie) { m.Title = t }, fmt.Sprintf("Movie title updated to '%s'.", t)
		case "2":
			y, err := s.p.askYear(fmt.Sprintf("Enter new year (current: %s, blank to clear): ", ui.FormatYear(cur.Year)), true)
			if err != nil {
				return err
			}
			edit, done = func(m *domain.Movie) { m.Year = y }, "Year updated to "+ui.FormatYear(y)+"."
		case "3":
			r, err := s.p.askRating(fmt.Sprintf("Enter new rating (current: %s, blank to clear): ", ui.FormatRating(cur.Rating)), true)
			if err != nil {
				return err
			}
			edit, done = func(m *domain.Movie) { m.Rating = r }, "Rating updated to "+ui.FormatRating(r)+"."
		case "4", "6", "7":
			v, err := s.p.ask("Enter new " + strings.ToLower(fields[choice[0]-'1']) + ": ")
			if err != nil {
				return err
			}
			switch choice {
			case "4":
				edit = func(m *domain.Movie) { m.Plot = v }
			case "6":
				edit = func(m *domain.Movie) { m.Genre = v }
			default:
				edit = func(m *domain.Movie) { m.Director = v }
			}
			done = fields[choice[0]-'1'] + " updated."
		case "5":
			v, err := s.p.ask("Enter new actors (comma-separated): ")
			if err != nil {
				return err
			}
			edit, done = func(m *domain.Movie) { m.Actors = domain.SplitActors(v) }, "Actors updated."
		default:
			s.p.say(s.r.Error("Invalid choice."))
			continue
		}

		if err := s.cat.Update(ctx, i, edit); err != nil {
			s.report(err)
			continue
		}
		s.p.say(s.r.Success(done))
	}
}

func (s *session) deleteMovie(ctx context.Context) error {
	i, ok, err := s.selectByTitle("Enter movie title to delete: ")
	if err != nil || !ok {
		return err
	}
	m, err := s.cat.Delete(ctx, i)
	if err != nil {
		return err
	}
	s.p.say(s.r.Success(fmt.Sprintf("Movie '%s' deleted.", m.Title)))
	return nil
}

// selectByTitle 读取标题并定位记录；同名多条时让用户按编号选择。
// ok=false 表示没有可操作的记录（已提示用户）。
func (s *session) selectByTitle(prompt string) (int, bool, error) {
	title, err := s.p.ask(prompt)
	if err != nil {
		return 0, false, err
	}
	hits := s.cat.Find(title)
	switch len(hits) {
	case 0:
		s.p.say(s.r.Error(fmt.Sprintf("Movie '%s' not found!", title)))
		return 0, false, nil
	case 1:
		return hits[0], true, nil
	}

	for k, i := range hits {
		m, _ := s.cat.Get(i)
		s.p.say(s.r.Card(k+1, m))
	}
	ans, err := s.p.ask(fmt.Sprintf("Several movies share this title. Which one? (1-%d): ", len(hits)))
	if err != nil {
		return 0, false, err
	}
	k, err := strconv.Atoi(ans)
	if err != nil || k < 1 || k > len(hits) {
		s.p.say(s.r.Error("Invalid choice."))
		return 0, false, nil
	}
	return hits[k-1], true, nil
}

// ---- Statistics & Fun ----

func (s *session) showStats(ctx context.Context) error {
	sum, err := stats.Summarize(s.cat.Movies())
	if err != nil {
		return err
	}
	s.p.say("", s.r.Stats(sum))
	return nil
}

func (s *session) randomMovie(ctx context.Context) error {
	m, err := stats.RandomPick(s.cat.Movies(), s.rnd)
	if err != nil {
		return err
	}
	s.p.say("", s.r.Success("Your random movie is:"), s.r.Card(0, m))
	return nil
}

// ---- Settings ----

func (s *session) setAPIKey(ctx context.Context) error {
	key, err := s.p.ask("Enter your OMDb API key: ")
	if err != nil {
		return err
	}
	if key == "" {
		s.p.say(s.r.Error("API key cannot be empty."))
		return nil
	}
	if err := config.SaveAPIKey(s.cfg.Dir, key); err != nil {
		return err
	}
	cfg, err := config.LoadEffective(s.dir, s.flags)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.p.say(s.r.Success("API key saved."))
	if cur, _ := s.cfg.APIKey(); cur != key {
		s.p.say(s.r.Warning("A key from --api-key or " + config.EnvAPIKey + " still takes precedence in this session."))
	}
	return nil
}

func (s *session) viewAPIKey(ctx context.Context) error {
	if key, ok := s.cfg.APIKey(); ok {
		s.p.say("Current API Key: " + key)
		return nil
	}
	s.p.say(s.r.Warning("No API key set."))
	return nil
}

// ---- helpers ----

func (s *session) menu(title string, items []menuItem, zero string) string {
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.label
	}
	return s.r.Menu(title, labels) + "\n" + s.r.S.MenuKey.Render(" 0.") + " " + s.r.S.MenuItem.Render(zero)
}

// clear 只在真实终端上清屏。
func (s *session) clear() {
	if s.tty {
		fmt.Fprint(s.out, "\033[H\033[2J")
	}
}

func pick(items []menuItem, choice string) (menuItem, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || n < 1 || n > len(items) {
		return menuItem{}, false
	}
	return items[n-1], true
}

func fieldItems(labels []string) []menuItem {
	out := make([]menuItem, len(labels))
	for i, l := range labels {
		out[i] = menuItem{label: l}
	}
	return out
}
