package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/mymovies/internal/domain"
	"github.com/John-Robertt/mymovies/internal/stats"
	"github.com/John-Robertt/mymovies/internal/view"
)

// DefaultWidth 是卡片的默认总宽度（含边框）。
const DefaultWidth = 72

// Renderer 持有样式与宽度。零值不可用，使用 New。
type Renderer struct {
	S     Styles
	Width int
}

func New(width int) *Renderer {
	if width <= 20 {
		width = DefaultWidth
	}
	return &Renderer{S: DefaultStyles(), Width: width}
}

// FormatRating 保留一位小数；缺失时为 "N/A"。
func FormatRating(r *float64) string {
	if r == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

// FormatYear 缺失时为 "N/A"。
func FormatYear(y *int) string {
	if y == nil {
		return "N/A"
	}
	return strconv.Itoa(*y)
}

// Card 渲染一条记录。index 从 1 开始；<=0 时不显示编号。
func (r *Renderer) Card(index int, m domain.Movie) string {
	s := r.S
	inner := r.Width - 4

	head := s.Title.Render(m.Title) + " " + s.Year.Render("("+FormatYear(m.Year)+")")
	if index > 0 {
		head = s.Index.Render(fmt.Sprintf("%d.", index)) + " " + head
	}
	lines := []string{
		head,
		s.Label.Render("Rating") + s.Rating.Render("★ "+FormatRating(m.Rating)),
	}
	if m.Director != "" {
		lines = append(lines, s.Label.Render("Director")+s.Value.Render(m.Director))
	}
	if m.Genre != "" {
		lines = append(lines, s.Label.Render("Genre")+s.Value.Render(m.Genre))
	}
	if len(m.Actors) > 0 {
		actors := lipgloss.NewStyle().Width(inner - 10).Render(strings.Join(m.Actors, ", "))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render("Actors"), actors))
	}
	if m.Plot != "" {
		lines = append(lines, "", s.Plot.Width(inner).Render(m.Plot))
	}
	return s.Card.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

// PageHeader 渲染分页标题，例如 "Page 2/5 (items 11-20 of 43)"。
func (r *Renderer) PageHeader(p view.Page, total int) string {
	last := p.Offset + len(p.Items)
	return r.S.Header.Render(fmt.Sprintf("Page %d/%d (items %d-%d of %d)", p.Number, p.Total, p.Offset+1, last, total))
}

// Page 渲染一页卡片，编号延续全局位置。
func (r *Renderer) Page(p view.Page, total int) string {
	parts := []string{r.PageHeader(p, total)}
	for i, m := range p.Items {
		parts = append(parts, r.Card(p.Offset+i+1, m))
	}
	return strings.Join(parts, "\n")
}

// List 不分页地渲染全部卡片。
func (r *Renderer) List(movies []domain.Movie) string {
	if len(movies) == 0 {
		return r.Info("No movies found.")
	}
	parts := make([]string, 0, len(movies))
	for i, m := range movies {
		parts = append(parts, r.Card(i+1, m))
	}
	return strings.Join(parts, "\n")
}

// Stats 渲染统计块。
func (r *Renderer) Stats(sum stats.Summary) string {
	s := r.S
	row := func(label, value string) string { return s.Label.Width(16).Render(label) + value }
	lines := []string{
		s.Header.Render("Statistics"),
		row("Movies", strconv.Itoa(sum.Total)),
		row("Rated", strconv.Itoa(sum.Rated)),
		row("Average rating", fmt.Sprintf("%.2f", sum.Avg)),
		row("Median rating", fmt.Sprintf("%.2f", sum.Median)),
		row("Best", fmt.Sprintf("%s (%.1f)", strings.Join(sum.Best, ", "), sum.BestRating)),
		row("Worst", fmt.Sprintf("%s (%.1f)", strings.Join(sum.Worst, ", "), sum.WorstRating)),
	}
	return strings.Join(lines, "\n")
}

// Menu 渲染编号菜单。
func (r *Renderer) Menu(title string, items []string) string {
	lines := []string{r.S.Header.Render(title)}
	for i, it := range items {
		lines = append(lines, r.S.MenuKey.Render(fmt.Sprintf("%2d.", i+1))+" "+r.S.MenuItem.Render(it))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) Success(msg string) string { return r.S.Success.Render("✓ " + msg) }
func (r *Renderer) Warning(msg string) string { return r.S.Warning.Render("! " + msg) }
func (r *Renderer) Error(msg string) string   { return r.S.Error.Render("✗ " + msg) }
func (r *Renderer) Info(msg string) string    { return r.S.Info.Render(msg) }
