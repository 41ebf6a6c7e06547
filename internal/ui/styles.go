// Package ui 把目录数据渲染成终端文本（卡片、分页头、统计块、提示消息）。
// 只消费核心数据，不做任何业务判断。
package ui

import "github.com/charmbracelet/lipgloss"

// 终端明暗背景下各取一套颜色。
var (
	Primary = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	Muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	Border  = lipgloss.AdaptiveColor{Light: "#D6DAE0", Dark: "#2A3850"}

	Success = lipgloss.Color("#8BC34A")
	Warning = lipgloss.Color("#FFC107")
	Danger  = lipgloss.Color("#E53935")
	Info    = lipgloss.Color("#2196F3")
	Star    = lipgloss.Color("#FFD54F")
)

// Styles 汇总所有渲染用到的样式。
type Styles struct {
	Title    lipgloss.Style
	Index    lipgloss.Style
	Year     lipgloss.Style
	Rating   lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Plot     lipgloss.Style
	Card     lipgloss.Style
	Header   lipgloss.Style
	MenuKey  lipgloss.Style
	MenuItem lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// DefaultStyles 返回默认样式；lipgloss 会根据输出是否为终端自动降级为无颜色。
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Index:    lipgloss.NewStyle().Foreground(Muted),
		Year:     lipgloss.NewStyle().Foreground(Muted),
		Rating:   lipgloss.NewStyle().Bold(true).Foreground(Star),
		Label:    lipgloss.NewStyle().Foreground(Muted).Width(10),
		Value:    lipgloss.NewStyle(),
		Plot:     lipgloss.NewStyle().Italic(true),
		Card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Border).Padding(0, 1),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(Primary).Underline(true),
		MenuKey:  lipgloss.NewStyle().Bold(true).Foreground(Info),
		MenuItem: lipgloss.NewStyle(),

		Success: lipgloss.NewStyle().Foreground(Success),
		Warning: lipgloss.NewStyle().Foreground(Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(Danger),
		Info:    lipgloss.NewStyle().Foreground(Info),
	}
}
