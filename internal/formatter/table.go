package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/musicman/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewStyle(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Success, Failure and Hint style one-line CLI messages.
func Success(s string) string { return styles.ok.Render(s) }
func Failure(s string) string { return styles.err.Render(s) }
func Hint(s string) string    { return styles.help.Render(s) }

// kindStyle colors failures red, refresh traffic orange and everything else green.
func kindStyle(kind string) lipgloss.Style {
	switch kind {
	case "refresh-failed":
		return styles.err
	case "refresh-attempted", "refresh-succeeded":
		return styles.warn
	case "swept", "cleared":
		return styles.help
	default:
		return styles.ok
	}
}

// RenderTable renders events as a bordered table.
func RenderTable(events []*models.SessionEvent) string {
	if len(events) == 0 {
		return styles.help.Render("No session events recorded.")
	}

	kinds := make([]string, len(events))
	rows := make([][]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind()
		rows[i] = []string{e.CreatedAt().Format(timeLayout), e.UserID(), e.Kind(), e.Detail()}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.help).
		Headers("TIME", "USER", "EVENT", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.title.Padding(0, 1)
			case col == 2 && row >= 0 && row < len(kinds):
				return kindStyle(kinds[row]).Padding(0, 1)
			default:
				return cell
			}
		})

	return t.String()
}
