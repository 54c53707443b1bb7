package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/haivivi/audioseg/pkg/segment"
)

// Theme defines the report colors.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Padding(0, 1),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// SegmentReport renders the outcome of a split.
type SegmentReport struct {
	Title   string
	Styles  Styles
	Results []segment.Result

	// Footer is a dimmed line under the table, such as the job ID.
	Footer string
}

// Table implements Tabler.
func (r SegmentReport) Table() string {
	var total int64
	var dur time.Duration
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		total += res.Bytes
		dur += res.Duration
		rows = append(rows, []string{
			strconv.Itoa(res.Index),
			res.Path,
			FormatDuration(res.Duration),
			FormatBytes(res.Bytes),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.Styles.Border).
		Headers("#", "PATH", "DURATION", "SIZE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Styles.Header
			}
			return r.Styles.Cell
		})

	var b strings.Builder
	if r.Title != "" {
		b.WriteString(r.Styles.Title.Render(r.Title))
		b.WriteByte('\n')
	}
	b.WriteString(t.String())
	b.WriteByte('\n')
	summary := strconv.Itoa(len(r.Results)) + " segments, " + FormatBytes(total)
	if len(r.Results) > 0 {
		summary += ", " + FormatDuration(dur)
	}
	b.WriteString(r.Styles.Help.Render(summary))
	if r.Footer != "" {
		b.WriteByte('\n')
		b.WriteString(r.Styles.Help.Render(r.Footer))
	}
	return b.String()
}
