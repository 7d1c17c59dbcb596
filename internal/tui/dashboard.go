package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pm33/abtest/internal/analytics"
	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/tui/theme"
	"github.com/pm33/abtest/internal/util"
)

type reportsLoadedMsg struct {
	reports []*domain.TestReport
}

type reportsErrorMsg struct {
	err error
}

// Dashboard lists every test with per-variant impression and
// conversion numbers. The cursor selects a test; its variant breakdown
// is shown below the list.
type Dashboard struct {
	service *analytics.Service
	reports []*domain.TestReport
	cursor  int
	loading bool
	err     error
	styles  *theme.Styles
	width   int
	height  int
}

func NewDashboard(service *analytics.Service) *Dashboard {
	return &Dashboard{
		service: service,
		loading: true,
		styles:  theme.Default(),
	}
}

// Init implements tea.Model
func (d *Dashboard) Init() tea.Cmd {
	return d.loadReports()
}

func (d *Dashboard) loadReports() tea.Cmd {
	return func() tea.Msg {
		reports, err := d.service.ReportAll(context.Background())
		if err != nil {
			return reportsErrorMsg{fmt.Errorf("load reports: %w", err)}
		}
		return reportsLoadedMsg{reports}
	}
}

// Update implements tea.Model
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsLoadedMsg:
		d.loading = false
		d.reports = msg.reports
		if d.cursor >= len(d.reports) {
			d.cursor = 0
		}
		return d, nil

	case reportsErrorMsg:
		d.loading = false
		d.err = msg.err
		return d, nil

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		case "up", "k":
			if d.cursor > 0 {
				d.cursor--
			}
		case "down", "j":
			if d.cursor < len(d.reports)-1 {
				d.cursor++
			}
		case "r":
			d.loading = true
			d.err = nil
			return d, d.loadReports()
		}
	}

	return d, nil
}

// View implements tea.Model
func (d *Dashboard) View() string {
	if d.loading {
		return d.styles.Muted.Render("Loading tests...")
	}
	if d.err != nil {
		return d.styles.Error.Render(fmt.Sprintf("Error: %v", d.err))
	}

	title := d.styles.Title.Render("Split Tests")

	if len(d.reports) == 0 {
		empty := d.styles.Muted.Render("No tests yet. Create one with: abtest test create")
		return lipgloss.JoinVertical(lipgloss.Left, title, empty, d.helpView())
	}

	list := d.listView()
	detail := d.detailView(d.reports[d.cursor])

	return lipgloss.JoinVertical(lipgloss.Left, title, list, "", detail, d.helpView())
}

func (d *Dashboard) listView() string {
	var b strings.Builder
	for i, report := range d.reports {
		line := fmt.Sprintf("%s  %s impressions, %s conversions",
			report.TestName,
			util.FormatCount(totalImpressions(report)),
			util.FormatCount(totalConversions(report)))
		if i == d.cursor {
			b.WriteString(d.styles.Cursor.Render("> ") + d.styles.Selected.Render(line))
		} else {
			b.WriteString("  " + d.styles.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (d *Dashboard) detailView(report *domain.TestReport) string {
	var b strings.Builder
	b.WriteString(d.styles.Subtitle.Render(report.TestName) + "\n")
	b.WriteString(d.styles.Muted.Render(fmt.Sprintf("%-16s %12s %12s %8s", "VARIANT", "IMPRESSIONS", "CONVERSIONS", "RATE")) + "\n")

	for i := range report.Variants {
		vs := &report.Variants[i]
		line := fmt.Sprintf("%-16s %12s %12s %8s",
			vs.VariantID,
			util.FormatCount(vs.Impressions),
			util.FormatCount(vs.Conversions),
			util.FormatPercent(vs.ConversionRate()))
		if report.Winner != nil && report.Winner.VariantID == vs.VariantID {
			b.WriteString(d.styles.Success.Render(line))
		} else {
			b.WriteString(d.styles.Body.Render(line))
		}
		b.WriteString("\n")
	}

	if report.Winner != nil {
		b.WriteString(d.styles.Success.Render(fmt.Sprintf("Winner: %s at %s confidence",
			report.Winner.VariantID, util.FormatPercent(report.Confidence))))
		b.WriteString("\n")
	} else if report.Recommendation != "" {
		b.WriteString(d.styles.Muted.Render(report.Recommendation) + "\n")
	}

	return b.String()
}

func (d *Dashboard) helpView() string {
	keys := []string{"j/k: navigate", "r: refresh", "q: quit"}
	return d.styles.Help.Render(strings.Join(keys, "  "))
}

func totalImpressions(report *domain.TestReport) int64 {
	var n int64
	for i := range report.Variants {
		n += report.Variants[i].Impressions
	}
	return n
}

func totalConversions(report *domain.TestReport) int64 {
	var n int64
	for i := range report.Variants {
		n += report.Variants[i].Conversions
	}
	return n
}
