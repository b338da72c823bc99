// Package browse is a terminal pager over the stored postings.
package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// PageFunc loads one zero-based page of stored postings.
type PageFunc func(ctx context.Context, page, size int) (model.PagedResult, error)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")) // bright blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Padding(0, 1)

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type pageLoadedMsg struct {
	result model.PagedResult
	err    error
}

type spinnerTickMsg struct{}

type browseModel struct {
	fetch   PageFunc
	title   string
	size    int
	page    int
	result  model.PagedResult
	table   table.Model
	detail  viewport.Model
	view    viewState
	loading bool
	frame   int
	err     error
	width   int
	height  int
	openURL func(string)
}

func newModel(fetch PageFunc, title string, size int) browseModel {
	if size <= 0 {
		size = model.DefaultPageSize
	}
	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(size),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("24"))
	t.SetStyles(styles)

	return browseModel{
		fetch:   fetch,
		title:   title,
		size:    size,
		table:   t,
		loading: true,
		openURL: openURL,
	}
}

// columns splits width between the table columns.
func columns(width int) []table.Column {
	fixed := 10 + 8 + 10 // posted, work, provider
	flex := max(width-fixed-12, 30)
	return []table.Column{
		{Title: "Posted", Width: 10},
		{Title: "Title", Width: flex * 45 / 100},
		{Title: "Company", Width: flex * 25 / 100},
		{Title: "Location", Width: flex * 30 / 100},
		{Title: "Work", Width: 8},
		{Title: "Source", Width: 10},
	}
}

func rows(postings []model.JobPosting) []table.Row {
	out := make([]table.Row, len(postings))
	for i, p := range postings {
		posted := "-"
		if p.PostedAt != nil {
			posted = p.PostedAt.Format("2006-01-02")
		}
		out[i] = table.Row{posted, p.Title, p.Company, p.Location, string(p.WorkArrangement), p.Provider}
	}
	return out
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.load(m.page), m.tick())
}

func (m browseModel) load(page int) tea.Cmd {
	fetch, size := m.fetch, m.size
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := fetch(ctx, page, size)
		return pageLoadedMsg{result: res, err: err}
	}
}

func (m browseModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(m.width))
		m.table.SetHeight(max(m.height-6, 3))
		m.detail.Width = m.width - 4
		m.detail.Height = m.height - 4
		return m, nil

	case pageLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.result = msg.result
		m.page = msg.result.Page
		m.table.SetRows(rows(msg.result.Content))
		m.table.SetCursor(0)
		return m, nil

	case spinnerTickMsg:
		if !m.loading {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "right":
		if m.loading || m.page+1 >= m.result.TotalPages() {
			return m, nil
		}
		return m.startLoad(m.page + 1)
	case "p", "left":
		if m.loading || m.page == 0 {
			return m, nil
		}
		return m.startLoad(m.page - 1)
	case "o":
		if p, ok := m.selected(); ok && p.URL != "" {
			m.openURL(p.URL)
		}
		return m, nil
	case "enter":
		p, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.view = viewDetail
		m.detail = viewport.New(max(m.width-4, 40), max(m.height-4, 10))
		m.detail.SetContent(renderDetail(p, m.detail.Width))
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if p, ok := m.selected(); ok && p.URL != "" {
			m.openURL(p.URL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m browseModel) startLoad(page int) (tea.Model, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.load(page), m.tick())
}

func (m browseModel) selected() (model.JobPosting, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.result.Content) {
		return model.JobPosting{}, false
	}
	return m.result.Content[i], true
}

func (m browseModel) View() string {
	if m.view == viewDetail {
		return borderStyle.Render(m.detail.View()) + "\n" +
			statusBarStyle.Render("esc back · o open in browser · q quit")
	}

	header := headerStyle.Render("Jobsight · stored postings")
	if m.title != "" {
		header += headerStyle.Render("filter: " + m.title)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(borderStyle.Render(m.table.View()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(statusBarStyle.Render(m.status()))
	return b.String()
}

func (m browseModel) status() string {
	if m.loading {
		return spinnerFrames[m.frame] + " loading..."
	}
	pages := max(m.result.TotalPages(), 1)
	return fmt.Sprintf("page %d/%d · %d postings · n/p page · enter details · o open · q quit",
		m.page+1, pages, m.result.TotalElements)
}

func renderDetail(p model.JobPosting, width int) string {
	var b strings.Builder
	b.WriteString(detailTitleStyle.Render(p.Title))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Company", p.Company)
	row("Location", p.Location)
	row("Work", string(p.WorkArrangement))
	row("Seniority", string(p.Seniority))
	row("Skills", strings.Join(p.Skills, ", "))
	row("Salary", salary(p))
	if p.PostedAt != nil {
		row("Posted", p.PostedAt.Format(time.RFC1123))
	} else {
		row("Posted", "")
	}
	row("Source", p.Provider+" / "+p.ProviderID)
	row("URL", p.URL)

	if p.Description != "" {
		b.WriteString("\n")
		b.WriteString(descBodyStyle.Width(max(width-2, 20)).Render(p.Description))
	}
	return b.String()
}

func salary(p model.JobPosting) string {
	switch {
	case p.Salary.Min != nil && p.Salary.Max != nil:
		return fmt.Sprintf("%d - %d %s", *p.Salary.Min, *p.Salary.Max, p.Currency)
	case p.Salary.Min != nil:
		return fmt.Sprintf("from %d %s", *p.Salary.Min, p.Currency)
	case p.Salary.Max != nil:
		return fmt.Sprintf("up to %d %s", *p.Salary.Max, p.Currency)
	default:
		return ""
	}
}

func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the pager in the alternate screen and blocks until the user quits.
func Run(fetch PageFunc, title string, size int) error {
	p := tea.NewProgram(newModel(fetch, title, size), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
